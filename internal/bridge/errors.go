package bridge

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")
	ErrNotConnected = errors.New("not_connected")
	ErrInvalidInput = errors.New("invalid_input")
)

// NotFoundError names what was missing: "channel" or "identity".
type NotFoundError struct {
	What     string
	Identity string
}

func (e *NotFoundError) Error() string {
	if e.Identity != "" {
		return fmt.Sprintf("%s %s not found", e.What, e.Identity)
	}
	return e.What + " not found"
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError is returned when a slot is already attached to someone else.
type ConflictError struct {
	Slot       string
	HolderID   string
	HolderName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %q already attached to %s", e.Slot, e.HolderID)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ConnectionError wraps a failure to reach or log into the session server.
type ConnectionError struct {
	Host string
	Port int
	Slot string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s:%d as %q: %v", e.Host, e.Port, e.Slot, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

package store

import (
	"errors"
	"fmt"
)

// ErrNoState is returned by a Persister that has nothing stored yet.
var ErrNoState = errors.New("no_persisted_state")

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

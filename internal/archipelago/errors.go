package archipelago

import (
	"errors"
	"fmt"
	"strings"
)

var ErrClosed = errors.New("session_closed")

// LoginError is returned when the server refuses the Connect packet.
type LoginError struct {
	Slot    string
	Reasons []string
}

func (e *LoginError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("login as %q refused", e.Slot)
	}
	return fmt.Sprintf("login as %q refused: %s", e.Slot, strings.Join(e.Reasons, ", "))
}

// DialError is returned when no address candidate accepted the websocket
// handshake.
type DialError struct {
	Addresses []string
	Err       error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("dial %s: %v", strings.Join(e.Addresses, ", "), e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

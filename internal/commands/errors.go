package commands

// UserError is shown to the caller as is. It marks invalid input or usage,
// not a system failure.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func NewUserError(msg string) *UserError {
	return &UserError{Message: msg}
}

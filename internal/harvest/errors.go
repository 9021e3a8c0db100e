package harvest

import "errors"

// ErrNotFound signals that the requested task or artifact does not exist.
var ErrNotFound = errors.New("not found")

// InputError marks a request rejected before any work starts. It is never
// retried and maps to a client error at the HTTP boundary.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// NewInputError builds an InputError with the given message.
func NewInputError(msg string) error {
	return &InputError{Msg: msg}
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

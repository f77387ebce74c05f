package serializer

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec is wrapped by every compile error.
var ErrInvalidSpec = errors.New("invalid mapping spec")

// ErrInvalidJSON is returned by DecodeJSON for malformed input.
var ErrInvalidJSON = errors.New("invalid json")

// AccessError reports a name that could not be resolved on an opaque object.
type AccessError struct {
	Name string
	Type string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Type, e.Name)
}

// InvocationError wraps a failure raised while invoking a subject method:
// a returned error, a recovered panic, or an unsupported signature.
type InvocationError struct {
	Name string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s: %v", e.Name, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func isAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}

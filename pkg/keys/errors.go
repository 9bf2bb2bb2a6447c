package keys

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength indicates a key or hash was decoded from the wrong
	// number of bytes.
	ErrInvalidLength = errors.New("keys: invalid length")

	// ErrInvalidEncoding indicates a base58 string did not decode to a
	// well-formed key.
	ErrInvalidEncoding = errors.New("keys: invalid encoding")

	// ErrInvalidKeypair indicates a signing keypair failed the
	// public/private consistency check.
	ErrInvalidKeypair = errors.New("keys: invalid keypair")
)

// Error wraps an underlying error with the operation that produced it,
// mirroring the teacher package's Op/Err wrapping convention.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("keys.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(op string, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf(format, args...)}
}

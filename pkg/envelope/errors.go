package envelope

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic indicates the envelope's leading magic bytes did not
	// match.
	ErrInvalidMagic = errors.New("envelope: invalid magic")

	// ErrSealFailed indicates AEAD sealing failed. This should not happen in
	// practice; secretbox.Seal cannot fail for well-formed inputs.
	ErrSealFailed = errors.New("envelope: seal failed")

	// ErrOpenFailed indicates AEAD authentication failed: wrong key, or the
	// ciphertext was tampered with.
	ErrOpenFailed = errors.New("envelope: open failed")
)

// EncryptionError wraps a failure to seal or open an Encrypted envelope.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("envelope.%s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

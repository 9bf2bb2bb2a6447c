package trace

import (
	"unicode/utf8"

	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/envelope"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// MinPasswordLength and MaxPasswordLength bound a Protected Access's
// password. original_source counts Unicode grapheme clusters; this package
// counts runes instead, which is a close approximation for the common case
// and is documented as a deliberate simplification (no grapheme-
// segmentation library exists anywhere in the example pack to ground a more
// faithful count on).
const (
	MinPasswordLength = 15
	MaxPasswordLength = 64
)

const (
	accessLocked    byte = 0x01
	accessUnlocked  byte = 0x02
	accessProtected byte = 0x03
)

var protectedSecretLabel = []byte("protected secret")

// Access is the three-state access control attached to every Trace: Locked
// (no one but the record's writer can reach the secret), Unlocked (the
// secret travels with the trace in the clear), or Protected (the secret is
// sealed behind a password-derived key).
type Access struct {
	kind      byte
	secret    keys.Secret
	protected *envelope.Encrypted
}

// Locked returns a Locked Access.
func Locked() Access {
	return Access{kind: accessLocked}
}

// Unlocked returns an Access that carries secret in the clear.
func Unlocked(secret keys.Secret) Access {
	return Access{kind: accessUnlocked, secret: secret}
}

// NewProtected seals secret behind a key derived from password and shard,
// returning a Protected Access. It fails with ErrPasswordLength if
// password's rune count falls outside [MinPasswordLength,
// MaxPasswordLength].
func NewProtected(shard keys.Shard, password string, secret keys.Secret) (Access, error) {
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		return Access{}, &AccessError{Op: "NewProtected", Err: ErrPasswordLength}
	}
	key, err := passwordKey(shard, password)
	if err != nil {
		return Access{}, &AccessError{Op: "NewProtected", Err: err}
	}
	sealed, err := envelope.Seal(key, secret.Bytes())
	if err != nil {
		return Access{}, &AccessError{Op: "NewProtected", Err: err}
	}
	return Access{kind: accessProtected, protected: sealed}, nil
}

func passwordKey(shard keys.Shard, password string) (keys.Secret, error) {
	salt := append(append([]byte{}, shard.Bytes()...), protectedSecretLabel...)
	return keys.DeriveSecret([]byte(password), salt, nil)
}

// Kind reports which of Locked, Unlocked, or Protected this Access is.
func (a Access) Kind() byte { return a.kind }

// TryOpen attempts to recover the Access's secret. Locked always fails with
// ErrLocked. Unlocked always succeeds, ignoring password. Protected derives
// a key from (shard, password) and fails with ErrInvalidPassword if it does
// not open the sealed secret.
func (a Access) TryOpen(shard keys.Shard, password string) (keys.Secret, error) {
	switch a.kind {
	case accessUnlocked:
		return a.secret, nil
	case accessProtected:
		key, err := passwordKey(shard, password)
		if err != nil {
			return keys.Secret{}, &AccessError{Op: "TryOpen", Err: err}
		}
		plaintext, err := a.protected.Open(key)
		if err != nil {
			return keys.Secret{}, &AccessError{Op: "TryOpen", Err: ErrInvalidPassword}
		}
		secret, err := keys.SecretFromBytes(plaintext)
		if err != nil {
			return keys.Secret{}, &AccessError{Op: "TryOpen", Err: err}
		}
		return secret, nil
	default:
		return keys.Secret{}, &AccessError{Op: "TryOpen", Err: ErrLocked}
	}
}

// EncodeTo writes the access's tag byte followed by its variable-length
// payload, if any.
func (a Access) EncodeTo(w *wire.Writer) {
	w.WriteByte(a.kind)
	switch a.kind {
	case accessUnlocked:
		w.WriteFixed(a.secret.Bytes(), keys.KeySize)
	case accessProtected:
		a.protected.EncodeTo(w)
	}
}

// DecodeFrom reads an access previously written by EncodeTo.
func (a *Access) DecodeFrom(r *wire.Reader) error {
	kind, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch kind {
	case accessLocked:
		*a = Access{kind: accessLocked}
		return nil
	case accessUnlocked:
		b, err := r.ReadFixed(keys.KeySize)
		if err != nil {
			return err
		}
		secret, err := keys.SecretFromBytes(b)
		if err != nil {
			return err
		}
		*a = Access{kind: accessUnlocked, secret: secret}
		return nil
	case accessProtected:
		var e envelope.Encrypted
		if err := e.DecodeFrom(r); err != nil {
			return err
		}
		*a = Access{kind: accessProtected, protected: &e}
		return nil
	default:
		return &TraceError{Op: "DecodeFrom", Err: ErrInvalidMagic}
	}
}

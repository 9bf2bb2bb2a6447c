// Package envelope implements Encrypted, the AEAD envelope every sealed
// payload in tracebox travels in: a magic tag, a random nonce, and a
// length-prefixed ciphertext.
package envelope

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// Magic is the four-byte tag that opens every Encrypted envelope on the
// wire, matching original_source's literal `/??/` marker.
var Magic = [4]byte{'/', '?', '?', '/'}

// NonceSize is secretbox's nonce width, chosen because it matches the
// envelope's fixed Nonce field exactly.
const NonceSize = 24

// Encrypted is a secretbox-sealed payload: Magic, a random Nonce, and the
// ciphertext (which includes secretbox's 16-byte Poly1305 tag).
type Encrypted struct {
	Nonce      [NonceSize]byte
	Ciphertext []byte
}

// Seal encrypts plaintext under secret with a freshly generated random
// nonce.
func Seal(secret keys.Secret, plaintext []byte) (*Encrypted, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, &EncryptionError{Op: "Seal", Err: err}
	}
	return SealWithNonce(secret, nonce, plaintext)
}

// SealWithNonce encrypts plaintext under secret with an explicit nonce. It
// exists so tests can exercise deterministic envelopes; production callers
// should use Seal.
func SealWithNonce(secret keys.Secret, nonce [NonceSize]byte, plaintext []byte) (*Encrypted, error) {
	var key [32]byte
	copy(key[:], secret.Bytes())
	ciphertext := secretbox.Seal(nil, plaintext, &nonce, &key)
	return &Encrypted{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open decrypts e under secret, failing with ErrOpenFailed if the key is
// wrong or the ciphertext has been tampered with.
func (e *Encrypted) Open(secret keys.Secret) ([]byte, error) {
	var key [32]byte
	copy(key[:], secret.Bytes())
	plaintext, ok := secretbox.Open(nil, e.Ciphertext, &e.Nonce, &key)
	if !ok {
		return nil, &EncryptionError{Op: "Open", Err: ErrOpenFailed}
	}
	return plaintext, nil
}

// EncodeTo writes the envelope as Magic, Nonce, and a length-prefixed
// ciphertext.
func (e *Encrypted) EncodeTo(w *wire.Writer) {
	w.WriteRaw(Magic[:])
	w.WriteFixed(e.Nonce[:], NonceSize)
	w.WriteLenPrefixed(e.Ciphertext)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (e *Encrypted) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter()
	e.EncodeTo(w)
	return w.Bytes(), nil
}

// DecodeFrom reads an envelope previously written by EncodeTo.
func (e *Encrypted) DecodeFrom(r *wire.Reader) error {
	if err := r.ReadMagic(Magic[:]); err != nil {
		return &EncryptionError{Op: "DecodeFrom", Err: ErrInvalidMagic}
	}
	nonce, err := r.ReadFixed(NonceSize)
	if err != nil {
		return &EncryptionError{Op: "DecodeFrom", Err: err}
	}
	ciphertext, err := r.ReadLenPrefixed()
	if err != nil {
		return &EncryptionError{Op: "DecodeFrom", Err: err}
	}
	copy(e.Nonce[:], nonce)
	e.Ciphertext = ciphertext
	return nil
}

// FromBytes decodes an envelope from a standalone byte slice, requiring the
// whole slice to be consumed.
func FromBytes(b []byte) (*Encrypted, error) {
	r := wire.NewReader(b)
	var e Encrypted
	if err := e.DecodeFrom(r); err != nil {
		return nil, err
	}
	if err := r.RequireConsumed(); err != nil {
		return nil, &EncryptionError{Op: "FromBytes", Err: err}
	}
	return &e, nil
}

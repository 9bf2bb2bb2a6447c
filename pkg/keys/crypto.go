package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

func newSHA256() hash.Hash { return sha256.New() }

// DeriveSecret runs HKDF-SHA256 over ikm with the given salt and info,
// producing a Secret. Every KDF use in tracebox - the public/private root
// secret and pkg/trace's password-derived key - goes through this
// function so there is exactly one KDF construction in the codebase.
func DeriveSecret(ikm, salt, info []byte) (Secret, error) {
	kdf := hkdf.New(newSHA256, ikm, salt, info)
	var s Secret
	if _, err := io.ReadFull(kdf, s[:]); err != nil {
		return Secret{}, errorf("DeriveSecret", "read hkdf output: %w", err)
	}
	return s, nil
}

// HashBytes computes the BLAKE2b-256 digest of the concatenation of parts.
// Every content-addressing hash in tracebox goes through this function with
// domain-separated inputs assembled by pkg/domain; nothing hashes raw
// attacker-controlled bytes directly.
func HashBytes(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key, and we pass nil.
		panic("keys: blake2b.New256(nil) failed: " + err.Error())
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Identity is a writer's signing keypair: the Shard published as a record's
// owner and the PrivateKey used to authorize writes to that record.
type Identity struct {
	shard Shard
	key   PrivateKey
}

// RandomIdentity generates a fresh ed25519 keypair and wraps it as an
// Identity.
func RandomIdentity() (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, errorf("RandomIdentity", "generate keypair: %w", err)
	}
	return NewIdentity(pub, priv)
}

// NewIdentity wraps an existing ed25519 keypair as an Identity, after
// checking that the private key's embedded public half matches pub. This is
// the Go equivalent of original_source's Identity::new consistency check.
func NewIdentity(pub ed25519.PublicKey, priv ed25519.PrivateKey) (Identity, error) {
	if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
		return Identity{}, errorf("NewIdentity", "%w: wrong key size", ErrInvalidKeypair)
	}
	embedded := priv.Public().(ed25519.PublicKey)
	if !embedded.Equal(pub) {
		return Identity{}, errorf("NewIdentity", "%w: public key does not match private key", ErrInvalidKeypair)
	}
	var id Identity
	copy(id.shard[:], pub)
	copy(id.key[:], priv)
	return id, nil
}

// Shard returns the identity's public record-owner key.
func (id Identity) Shard() Shard { return id.shard }

// PrivateKey returns the identity's signing key.
func (id Identity) PrivateKey() PrivateKey { return id.key }

// Sign returns the ed25519 signature of payload under this identity's
// private key.
func (id Identity) Sign(payload []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(id.key[:]), payload)
}

// Verify checks a signature produced by Sign against shard's public key.
func Verify(shard Shard, payload, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(shard[:]), payload, sig)
}

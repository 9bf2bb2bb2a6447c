// Package keys implements the cryptographic primitives adapter and the
// fixed-width key types shared across tracebox: a writer's signing identity
// (Shard/PrivateKey), the password-derived or random symmetric Secret, the
// content-addressing Hash, and the opaque RecordKey handed back by a
// dht.Network.
//
// Every type here is a fixed-width byte array wrapped in a distinct Go type
// (32 bytes, except PrivateKey, which holds the full 64-byte ed25519 private
// key) so the compiler catches a Hash passed where a Shard was expected, the same
// guarantee original_source's wrap_key_type! macro gives the Rust side.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// KeySize is the fixed width, in bytes, of every key type in this package
// except PrivateKey, which is ed25519.PrivateKeySize (64) bytes.
const KeySize = 32

// Shard identifies the writer that owns a record: the ed25519 public half
// of a signing keypair.
type Shard [KeySize]byte

// PrivateKey is the ed25519 private half of a signing keypair. It is never
// written to the wire; only its matching Shard is.
type PrivateKey [ed25519.PrivateKeySize]byte

// Secret is a symmetric key used to seal an Encrypted envelope. It is either
// generated at random or derived with DeriveSecret (root secrets, and the
// password-derived key pkg/trace uses for a Protected Access).
type Secret [KeySize]byte

// Hash is a BLAKE2b-256 digest computed by HashBytes. pkg/domain derives the
// domain-separated hashes that References carry; schema tags and record
// keys hash their inputs directly.
type Hash [KeySize]byte

// RecordKey is the opaque handle a dht.Network returns for an open or
// created record. Its byte layout is network-specific; callers must treat
// it as opaque and round-trip it through the Network that produced it.
type RecordKey [KeySize]byte

func (k PrivateKey) Bytes() []byte { return k[:] }
func (s Shard) Bytes() []byte { return s[:] }
func (h Hash) Bytes() []byte  { return h[:] }
func (k RecordKey) Bytes() []byte { return k[:] }
func (s Secret) Bytes() []byte { return s[:] }

func (s Shard) String() string     { return base58.Encode(s[:]) }
func (h Hash) String() string      { return base58.Encode(h[:]) }
func (k RecordKey) String() string { return base58.Encode(k[:]) }

// ShardFromBytes constructs a Shard from exactly KeySize bytes.
func ShardFromBytes(b []byte) (Shard, error) {
	var s Shard
	if len(b) != KeySize {
		return s, errorf("ShardFromBytes", "%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// HashFromBytes constructs a Hash from exactly KeySize bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != KeySize {
		return h, errorf("HashFromBytes", "%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// RecordKeyFromBytes constructs a RecordKey from exactly KeySize bytes.
func RecordKeyFromBytes(b []byte) (RecordKey, error) {
	var k RecordKey
	if len(b) != KeySize {
		return k, errorf("RecordKeyFromBytes", "%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// SecretFromBytes constructs a Secret from exactly KeySize bytes.
func SecretFromBytes(b []byte) (Secret, error) {
	var s Secret
	if len(b) != KeySize {
		return s, errorf("SecretFromBytes", "%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// ParseShard decodes a base58-encoded Shard, as produced by Shard.String.
func ParseShard(s string) (Shard, error) {
	b := base58.Decode(s)
	if len(b) != KeySize {
		return Shard{}, errorf("ParseShard", "%w: %q", ErrInvalidEncoding, s)
	}
	return ShardFromBytes(b)
}

// ParseHash decodes a base58-encoded Hash, as produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	b := base58.Decode(s)
	if len(b) != KeySize {
		return Hash{}, errorf("ParseHash", "%w: %q", ErrInvalidEncoding, s)
	}
	return HashFromBytes(b)
}

// RandomSecret returns a fresh uniformly random Secret, suitable for sealing
// a FragmentRecord or an unprotected Access secret.
func RandomSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return Secret{}, errorf("RandomSecret", "read random: %w", err)
	}
	return s, nil
}

// Package domain implements content-addressed Reference[D] handles and the
// four domains tracebox hashes into: Content, Index, Root, and Links. Every
// domain has a distinct magic byte and a raw-hash formula; the final hash
// written to the wire is always H(shard || H(magic) || raw_hash), so two
// domains never collide even over identical raw input.
package domain

import (
	"errors"
	"fmt"

	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// ErrMagicMismatch indicates a Reference decoded from the wire carried a
// domain magic byte that does not match the Reference's type parameter.
var ErrMagicMismatch = errors.New("domain: magic mismatch")

// Domain is a zero-sized marker type identifying one of the four hash
// domains. Reference[D] uses D purely as a compile-time tag; D's only
// runtime behavior is reporting its own magic byte.
type Domain interface {
	Magic() byte
}

// Content addresses immutable fragment payloads.
type Content struct{}

// Magic implements Domain.
func (Content) Magic() byte { return 1 }

// Index addresses index record keys.
type Index struct{}

// Magic implements Domain.
func (Index) Magic() byte { return 2 }

// Root addresses named roots, deterministic per shard and name.
type Root struct{}

// Magic implements Domain.
func (Root) Magic() byte { return 3 }

// Links addresses link-record keys.
type Links struct{}

// Magic implements Domain.
func (Links) Magic() byte { return 4 }

// finalize computes H(shard || H(magic) || rawHash), the domain-separated
// hash every Reference carries.
func finalize(shard keys.Shard, magic byte, rawHash keys.Hash) keys.Hash {
	magicDigest := keys.HashBytes([]byte{magic})
	return keys.HashBytes(shard.Bytes(), magicDigest.Bytes(), rawHash.Bytes())
}

// Reference is a domain-tagged content address: the shard it belongs to,
// and the domain-separated hash identifying it within that shard. D pins
// the domain at compile time; decoding checks the domain's magic byte at
// runtime, reproducing original_source's phantom-typed Reference<D>.
type Reference[D Domain] struct {
	shard keys.Shard
	hash  keys.Hash
}

// Shard returns the reference's owning shard.
func (r Reference[D]) Shard() keys.Shard { return r.shard }

// Hash returns the reference's domain-separated hash.
func (r Reference[D]) Hash() keys.Hash { return r.hash }

// String returns the reference as shard and hash joined by a slash, each
// base58-encoded.
func (r Reference[D]) String() string {
	return r.shard.String() + "/" + r.hash.String()
}

// EncodeTo writes the reference as its domain's magic byte, the shard, and
// the hash.
func (r Reference[D]) EncodeTo(w *wire.Writer) {
	var d D
	w.WriteByte(d.Magic())
	w.WriteFixed(r.shard.Bytes(), keys.KeySize)
	w.WriteFixed(r.hash.Bytes(), keys.KeySize)
}

// DecodeFrom reads a reference previously written by EncodeTo, failing with
// ErrMagicMismatch if the encoded domain does not match D.
func (r *Reference[D]) DecodeFrom(rd *wire.Reader) error {
	var d D
	magic, err := rd.ReadByte()
	if err != nil {
		return err
	}
	if magic != d.Magic() {
		return fmt.Errorf("%w: got %d want %d", ErrMagicMismatch, magic, d.Magic())
	}
	shardBytes, err := rd.ReadFixed(keys.KeySize)
	if err != nil {
		return err
	}
	hashBytes, err := rd.ReadFixed(keys.KeySize)
	if err != nil {
		return err
	}
	shard, err := keys.ShardFromBytes(shardBytes)
	if err != nil {
		return err
	}
	hash, err := keys.HashFromBytes(hashBytes)
	if err != nil {
		return err
	}
	r.shard = shard
	r.hash = hash
	return nil
}

// NewContentReference computes a Content reference over a fragment's sealed
// bytes: raw_hash is the hash of the encrypted payload itself.
func NewContentReference(shard keys.Shard, sealed []byte) Reference[Content] {
	raw := keys.HashBytes(sealed)
	return Reference[Content]{shard: shard, hash: finalize(shard, Content{}.Magic(), raw)}
}

// NewIndexReference computes a random Index reference: new index records
// are addressed by a fresh random hash rather than by content, since their
// whole point is to be mutable.
func NewIndexReference(shard keys.Shard) (Reference[Index], error) {
	raw, err := randomHash()
	if err != nil {
		return Reference[Index]{}, err
	}
	return Reference[Index]{shard: shard, hash: finalize(shard, Index{}.Magic(), raw)}, nil
}

// NewLinksReference computes a random Links reference, for the same reason
// as NewIndexReference: a links record is mutable and not content-addressed.
func NewLinksReference(shard keys.Shard) (Reference[Links], error) {
	raw, err := randomHash()
	if err != nil {
		return Reference[Links]{}, err
	}
	return Reference[Links]{shard: shard, hash: finalize(shard, Links{}.Magic(), raw)}, nil
}

// NewRootReference computes the deterministic Root reference for a named
// root under shard: raw_hash is the hash of the name's text, so the same
// (shard, name) pair always resolves to the same reference.
func NewRootReference(shard keys.Shard, name string) Reference[Root] {
	raw := keys.HashBytes([]byte(name))
	return Reference[Root]{shard: shard, hash: finalize(shard, Root{}.Magic(), raw)}
}

func randomHash() (keys.Hash, error) {
	s, err := keys.RandomSecret()
	if err != nil {
		return keys.Hash{}, err
	}
	return keys.HashFromBytes(s.Bytes())
}

// Package trace implements Trace[K] and UnlockedTrace[K], the portable
// handles callers exchange to locate and unlock a record, and Access, the
// Locked/Unlocked/Protected state machine that guards a trace's secret.
package trace

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// Kind is a zero-sized marker type identifying which record type a Trace
// points at. Its only runtime behavior is reporting its own magic byte,
// the same phantom-type-with-a-tag-check translation pkg/domain uses for
// Reference[D].
type Kind interface {
	Magic() byte
}

// FragmentKind tags a Trace pointing at a FragmentRecord.
type FragmentKind struct{}

// Magic implements Kind.
func (FragmentKind) Magic() byte { return 1 }

// IndexKind tags a Trace pointing at an IndexRecord.
type IndexKind struct{}

// Magic implements Kind.
func (IndexKind) Magic() byte { return 2 }

// LinksKind tags a Trace pointing at a LinksRecord.
type LinksKind struct{}

// Magic implements Kind.
func (LinksKind) Magic() byte { return 3 }

// Trace is a portable pointer to a record: the record's key and the Access
// controlling whether the secret needed to decrypt it travels along with
// the trace. K pins which record type the trace addresses.
type Trace[K Kind] struct {
	key    keys.RecordKey
	access Access
}

// New returns a Trace over key with the given Access.
func New[K Kind](key keys.RecordKey, access Access) Trace[K] {
	return Trace[K]{key: key, access: access}
}

// Key returns the trace's record key.
func (t Trace[K]) Key() keys.RecordKey { return t.key }

// Access returns the trace's access control.
func (t Trace[K]) Access() Access { return t.access }

// TryOpen recovers the trace's secret, given the shard that owns the
// underlying record and (if the trace is Protected) the password that
// unlocks it.
func (t Trace[K]) TryOpen(shard keys.Shard, password string) (UnlockedTrace[K], error) {
	secret, err := t.access.TryOpen(shard, password)
	if err != nil {
		return UnlockedTrace[K]{}, err
	}
	return UnlockedTrace[K]{key: t.key, secret: secret}, nil
}

// EncodeTo writes the trace as its kind's magic byte, the record key, and
// the access.
func (t Trace[K]) EncodeTo(w *wire.Writer) {
	var k K
	w.WriteByte(k.Magic())
	w.WriteFixed(t.key.Bytes(), keys.KeySize)
	t.access.EncodeTo(w)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t Trace[K]) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter()
	t.EncodeTo(w)
	return w.Bytes(), nil
}

// DecodeFrom reads a trace previously written by EncodeTo, failing with
// ErrInvalidMagic if the encoded kind does not match K.
func (t *Trace[K]) DecodeFrom(r *wire.Reader) error {
	var k K
	magic, err := r.ReadByte()
	if err != nil {
		return err
	}
	if magic != k.Magic() {
		return &TraceError{Op: "DecodeFrom", Err: ErrInvalidMagic}
	}
	keyBytes, err := r.ReadFixed(keys.KeySize)
	if err != nil {
		return err
	}
	key, err := keys.RecordKeyFromBytes(keyBytes)
	if err != nil {
		return err
	}
	var access Access
	if err := access.DecodeFrom(r); err != nil {
		return err
	}
	t.key = key
	t.access = access
	return nil
}

// String returns the trace base58-encoded, as exchanged between users.
func (t Trace[K]) String() string {
	w := wire.NewWriter()
	t.EncodeTo(w)
	return base58.Encode(w.Bytes())
}

// Parse decodes a Trace previously produced by String.
func Parse[K Kind](s string) (Trace[K], error) {
	b := base58.Decode(s)
	if len(b) == 0 {
		return Trace[K]{}, &TraceError{Op: "Parse", Err: ErrInvalidMagic}
	}
	r := wire.NewReader(b)
	var t Trace[K]
	if err := t.DecodeFrom(r); err != nil {
		return Trace[K]{}, &TraceError{Op: "Parse", Err: err}
	}
	if err := r.RequireConsumed(); err != nil {
		return Trace[K]{}, &TraceError{Op: "Parse", Err: err}
	}
	return t, nil
}

// UnlockedTrace is a Trace with its secret already recovered. It is never
// written to the wire; it exists only in memory for the duration of a
// record open/create operation.
type UnlockedTrace[K Kind] struct {
	key    keys.RecordKey
	secret keys.Secret
}

// NewUnlocked returns an UnlockedTrace over key with secret.
func NewUnlocked[K Kind](key keys.RecordKey, secret keys.Secret) UnlockedTrace[K] {
	return UnlockedTrace[K]{key: key, secret: secret}
}

// Key returns the unlocked trace's record key.
func (u UnlockedTrace[K]) Key() keys.RecordKey { return u.key }

// Secret returns the unlocked trace's secret.
func (u UnlockedTrace[K]) Secret() keys.Secret { return u.secret }

// Lock re-wraps the unlocked trace as a Trace with an Unlocked access,
// suitable for handing back to a caller that wants the secret to travel
// with the trace in the clear.
func (u UnlockedTrace[K]) Lock() Trace[K] {
	return Trace[K]{key: u.key, access: Unlocked(u.secret)}
}

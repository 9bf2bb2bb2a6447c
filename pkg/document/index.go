package document

import (
	"context"
	"errors"

	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/envelope"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

// IndexRecord is the mutable metadata record at the center of a document:
// its own display name, and optional pointers to the fragment it describes
// and the links attached to it. All of its state lives sealed at subkey 0.
type IndexRecord struct {
	rec    *dht.Record
	secret keys.Secret
}

// CreateIndex creates a new IndexRecord owned by identity, failing with
// ErrUnauthorized if identity's shard does not match meta.Shard.
func CreateIndex(ctx context.Context, net dht.Network, identity keys.Identity, meta IndexMetadata) (*IndexRecord, error) {
	if identity.Shard() != meta.Shard {
		return nil, errorf("CreateIndex", "%w", ErrUnauthorized)
	}
	secret, err := keys.RandomSecret()
	if err != nil {
		return nil, errorf("CreateIndex", "%w", err)
	}
	rec, err := dht.Create(ctx, net, indexSchema(), identity)
	if err != nil {
		return nil, errorf("CreateIndex", "%w", err)
	}
	ir := &IndexRecord{rec: rec, secret: secret}
	if err := ir.writeMeta(ctx, identity, meta); err != nil {
		return nil, errorf("CreateIndex", "%w", err)
	}
	return ir, nil
}

// OpenIndex opens an existing IndexRecord addressed by t, failing with
// ErrLockedTrace if t's Access cannot be opened with password.
func OpenIndex(ctx context.Context, net dht.Network, t trace.Trace[trace.IndexKind], shard keys.Shard, password string) (*IndexRecord, error) {
	unlocked, err := t.TryOpen(shard, password)
	if errors.Is(err, trace.ErrLocked) {
		return nil, errorf("OpenIndex", "%w: %w", ErrLockedTrace, err)
	}
	if err != nil {
		return nil, errorf("OpenIndex", "%w", err)
	}
	rec, err := dht.Open(ctx, net, unlocked.Key())
	if err != nil {
		return nil, errorf("OpenIndex", "%w", err)
	}
	return &IndexRecord{rec: rec, secret: unlocked.Secret()}, nil
}

func openIndexAt(rec *dht.Record, secret keys.Secret) *IndexRecord {
	return &IndexRecord{rec: rec, secret: secret}
}

// Meta fetches and decrypts the record's current metadata.
func (ir *IndexRecord) Meta(ctx context.Context) (IndexMetadata, error) {
	e, err := ir.rec.Read(ctx, 0, false)
	if err != nil {
		return IndexMetadata{}, errorf("Meta", "%w", err)
	}
	if e == nil {
		return IndexMetadata{}, errorf("Meta", "%w", dht.ErrMissingData)
	}
	plaintext, err := e.Open(ir.secret)
	if err != nil {
		return IndexMetadata{}, errorf("Meta", "%w", err)
	}
	var meta IndexMetadata
	if err := meta.UnmarshalBinary(plaintext); err != nil {
		return IndexMetadata{}, errorf("Meta", "%w", err)
	}
	return meta, nil
}

// UpdateMeta overwrites the record's metadata, failing with ErrUnauthorized
// if identity does not own the record.
func (ir *IndexRecord) UpdateMeta(ctx context.Context, identity keys.Identity, meta IndexMetadata) error {
	if identity.Shard() != ir.rec.Shard() {
		return errorf("UpdateMeta", "%w", ErrUnauthorized)
	}
	if meta.Shard != ir.rec.Shard() {
		return errorf("UpdateMeta", "%w", ErrUnauthorized)
	}
	if err := ir.writeMeta(ctx, identity, meta); err != nil {
		return errorf("UpdateMeta", "%w", err)
	}
	return nil
}

func (ir *IndexRecord) writeMeta(ctx context.Context, identity keys.Identity, meta IndexMetadata) error {
	metaBytes, err := meta.MarshalBinary()
	if err != nil {
		return err
	}
	sealed, err := envelope.Seal(ir.secret, metaBytes)
	if err != nil {
		return err
	}
	return ir.rec.Write(ctx, sealed, 0, identity)
}

// TryFetchLinks opens the LinksRecord attached to this index, if any,
// returning ErrNoLinks if the current metadata carries no links reference.
func (ir *IndexRecord) TryFetchLinks(ctx context.Context, net dht.Network) (*LinksRecord, error) {
	meta, err := ir.Meta(ctx)
	if err != nil {
		return nil, errorf("TryFetchLinks", "%w", err)
	}
	if meta.Links == nil {
		return nil, errorf("TryFetchLinks", "%w", ErrNoLinks)
	}
	lr, err := OpenLinks(ctx, net, *meta.Links, ir.rec.Shard(), "")
	if err != nil {
		return nil, errorf("TryFetchLinks", "%w", err)
	}
	return lr, nil
}

// Trace returns a portable Trace over this record, with an Unlocked Access
// carrying the secret in the clear.
func (ir *IndexRecord) Trace() trace.Trace[trace.IndexKind] {
	return trace.New[trace.IndexKind](ir.rec.Key(), trace.Unlocked(ir.secret))
}

// Close releases local resources held for the record.
func (ir *IndexRecord) Close(ctx context.Context) error {
	return ir.rec.Close(ctx)
}

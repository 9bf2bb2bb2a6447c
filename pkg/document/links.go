package document

import (
	"context"
	"errors"

	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/envelope"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

// LinksRecord holds a shard's outgoing links to other indexes, one per
// subkey. Subkey 0 is permanently reserved (it belongs to the record's own
// bookkeeping, not to a link) and is never returned by FetchLinks or
// allocated by AddLink.
type LinksRecord struct {
	rec    *dht.Record
	secret keys.Secret
}

// CreateLinks creates a new, empty LinksRecord owned by identity.
func CreateLinks(ctx context.Context, net dht.Network, identity keys.Identity) (*LinksRecord, error) {
	secret, err := keys.RandomSecret()
	if err != nil {
		return nil, errorf("CreateLinks", "%w", err)
	}
	rec, err := dht.Create(ctx, net, linksSchema(), identity)
	if err != nil {
		return nil, errorf("CreateLinks", "%w", err)
	}
	return &LinksRecord{rec: rec, secret: secret}, nil
}

// OpenLinks opens an existing LinksRecord addressed by t.
func OpenLinks(ctx context.Context, net dht.Network, t trace.Trace[trace.LinksKind], shard keys.Shard, password string) (*LinksRecord, error) {
	unlocked, err := t.TryOpen(shard, password)
	if errors.Is(err, trace.ErrLocked) {
		return nil, errorf("OpenLinks", "%w: %w", ErrLockedTrace, err)
	}
	if err != nil {
		return nil, errorf("OpenLinks", "%w", err)
	}
	rec, err := dht.Open(ctx, net, unlocked.Key())
	if err != nil {
		return nil, errorf("OpenLinks", "%w", err)
	}
	return &LinksRecord{rec: rec, secret: unlocked.Secret()}, nil
}

// FetchLinks reads and decrypts every occupied subkey, returning the link
// entries in ascending subkey order.
func (lr *LinksRecord) FetchLinks(ctx context.Context, forceRefresh bool) ([]LinkEntry, error) {
	values, err := lr.rec.ReadAll(ctx, dht.MaxSubkeys, forceRefresh)
	if err != nil {
		return nil, errorf("FetchLinks", "%w", err)
	}
	entries := make([]LinkEntry, 0, len(values))
	for _, v := range values {
		plaintext, err := v.Value.Open(lr.secret)
		if err != nil {
			return nil, errorf("FetchLinks", "%w", err)
		}
		var entry LinkEntry
		if err := entry.UnmarshalBinary(plaintext); err != nil {
			return nil, errorf("FetchLinks", "%w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AddLink seals entry and writes it to the first unused subkey, retrying
// once against a forced network refresh if another writer raced it onto
// the subkey it optimistically picked.
func (lr *LinksRecord) AddLink(ctx context.Context, identity keys.Identity, entry LinkEntry) (uint16, error) {
	subkey, err := lr.rec.FindUnused(ctx, dht.MaxSubkeys, false)
	if err != nil {
		return 0, errorf("AddLink", "%w", err)
	}
	unused, err := lr.rec.IsUnused(ctx, subkey)
	if err != nil {
		return 0, errorf("AddLink", "%w", err)
	}
	if !unused {
		subkey, err = lr.rec.FindUnused(ctx, dht.MaxSubkeys, true)
		if err != nil {
			if errors.Is(err, dht.ErrNoUnusedSubkey) {
				return 0, errorf("AddLink", "%w", dht.ErrNoUnusedSubkey)
			}
			return 0, errorf("AddLink", "%w", err)
		}
	}
	entryBytes, err := entry.MarshalBinary()
	if err != nil {
		return 0, errorf("AddLink", "%w", err)
	}
	sealed, err := envelope.Seal(lr.secret, entryBytes)
	if err != nil {
		return 0, errorf("AddLink", "%w", err)
	}
	if err := lr.rec.Write(ctx, sealed, subkey, identity); err != nil {
		return 0, errorf("AddLink", "%w", err)
	}
	return subkey, nil
}

// RemoveLink tombstones subkey by writing a null payload to it.
func (lr *LinksRecord) RemoveLink(ctx context.Context, identity keys.Identity, subkey uint16) error {
	if err := lr.rec.WriteNull(ctx, subkey, identity); err != nil {
		return errorf("RemoveLink", "%w", err)
	}
	return nil
}

// Trace returns a portable Trace over this record, with an Unlocked Access
// carrying the secret in the clear.
func (lr *LinksRecord) Trace() trace.Trace[trace.LinksKind] {
	return trace.New[trace.LinksKind](lr.rec.Key(), trace.Unlocked(lr.secret))
}

// Close releases local resources held for the record.
func (lr *LinksRecord) Close(ctx context.Context) error {
	return lr.rec.Close(ctx)
}

package document

import (
	"context"
	"errors"

	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/domain"
	"github.com/tracebox-dev/tracebox/pkg/envelope"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

// FragmentRecord is an immutable, content-addressed blob: the opaque bytes
// of a single fragment, sealed under a per-record secret and chunked across
// as many subkeys as the sealed payload needs.
type FragmentRecord struct {
	rec       *dht.Record
	secret    keys.Secret
	reference domain.Reference[domain.Content]
}

// CreateFragment seals fragment under a fresh random secret and stores it,
// chunked, in a record keyed to the sealed ciphertext's content hash: two
// writes of the same ciphertext under the same shard resolve to the same
// record. Each call seals under a new random secret and nonce, so calling
// it twice with the same fragment produces two distinct records.
func CreateFragment(ctx context.Context, net dht.Network, identity keys.Identity, fragment []byte) (*FragmentRecord, error) {
	secret, err := keys.RandomSecret()
	if err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	sealed, err := envelope.Seal(secret, fragment)
	if err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	sealedBytes, err := sealed.MarshalBinary()
	if err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	reference := domain.NewContentReference(identity.Shard(), sealedBytes)
	schema := fragmentSchemaFor(reference.Hash())
	key, err := dht.BuildKey(ctx, net, schema, identity.Shard())
	if err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	rec, err := dht.CreateAt(ctx, net, key, schema, identity)
	if err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	if err := rec.WriteChunked(ctx, sealed, identity); err != nil {
		return nil, errorf("CreateFragment", "%w", err)
	}
	return &FragmentRecord{
		rec:       rec,
		secret:    secret,
		reference: reference,
	}, nil
}

// OpenFragment opens an existing FragmentRecord addressed by t, failing
// with ErrLockedTrace if t's Access cannot be opened with password.
func OpenFragment(ctx context.Context, net dht.Network, t trace.Trace[trace.FragmentKind], shard keys.Shard, password string) (*FragmentRecord, error) {
	unlocked, err := t.TryOpen(shard, password)
	if errors.Is(err, trace.ErrLocked) {
		return nil, errorf("OpenFragment", "%w: %w", ErrLockedTrace, err)
	}
	if err != nil {
		return nil, errorf("OpenFragment", "%w", err)
	}
	rec, err := dht.Open(ctx, net, unlocked.Key())
	if err != nil {
		return nil, errorf("OpenFragment", "%w", err)
	}
	return &FragmentRecord{rec: rec, secret: unlocked.Secret()}, nil
}

// Load fetches, decrypts, and returns the fragment's plaintext bytes.
func (fr *FragmentRecord) Load(ctx context.Context) ([]byte, error) {
	e, err := fr.rec.ReadChunked(ctx, false)
	if err != nil {
		return nil, errorf("Load", "%w", err)
	}
	plaintext, err := e.Open(fr.secret)
	if err != nil {
		return nil, errorf("Load", "%w", err)
	}
	return plaintext, nil
}

// Trace returns a portable Trace over this record, with an Unlocked Access
// carrying the secret in the clear.
func (fr *FragmentRecord) Trace() trace.Trace[trace.FragmentKind] {
	return trace.New[trace.FragmentKind](fr.rec.Key(), trace.Unlocked(fr.secret))
}

// Reference returns the record's content-addressed identity. It is the
// zero Reference if the FragmentRecord was opened rather than created,
// since the sealed bytes (and therefore the content hash) are not known
// until Load is called.
func (fr *FragmentRecord) Reference() domain.Reference[domain.Content] {
	return fr.reference
}

// Close releases local resources held for the record.
func (fr *FragmentRecord) Close(ctx context.Context) error {
	return fr.rec.Close(ctx)
}

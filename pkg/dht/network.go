// Package dht implements the record layer: the Network adapter interface
// that any distributed-hash-table backend must satisfy, and Record, the
// stateful helper wrapping a single open record with chunked read/write,
// refresh, and unused-subkey scanning.
//
// Concurrency: Network implementations MUST be safe for concurrent use by
// multiple goroutines. Record's batch helpers call into a Network
// concurrently across subkeys via errgroup and expect the implementation to
// serialize internally if it needs to.
//
// Cancellation: every Network method takes a context.Context and must
// return promptly once it is done; Record propagates ctx.Err() as a
// NetworkError when a fan-out is cancelled mid-flight.
package dht

import (
	"context"

	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// MaxSubkeys is the largest number of subkeys a schema may request.
const MaxSubkeys = 256

// SubkeySizeBytes is the maximum payload size of a single subkey value;
// Record.WriteChunked splits larger payloads across multiple subkeys of
// exactly this size (the last chunk may be shorter).
const SubkeySizeBytes = 4096

// UnsetSeq is the sentinel sequence number reported for a subkey that has
// never been written, matching original_source's ValueSubkey::MAX.
const UnsetSeq = ^uint32(0)

// Schema describes the shape of a record to be created: how many subkeys it
// may hold, and the opaque tag value original_source stores as the schema's
// non-writing "tag member" (a Hash identifying the record's logical type).
type Schema struct {
	MaxSubkeys uint16
	Tag        keys.Hash
}

// Scope selects how far InspectRecord looks before reporting subkey
// sequence numbers.
type Scope int

const (
	// ScopeLocal reports only what is cached locally.
	ScopeLocal Scope = iota
	// ScopeNetwork forces a network round trip before reporting.
	ScopeNetwork
)

// Value is a single subkey's payload and the sequence number it was written
// with.
type Value struct {
	Data []byte
	Seq  uint32
}

// InspectReport reports the network's authoritative sequence number for
// each subkey in a contiguous range. A sequence number of UnsetSeq means
// "never written". Record keeps its own cache of previously observed
// sequence numbers (see Record.Refresh) - a Network implementation only
// needs to report what it itself considers current, using Scope to decide
// whether that means its own cache or a fresh round trip.
type InspectReport struct {
	Seqs []uint32
}

// Descriptor identifies an open record: its key, the shard that owns it,
// and the schema tag it was created with.
type Descriptor struct {
	Key   keys.RecordKey
	Owner keys.Shard
	Tag   keys.Hash
}

// Network is the adapter interface a distributed-hash-table backend must
// implement to back the record layer. pkg/dht/memnet provides an in-memory
// reference implementation.
type Network interface {
	// CreateRecord allocates a new record at a fresh, implementation-chosen
	// key, owned by writer's Shard.
	CreateRecord(ctx context.Context, schema Schema, writer keys.Identity) (Descriptor, error)

	// CreateRecordAt allocates a new record at an explicit key, owned by
	// writer's Shard. It is idempotent: calling it twice with the same key
	// returns the existing record rather than erroring. Used for named
	// roots, where the key must be reproducible from (schema, shard) via
	// DeriveRecordKey rather than chosen freshly.
	CreateRecordAt(ctx context.Context, key keys.RecordKey, schema Schema, writer keys.Identity) (Descriptor, error)

	// DeriveRecordKey computes the deterministic record key for a named
	// root addressed by shard and the schema's tag, without creating
	// anything.
	DeriveRecordKey(ctx context.Context, schema Schema, shard keys.Shard) (keys.RecordKey, error)

	// OpenRecord attaches to an existing record by key, returning its
	// descriptor.
	OpenRecord(ctx context.Context, key keys.RecordKey) (Descriptor, error)

	// GetValue reads a single subkey. forceRefresh bypasses any local cache
	// and performs a network round trip. A nil Value with a nil error means
	// the subkey has never been written.
	GetValue(ctx context.Context, key keys.RecordKey, subkey uint16, forceRefresh bool) (*Value, error)

	// SetValue writes a single subkey, signed by writer. Implementations
	// must reject the write with ErrRecordWriteFailed if writer's Shard
	// does not own the record.
	SetValue(ctx context.Context, key keys.RecordKey, subkey uint16, data []byte, writer keys.Identity) error

	// InspectRecord reports sequence numbers for subkeys in [start, end)
	// without fetching their data.
	InspectRecord(ctx context.Context, key keys.RecordKey, start, end uint16, scope Scope) (*InspectReport, error)

	// CloseRecord releases local resources associated with key. It is safe
	// to call on a key that was never opened.
	CloseRecord(ctx context.Context, key keys.RecordKey) error
}

package dht

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tracebox-dev/tracebox/pkg/envelope"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

// Record is a handle to one open record: its key, owning shard, schema tag,
// and the Network backing it. All read/write/refresh operations below go
// through the Network and are safe for concurrent use.
//
// Record keeps its own cache of the last sequence number it observed per
// subkey, used by Refresh to detect that the network has moved past what
// this handle last saw - a Network implementation only reports its own
// current state, not a diff against some other caller's last look.
type Record struct {
	net  Network
	desc Descriptor

	mu       sync.Mutex
	seqCache map[uint16]uint32
}

// Create allocates a new record under writer's identity with the given
// schema and returns a handle to it.
func Create(ctx context.Context, net Network, schema Schema, writer keys.Identity) (*Record, error) {
	desc, err := net.CreateRecord(ctx, schema, writer)
	if err != nil {
		return nil, netErrorf("Create", "%w", err)
	}
	return &Record{net: net, desc: desc, seqCache: make(map[uint16]uint32)}, nil
}

// CreateAt allocates a new record at an explicit, previously-derived key
// (see BuildKey), used for named roots.
func CreateAt(ctx context.Context, net Network, key keys.RecordKey, schema Schema, writer keys.Identity) (*Record, error) {
	desc, err := net.CreateRecordAt(ctx, key, schema, writer)
	if err != nil {
		return nil, netErrorf("CreateAt", "%w", err)
	}
	return &Record{net: net, desc: desc, seqCache: make(map[uint16]uint32)}, nil
}

// Open attaches to an existing record by key. Per original_source's open,
// it retries exactly once on failure before giving up.
func Open(ctx context.Context, net Network, key keys.RecordKey) (*Record, error) {
	desc, err := net.OpenRecord(ctx, key)
	if err != nil {
		desc, err = net.OpenRecord(ctx, key)
		if err != nil {
			return nil, netErrorf("Open", "%w", err)
		}
	}
	return &Record{net: net, desc: desc, seqCache: make(map[uint16]uint32)}, nil
}

// BuildKey derives the record key that would address an existing record for
// shard under schema, without opening it.
func BuildKey(ctx context.Context, net Network, schema Schema, shard keys.Shard) (keys.RecordKey, error) {
	key, err := net.DeriveRecordKey(ctx, schema, shard)
	if err != nil {
		return keys.RecordKey{}, netErrorf("BuildKey", "%w", err)
	}
	return key, nil
}

// Shard returns the record's owning shard.
func (r *Record) Shard() keys.Shard { return r.desc.Owner }

// Tag returns the record's schema tag.
func (r *Record) Tag() keys.Hash { return r.desc.Tag }

// Key returns the record's opaque key.
func (r *Record) Key() keys.RecordKey { return r.desc.Key }

// ReadRaw reads subkey's bytes, returning (nil, nil) if it has never been
// written.
func (r *Record) ReadRaw(ctx context.Context, subkey uint16, forceRefresh bool) ([]byte, error) {
	v, err := r.net.GetValue(ctx, r.desc.Key, subkey, forceRefresh)
	if err != nil {
		return nil, netErrorf("ReadRaw", "%w", err)
	}
	if v == nil {
		return nil, nil
	}
	return v.Data, nil
}

// Read reads subkey and decodes it as an Encrypted envelope, returning nil
// if the subkey has never been written or has been tombstoned by
// WriteNull.
func (r *Record) Read(ctx context.Context, subkey uint16, forceRefresh bool) (*envelope.Encrypted, error) {
	raw, err := r.ReadRaw(ctx, subkey, forceRefresh)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	e, err := envelope.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// WriteRaw writes data to subkey, signed by writer.
func (r *Record) WriteRaw(ctx context.Context, data []byte, subkey uint16, writer keys.Identity) error {
	if err := r.net.SetValue(ctx, r.desc.Key, subkey, data, writer); err != nil {
		return netErrorf("WriteRaw", "%w", err)
	}
	return nil
}

// Write encodes e and writes it to subkey, signed by writer.
func (r *Record) Write(ctx context.Context, e *envelope.Encrypted, subkey uint16, writer keys.Identity) error {
	data, err := e.MarshalBinary()
	if err != nil {
		return err
	}
	return r.WriteRaw(ctx, data, subkey, writer)
}

// WriteNull tombstones subkey: it is written, but with an empty payload, so
// IsUnused reports it as used while Read reports it as absent.
func (r *Record) WriteNull(ctx context.Context, subkey uint16, writer keys.Identity) error {
	return r.WriteRaw(ctx, nil, subkey, writer)
}

// IsUnused reports whether subkey has never been written, i.e. its sequence
// number is still UnsetSeq.
func (r *Record) IsUnused(ctx context.Context, subkey uint16) (bool, error) {
	report, err := r.net.InspectRecord(ctx, r.desc.Key, subkey, subkey+1, ScopeNetwork)
	if err != nil {
		return false, netErrorf("IsUnused", "%w", err)
	}
	if len(report.Seqs) != 1 {
		return false, netErrorf("IsUnused", "%w: malformed inspect report", ErrSubkeyOutOfRange)
	}
	return report.Seqs[0] == UnsetSeq, nil
}

// FindUnused scans a record's subkeys (skipping subkey 0, which is reserved
// for record metadata) and returns the first one never written, or
// ErrNoUnusedSubkey if every subkey is occupied.
func (r *Record) FindUnused(ctx context.Context, maxSubkeys uint16, forceRefresh bool) (uint16, error) {
	scope := ScopeLocal
	if forceRefresh {
		scope = ScopeNetwork
	}
	report, err := r.net.InspectRecord(ctx, r.desc.Key, 1, maxSubkeys, scope)
	if err != nil {
		return 0, netErrorf("FindUnused", "%w", err)
	}
	for i, seq := range report.Seqs {
		if seq == UnsetSeq {
			return uint16(i) + 1, nil
		}
	}
	return 0, netErrorf("FindUnused", "%w", ErrNoUnusedSubkey)
}

// SubkeyValue pairs a subkey index with its decoded Encrypted envelope.
type SubkeyValue struct {
	Subkey uint16
	Value  *envelope.Encrypted
}

// ReadAll concurrently reads subkeys [1, maxSubkeys) and returns every one
// that has been written, sorted by subkey. Subkeys that have never been
// written or are tombstoned are silently skipped, matching
// original_source's read_all filtering out MissingData.
func (r *Record) ReadAll(ctx context.Context, maxSubkeys uint16, forceRefresh bool) ([]SubkeyValue, error) {
	results := make([]*SubkeyValue, maxSubkeys)
	g, gctx := errgroup.WithContext(ctx)
	for subkey := uint16(1); subkey < maxSubkeys; subkey++ {
		subkey := subkey
		g.Go(func() error {
			e, err := r.Read(gctx, subkey, forceRefresh)
			if err != nil {
				return err
			}
			if e != nil {
				results[subkey] = &SubkeyValue{Subkey: subkey, Value: e}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, netErrorf("ReadAll", "%w", err)
	}
	out := make([]SubkeyValue, 0, maxSubkeys)
	for _, v := range results {
		if v != nil {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subkey < out[j].Subkey })
	return out, nil
}

// Refresh fetches the network's current sequence numbers for subkeys
// [0, maxSubkeys) and compares them against what this Record last observed,
// reporting whether any subkey has advanced. The comparison baseline lives
// on the Record itself, not the Network: a Network only ever reports its
// own current state, so detecting change is this handle's job.
func (r *Record) Refresh(ctx context.Context, maxSubkeys uint16) (bool, error) {
	report, err := r.net.InspectRecord(ctx, r.desc.Key, 0, maxSubkeys, ScopeNetwork)
	if err != nil {
		return false, netErrorf("Refresh", "%w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for i, network := range report.Seqs {
		subkey := uint16(i)
		cached, known := r.seqCache[subkey]
		if network == UnsetSeq {
			continue
		}
		if !known || network > cached {
			changed = true
		}
		r.seqCache[subkey] = network
	}
	return changed, nil
}

// Close releases local resources associated with the record. It does not
// delete the record from the network.
func (r *Record) Close(ctx context.Context) error {
	if err := r.net.CloseRecord(ctx, r.desc.Key); err != nil {
		return netErrorf("Close", "%w", err)
	}
	return nil
}

// chunkCount returns the number of SubkeySizeBytes chunks needed to hold n
// bytes, with a minimum of one chunk (an empty payload still occupies
// subkey 1 as an empty chunk) so a chunked read always has something to
// concatenate.
func chunkCount(n int) uint32 {
	if n == 0 {
		return 1
	}
	return uint32(math.Ceil(float64(n) / float64(SubkeySizeBytes)))
}

// WriteChunked splits e's encoded bytes into SubkeySizeBytes-sized chunks,
// writes the chunk count to subkey 0, and fans the chunks out to subkeys
// 1..=count concurrently.
func (r *Record) WriteChunked(ctx context.Context, e *envelope.Encrypted, writer keys.Identity) error {
	payload, err := e.MarshalBinary()
	if err != nil {
		return err
	}
	count := chunkCount(len(payload))

	countBytes := []byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)}
	if err := r.WriteRaw(ctx, countBytes, 0, writer); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := uint32(0); i < count; i++ {
		i := i
		start := int(i) * SubkeySizeBytes
		end := start + SubkeySizeBytes
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[start:end]
		g.Go(func() error {
			return r.WriteRaw(gctx, chunk, uint16(i)+1, writer)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// ReadChunked reads the chunk count from subkey 0, fetches subkeys
// 1..=count concurrently, concatenates them in ascending order, and decodes
// the result as an Encrypted envelope.
func (r *Record) ReadChunked(ctx context.Context, forceRefresh bool) (*envelope.Encrypted, error) {
	countBytes, err := r.ReadRaw(ctx, 0, forceRefresh)
	if err != nil {
		return nil, err
	}
	if countBytes == nil || len(countBytes) != 4 {
		return nil, netErrorf("ReadChunked", "%w", ErrMissingData)
	}
	count := uint32(countBytes[0])<<24 | uint32(countBytes[1])<<16 | uint32(countBytes[2])<<8 | uint32(countBytes[3])

	chunks := make([][]byte, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := uint32(0); i < count; i++ {
		i := i
		g.Go(func() error {
			chunk, err := r.ReadRaw(gctx, uint16(i)+1, forceRefresh)
			if err != nil {
				return err
			}
			if chunk == nil {
				return netErrorf("ReadChunked", "%w: chunk %d", ErrMissingData, i)
			}
			chunks[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	payload := make([]byte, 0, total)
	for _, c := range chunks {
		payload = append(payload, c...)
	}
	return envelope.FromBytes(payload)
}

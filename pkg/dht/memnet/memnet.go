// Package memnet implements an in-memory dht.Network: the reference backend
// used by tracebox's own tests and by any caller that wants a dht.Network
// without standing up a real distributed hash table.
//
// Its shape is lifted from the teacher's MockSession/NewMockNetwork test
// double: a mutex-guarded in-process store, safe for concurrent goroutines,
// with no actual network round trip to simulate.
package memnet

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

type subkeyState struct {
	data []byte
	seq  uint32
}

type recordState struct {
	owner   keys.Shard
	tag     keys.Hash
	subkeys map[uint16]subkeyState
}

// Network is an in-memory dht.Network. The zero value is not usable; use
// New.
type Network struct {
	mu      sync.Mutex
	records map[keys.RecordKey]*recordState
}

// New returns an empty in-memory Network.
func New() *Network {
	return &Network{records: make(map[keys.RecordKey]*recordState)}
}

func deriveKey(schema dht.Schema, shard keys.Shard) keys.RecordKey {
	h := keys.HashBytes(shard.Bytes(), schema.Tag.Bytes())
	k, _ := keys.RecordKeyFromBytes(h.Bytes())
	return k
}

// CreateRecord implements dht.Network, allocating a fresh random key.
func (n *Network) CreateRecord(ctx context.Context, schema dht.Schema, writer keys.Identity) (dht.Descriptor, error) {
	var raw [keys.KeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return dht.Descriptor{}, err
	}
	key, err := keys.RecordKeyFromBytes(raw[:])
	if err != nil {
		return dht.Descriptor{}, err
	}
	return n.CreateRecordAt(ctx, key, schema, writer)
}

// CreateRecordAt implements dht.Network.
func (n *Network) CreateRecordAt(_ context.Context, key keys.RecordKey, schema dht.Schema, writer keys.Identity) (dht.Descriptor, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.records[key]; !exists {
		n.records[key] = &recordState{
			owner:   writer.Shard(),
			tag:     schema.Tag,
			subkeys: make(map[uint16]subkeyState),
		}
	}
	rs := n.records[key]
	return dht.Descriptor{Key: key, Owner: rs.owner, Tag: rs.tag}, nil
}

// DeriveRecordKey implements dht.Network.
func (n *Network) DeriveRecordKey(_ context.Context, schema dht.Schema, shard keys.Shard) (keys.RecordKey, error) {
	return deriveKey(schema, shard), nil
}

// OpenRecord implements dht.Network.
func (n *Network) OpenRecord(_ context.Context, key keys.RecordKey) (dht.Descriptor, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rs, ok := n.records[key]
	if !ok {
		return dht.Descriptor{}, dht.ErrRecordNotFound
	}
	return dht.Descriptor{Key: key, Owner: rs.owner, Tag: rs.tag}, nil
}

// GetValue implements dht.Network.
func (n *Network) GetValue(_ context.Context, key keys.RecordKey, subkey uint16, _ bool) (*dht.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rs, ok := n.records[key]
	if !ok {
		return nil, dht.ErrRecordNotFound
	}
	sk, ok := rs.subkeys[subkey]
	if !ok {
		return nil, nil
	}
	data := make([]byte, len(sk.data))
	copy(data, sk.data)
	return &dht.Value{Data: data, Seq: sk.seq}, nil
}

// SetValue implements dht.Network. It rejects the write unless writer's
// Shard owns the record, reproducing a real DHT's signature check.
func (n *Network) SetValue(_ context.Context, key keys.RecordKey, subkey uint16, data []byte, writer keys.Identity) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	rs, ok := n.records[key]
	if !ok {
		return dht.ErrRecordNotFound
	}
	if rs.owner != writer.Shard() {
		return dht.ErrRecordWriteFailed
	}
	next := rs.subkeys[subkey].seq + 1
	if _, written := rs.subkeys[subkey]; !written {
		next = 0
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	rs.subkeys[subkey] = subkeyState{data: stored, seq: next}
	return nil
}

// InspectRecord implements dht.Network. The in-memory backend has no
// separate local cache to distinguish from the network, so Scope has no
// effect: it always reports its current authoritative state.
func (n *Network) InspectRecord(_ context.Context, key keys.RecordKey, start, end uint16, _ dht.Scope) (*dht.InspectReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rs, ok := n.records[key]
	if !ok {
		return nil, dht.ErrRecordNotFound
	}
	width := int(end) - int(start)
	if width < 0 {
		width = 0
	}
	seqs := make([]uint32, width)
	for i := range seqs {
		subkey := start + uint16(i)
		if sk, written := rs.subkeys[subkey]; written {
			seqs[i] = sk.seq
		} else {
			seqs[i] = dht.UnsetSeq
		}
	}
	return &dht.InspectReport{Seqs: seqs}, nil
}

// CloseRecord implements dht.Network. The in-memory backend keeps every
// record for the lifetime of the process, so this is a no-op beyond
// checking that a record exists at key.
func (n *Network) CloseRecord(_ context.Context, key keys.RecordKey) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.records[key]; !ok {
		return dht.ErrRecordNotFound
	}
	return nil
}

// Attach implements the optional attacher interface dht.Init looks for. The
// in-memory backend has no real network to wait on, so it is ready
// immediately.
func (n *Network) Attach(context.Context) error {
	return nil
}

package document

import (
	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/segment"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

// IndexMetadata is the payload stored at subkey 0 of an IndexRecord: the
// owning shard, the index's display name, and optional pointers to the
// fragment it describes and the links record attached to it.
type IndexMetadata struct {
	Shard    keys.Shard
	Name     segment.Segment
	Fragment *trace.Trace[trace.FragmentKind]
	Links    *trace.Trace[trace.LinksKind]
}

// NewIndexMetadata returns metadata for an index owned by shard with the
// given name and no fragment or links attached yet.
func NewIndexMetadata(shard keys.Shard, name segment.Segment) IndexMetadata {
	return IndexMetadata{Shard: shard, Name: name}
}

// WithFragment returns a copy of m pointing at the given fragment trace.
func (m IndexMetadata) WithFragment(t trace.Trace[trace.FragmentKind]) IndexMetadata {
	m.Fragment = &t
	return m
}

// WithLinks returns a copy of m pointing at the given links trace.
func (m IndexMetadata) WithLinks(t trace.Trace[trace.LinksKind]) IndexMetadata {
	m.Links = &t
	return m
}

// EncodeTo writes the metadata's wire form.
func (m IndexMetadata) EncodeTo(w *wire.Writer) {
	w.WriteFixed(m.Shard.Bytes(), keys.KeySize)
	m.Name.EncodeTo(w)
	w.WriteOption(m.Fragment != nil, func(w *wire.Writer) { m.Fragment.EncodeTo(w) })
	w.WriteOption(m.Links != nil, func(w *wire.Writer) { m.Links.EncodeTo(w) })
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m IndexMetadata) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter()
	m.EncodeTo(w)
	return w.Bytes(), nil
}

// DecodeFrom reads metadata previously written by EncodeTo.
func (m *IndexMetadata) DecodeFrom(r *wire.Reader) error {
	shardBytes, err := r.ReadFixed(keys.KeySize)
	if err != nil {
		return err
	}
	shard, err := keys.ShardFromBytes(shardBytes)
	if err != nil {
		return err
	}
	var name segment.Segment
	if err := name.DecodeFrom(r); err != nil {
		return err
	}
	var fragment *trace.Trace[trace.FragmentKind]
	if _, err := r.ReadOption(func(r *wire.Reader) error {
		var t trace.Trace[trace.FragmentKind]
		if err := t.DecodeFrom(r); err != nil {
			return err
		}
		fragment = &t
		return nil
	}); err != nil {
		return err
	}
	var links *trace.Trace[trace.LinksKind]
	if _, err := r.ReadOption(func(r *wire.Reader) error {
		var t trace.Trace[trace.LinksKind]
		if err := t.DecodeFrom(r); err != nil {
			return err
		}
		links = &t
		return nil
	}); err != nil {
		return err
	}
	m.Shard = shard
	m.Name = name
	m.Fragment = fragment
	m.Links = links
	return nil
}

// UnmarshalBinary decodes metadata from a standalone byte slice, requiring
// the whole slice to be consumed.
func (m *IndexMetadata) UnmarshalBinary(b []byte) error {
	r := wire.NewReader(b)
	if err := m.DecodeFrom(r); err != nil {
		return err
	}
	return r.RequireConsumed()
}

// LinkEntry is a single link stored in a LinksRecord: a display name and
// the index record it points at.
type LinkEntry struct {
	Name   segment.Segment
	Target trace.Trace[trace.IndexKind]
}

// EncodeTo writes the link entry's wire form.
func (e LinkEntry) EncodeTo(w *wire.Writer) {
	e.Name.EncodeTo(w)
	e.Target.EncodeTo(w)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (e LinkEntry) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter()
	e.EncodeTo(w)
	return w.Bytes(), nil
}

// DecodeFrom reads a link entry previously written by EncodeTo.
func (e *LinkEntry) DecodeFrom(r *wire.Reader) error {
	var name segment.Segment
	if err := name.DecodeFrom(r); err != nil {
		return err
	}
	var target trace.Trace[trace.IndexKind]
	if err := target.DecodeFrom(r); err != nil {
		return err
	}
	e.Name = name
	e.Target = target
	return nil
}

// UnmarshalBinary decodes a link entry from a standalone byte slice.
func (e *LinkEntry) UnmarshalBinary(b []byte) error {
	r := wire.NewReader(b)
	if err := e.DecodeFrom(r); err != nil {
		return err
	}
	return r.RequireConsumed()
}

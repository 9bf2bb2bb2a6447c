package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracebox-dev/tracebox/internal/wire"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

func testShard(t *testing.T) keys.Shard {
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	return id.Shard()
}

func TestContentReferenceIsDeterministicOverSameBytes(t *testing.T) {
	shard := testShard(t)
	a := NewContentReference(shard, []byte("sealed bytes"))
	b := NewContentReference(shard, []byte("sealed bytes"))
	require.Equal(t, a, b)

	c := NewContentReference(shard, []byte("different bytes"))
	require.NotEqual(t, a, c)
}

func TestReferenceDomainsDoNotCollide(t *testing.T) {
	shard := testShard(t)
	content := NewContentReference(shard, []byte("x"))
	root := NewRootReference(shard, "x")
	require.NotEqual(t, content.Hash(), root.Hash())
}

func TestReferenceWireRoundTrip(t *testing.T) {
	shard := testShard(t)
	ref := NewContentReference(shard, []byte("payload"))

	w := wire.NewWriter()
	ref.EncodeTo(w)

	r := wire.NewReader(w.Bytes())
	var decoded Reference[Content]
	require.NoError(t, decoded.DecodeFrom(r))
	require.Equal(t, ref, decoded)
}

func TestReferenceDecodeRejectsWrongDomainMagic(t *testing.T) {
	shard := testShard(t)
	ref := NewRootReference(shard, "name")

	w := wire.NewWriter()
	ref.EncodeTo(w)

	r := wire.NewReader(w.Bytes())
	var decoded Reference[Content]
	err := decoded.DecodeFrom(r)
	require.ErrorIs(t, err, ErrMagicMismatch)
}

func TestRootReferenceIsDeterministicPerName(t *testing.T) {
	shard := testShard(t)
	a := NewRootReference(shard, "alice")
	b := NewRootReference(shard, "alice")
	c := NewRootReference(shard, "bob")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestIndexAndLinksReferencesAreRandomized(t *testing.T) {
	shard := testShard(t)
	a, err := NewIndexReference(shard)
	require.NoError(t, err)
	b, err := NewIndexReference(shard)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	c, err := NewLinksReference(shard)
	require.NoError(t, err)
	d, err := NewLinksReference(shard)
	require.NoError(t, err)
	require.NotEqual(t, c, d)
}

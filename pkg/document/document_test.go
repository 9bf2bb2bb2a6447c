package document_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracebox-dev/tracebox/pkg/dht/memnet"
	"github.com/tracebox-dev/tracebox/pkg/document"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/segment"
	"github.com/tracebox-dev/tracebox/pkg/trace"
)

func seg(t *testing.T, text string) segment.Segment {
	t.Helper()
	s, err := segment.New(text)
	require.NoError(t, err)
	return s
}

func TestFragmentCreateLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	fr, err := document.CreateFragment(ctx, net, id, []byte("hello fragment"))
	require.NoError(t, err)

	opened, err := document.OpenFragment(ctx, net, fr.Trace(), id.Shard(), "")
	require.NoError(t, err)

	got, err := opened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello fragment", string(got))
}

func TestFragmentOpenWithLockedTraceFails(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	other, err := keys.RandomIdentity()
	require.NoError(t, err)

	fr, err := document.CreateFragment(ctx, net, id, []byte("secret stuff"))
	require.NoError(t, err)

	tr := fr.Trace()
	locked := trace.New[trace.FragmentKind](tr.Key(), trace.Locked())
	_, err = document.OpenFragment(ctx, net, locked, other.Shard(), "")
	require.ErrorIs(t, err, trace.ErrLocked)
}

func TestIndexCreateUpdateMeta(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	meta := document.NewIndexMetadata(id.Shard(), seg(t, "my index"))
	ir, err := document.CreateIndex(ctx, net, id, meta)
	require.NoError(t, err)

	got, err := ir.Meta(ctx)
	require.NoError(t, err)
	require.Equal(t, "my index", got.Name.String())
	require.Nil(t, got.Fragment)

	fr, err := document.CreateFragment(ctx, net, id, []byte("body"))
	require.NoError(t, err)
	updated := got.WithFragment(fr.Trace())
	require.NoError(t, ir.UpdateMeta(ctx, id, updated))

	reread, err := ir.Meta(ctx)
	require.NoError(t, err)
	require.NotNil(t, reread.Fragment)
	require.Equal(t, fr.Trace().Key(), reread.Fragment.Key())
}

func TestIndexCreateRejectsMismatchedShard(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	other, err := keys.RandomIdentity()
	require.NoError(t, err)

	meta := document.NewIndexMetadata(other.Shard(), seg(t, "not mine"))
	_, err = document.CreateIndex(ctx, net, id, meta)
	require.ErrorIs(t, err, document.ErrUnauthorized)
}

func TestIndexUpdateMetaRejectsOtherIdentity(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	attacker, err := keys.RandomIdentity()
	require.NoError(t, err)

	meta := document.NewIndexMetadata(id.Shard(), seg(t, "owned"))
	ir, err := document.CreateIndex(ctx, net, id, meta)
	require.NoError(t, err)

	err = ir.UpdateMeta(ctx, attacker, meta)
	require.ErrorIs(t, err, document.ErrUnauthorized)
}

func TestLinksAddFetchRemove(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	lr, err := document.CreateLinks(ctx, net, id)
	require.NoError(t, err)

	targetMeta := document.NewIndexMetadata(id.Shard(), seg(t, "target"))
	target, err := document.CreateIndex(ctx, net, id, targetMeta)
	require.NoError(t, err)

	entry := document.LinkEntry{Name: seg(t, "see also"), Target: target.Trace()}
	subkey, err := lr.AddLink(ctx, id, entry)
	require.NoError(t, err)
	require.Equal(t, uint16(1), subkey)

	entries, err := lr.FetchLinks(ctx, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "see also", entries[0].Name.String())

	require.NoError(t, lr.RemoveLink(ctx, id, subkey))

	entries, err = lr.FetchLinks(ctx, false)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestIndexTryFetchLinksWithoutLinksFails(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	meta := document.NewIndexMetadata(id.Shard(), seg(t, "lonely"))
	ir, err := document.CreateIndex(ctx, net, id, meta)
	require.NoError(t, err)

	_, err = ir.TryFetchLinks(ctx, net)
	require.ErrorIs(t, err, document.ErrNoLinks)
}

func TestIndexTryFetchLinksFollowsReference(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	lr, err := document.CreateLinks(ctx, net, id)
	require.NoError(t, err)

	meta := document.NewIndexMetadata(id.Shard(), seg(t, "has links")).WithLinks(lr.Trace())
	ir, err := document.CreateIndex(ctx, net, id, meta)
	require.NoError(t, err)

	fetched, err := ir.TryFetchLinks(ctx, net)
	require.NoError(t, err)
	require.Equal(t, lr.Trace().Key(), fetched.Trace().Key())
}

func TestPublicRootCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	name := seg(t, "public-root")
	meta := document.NewIndexMetadata(id.Shard(), name)
	_, err = document.CreateRootIndex(ctx, net, id, name, false, meta)
	require.NoError(t, err)

	resolved, err := document.ResolvePublicRoot(ctx, net, id.Shard(), name)
	require.NoError(t, err)

	got, err := resolved.Meta(ctx)
	require.NoError(t, err)
	require.Equal(t, name.String(), got.Name.String())
}

func TestPrivateRootRequiresPrivateKey(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	imposter, err := keys.RandomIdentity()
	require.NoError(t, err)

	name := seg(t, "private-root")
	meta := document.NewIndexMetadata(id.Shard(), name)
	_, err = document.CreateRootIndex(ctx, net, id, name, true, meta)
	require.NoError(t, err)

	_, err = document.ResolvePrivateRoot(ctx, net, id, name)
	require.NoError(t, err)

	_, err = document.ResolvePrivateRoot(ctx, net, imposter, name)
	require.Error(t, err)
}

func TestRootIndexCreateRejectsMismatchedShard(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	other, err := keys.RandomIdentity()
	require.NoError(t, err)

	name := seg(t, "mismatched")
	meta := document.NewIndexMetadata(other.Shard(), name)
	_, err = document.CreateRootIndex(ctx, net, id, name, false, meta)
	require.ErrorIs(t, err, document.ErrUnauthorized)
}

// TestScenarioSharedDocumentWithUnauthorizedWriter builds a small document
// graph (index -> fragment, index -> links -> target index) the way a real
// caller would, then checks that an identity other than the owner cannot
// overwrite any of it.
func TestScenarioSharedDocumentWithUnauthorizedWriter(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	owner, err := keys.RandomIdentity()
	require.NoError(t, err)
	intruder, err := keys.RandomIdentity()
	require.NoError(t, err)

	fr, err := document.CreateFragment(ctx, net, owner, []byte("document body"))
	require.NoError(t, err)

	lr, err := document.CreateLinks(ctx, net, owner)
	require.NoError(t, err)

	targetMeta := document.NewIndexMetadata(owner.Shard(), seg(t, "related"))
	target, err := document.CreateIndex(ctx, net, owner, targetMeta)
	require.NoError(t, err)
	_, err = lr.AddLink(ctx, owner, document.LinkEntry{Name: seg(t, "related"), Target: target.Trace()})
	require.NoError(t, err)

	meta := document.NewIndexMetadata(owner.Shard(), seg(t, "main")).
		WithFragment(fr.Trace()).
		WithLinks(lr.Trace())
	ir, err := document.CreateIndex(ctx, net, owner, meta)
	require.NoError(t, err)

	err = ir.UpdateMeta(ctx, intruder, meta)
	require.ErrorIs(t, err, document.ErrUnauthorized)

	links, err := ir.TryFetchLinks(ctx, net)
	require.NoError(t, err)
	_, err = links.AddLink(ctx, intruder, document.LinkEntry{Name: seg(t, "evil"), Target: target.Trace()})
	require.Error(t, err)

	got, err := ir.Meta(ctx)
	require.NoError(t, err)
	require.Equal(t, "main", got.Name.String())
}

func TestScenarioProtectedFragmentWrongPassword(t *testing.T) {
	ctx := context.Background()
	net := memnet.New()
	id, err := keys.RandomIdentity()
	require.NoError(t, err)

	fr, err := document.CreateFragment(ctx, net, id, []byte("guarded"))
	require.NoError(t, err)

	unlocked, err := fr.Trace().TryOpen(id.Shard(), "")
	require.NoError(t, err)
	protected, err := trace.NewProtected(id.Shard(), "correct horse battery staple", unlocked.Secret())
	require.NoError(t, err)
	protectedTrace := trace.New[trace.FragmentKind](fr.Trace().Key(), protected)

	_, err = document.OpenFragment(ctx, net, protectedTrace, id.Shard(), "totally wrong password xyz")
	require.ErrorIs(t, err, trace.ErrInvalidPassword)

	opened, err := document.OpenFragment(ctx, net, protectedTrace, id.Shard(), "correct horse battery staple")
	require.NoError(t, err)
	got, err := opened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "guarded", string(got))
}


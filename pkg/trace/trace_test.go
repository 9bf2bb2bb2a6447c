package trace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracebox-dev/tracebox/pkg/keys"
)

func randomKey(t *testing.T) keys.RecordKey {
	s, err := keys.RandomSecret()
	require.NoError(t, err)
	k, err := keys.RecordKeyFromBytes(s.Bytes())
	require.NoError(t, err)
	return k
}

func TestTraceStringRoundTrip(t *testing.T) {
	key := randomKey(t)
	secret, err := keys.RandomSecret()
	require.NoError(t, err)
	tr := New[FragmentKind](key, Unlocked(secret))

	s := tr.String()
	parsed, err := Parse[FragmentKind](s)
	require.NoError(t, err)
	require.Equal(t, tr, parsed)
}

func TestParseRejectsWrongKind(t *testing.T) {
	key := randomKey(t)
	tr := New[IndexKind](key, Locked())

	_, err := Parse[FragmentKind](tr.String())
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestLockedAccessAlwaysFails(t *testing.T) {
	var shard keys.Shard
	_, err := Locked().TryOpen(shard, "irrelevant")
	require.ErrorIs(t, err, ErrLocked)
}

func TestUnlockedAccessIgnoresPassword(t *testing.T) {
	secret, err := keys.RandomSecret()
	require.NoError(t, err)
	var shard keys.Shard
	got, err := Unlocked(secret).TryOpen(shard, "")
	require.NoError(t, err)
	require.Equal(t, secret, got)
}

func TestProtectedAccessRoundTrip(t *testing.T) {
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	secret, err := keys.RandomSecret()
	require.NoError(t, err)

	access, err := NewProtected(id.Shard(), "correct horse battery staple", secret)
	require.NoError(t, err)

	got, err := access.TryOpen(id.Shard(), "correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, secret, got)

	_, err = access.TryOpen(id.Shard(), "wrong password but also long enough")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestProtectedRejectsShortAndLongPasswords(t *testing.T) {
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	secret, err := keys.RandomSecret()
	require.NoError(t, err)

	_, err = NewProtected(id.Shard(), "short", secret)
	require.ErrorIs(t, err, ErrPasswordLength)

	tooLong := make([]byte, MaxPasswordLength+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	_, err = NewProtected(id.Shard(), string(tooLong), secret)
	require.ErrorIs(t, err, ErrPasswordLength)
}

func TestAccessWireRoundTripAllKinds(t *testing.T) {
	id, err := keys.RandomIdentity()
	require.NoError(t, err)
	secret, err := keys.RandomSecret()
	require.NoError(t, err)
	protected, err := NewProtected(id.Shard(), "correct horse battery staple", secret)
	require.NoError(t, err)

	for _, access := range []Access{Locked(), Unlocked(secret), protected} {
		key := randomKey(t)
		tr := New[LinksKind](key, access)
		parsed, err := Parse[LinksKind](tr.String())
		require.NoError(t, err)
		require.Equal(t, access.Kind(), parsed.Access().Kind())
	}
}

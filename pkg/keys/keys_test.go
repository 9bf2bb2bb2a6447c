package keys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardBase58RoundTrip(t *testing.T) {
	id, err := RandomIdentity()
	require.NoError(t, err)

	s := id.Shard().String()
	parsed, err := ParseShard(s)
	require.NoError(t, err)
	require.Equal(t, id.Shard(), parsed)
}

func TestParseShardInvalidEncoding(t *testing.T) {
	_, err := ParseShard("not-base58!!!")
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestHashFromBytesRejectsWrongLength(t *testing.T) {
	_, err := HashFromBytes([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestHashBytesDeterministic(t *testing.T) {
	h1 := HashBytes([]byte("a"), []byte("b"))
	h2 := HashBytes([]byte("a"), []byte("b"))
	h3 := HashBytes([]byte("ab"))
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3, "domain separation must not collapse concatenation boundaries in practice for distinct inputs")
}

func TestIdentitySignVerify(t *testing.T) {
	id, err := RandomIdentity()
	require.NoError(t, err)

	sig := id.Sign([]byte("payload"))
	require.True(t, Verify(id.Shard(), []byte("payload"), sig))
	require.False(t, Verify(id.Shard(), []byte("tampered"), sig))
}

func TestNewIdentityRejectsMismatchedKeypair(t *testing.T) {
	a, err := RandomIdentity()
	require.NoError(t, err)
	b, err := RandomIdentity()
	require.NoError(t, err)

	_, err = NewIdentity(a.Shard().Bytes(), privKeyFor(b))
	require.ErrorIs(t, err, ErrInvalidKeypair)
}

func privKeyFor(id Identity) []byte {
	return id.PrivateKey().Bytes()
}

func TestDeriveSecretIsDeterministic(t *testing.T) {
	s1, err := DeriveSecret([]byte("ikm"), []byte("salt"), []byte("info"))
	require.NoError(t, err)
	s2, err := DeriveSecret([]byte("ikm"), []byte("salt"), []byte("info"))
	require.NoError(t, err)
	require.Equal(t, s1, s2)

	s3, err := DeriveSecret([]byte("other"), []byte("salt"), []byte("info"))
	require.NoError(t, err)
	require.NotEqual(t, s1, s3)
}

func TestRandomSecretIsUnique(t *testing.T) {
	a, err := RandomSecret()
	require.NoError(t, err)
	b, err := RandomSecret()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

package document

import (
	"context"

	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/keys"
	"github.com/tracebox-dev/tracebox/pkg/segment"
)

var (
	publicRootLabel  = []byte("public secret")
	privateRootLabel = []byte("private secret")
)

// PublicRootSecret derives the secret for a public, unauthenticated named
// root: anyone who knows (shard, name) can compute it and read the root.
func PublicRootSecret(shard keys.Shard, name segment.Segment) (keys.Secret, error) {
	salt := append(append([]byte{}, shard.Bytes()...), publicRootLabel...)
	return keys.DeriveSecret([]byte(name.String()), salt, nil)
}

// PrivateRootSecret derives the secret for a private named root: only the
// holder of identity's private key can compute it, even knowing the name.
func PrivateRootSecret(identity keys.Identity, name segment.Segment) (keys.Secret, error) {
	ikm := append(append([]byte{}, []byte(name.String())...), identity.PrivateKey().Bytes()...)
	salt := append(append([]byte{}, identity.Shard().Bytes()...), privateRootLabel...)
	return keys.DeriveSecret(ikm, salt, nil)
}

// CreateRootIndex creates a new IndexRecord at the deterministic key for
// (shard, name), sealed under the public or private root secret. Later
// callers who know (shard, name) - and, for a private root, hold identity's
// private key - can reach the same record via ResolvePublicRoot or
// ResolvePrivateRoot without ever being handed a Trace.
func CreateRootIndex(ctx context.Context, net dht.Network, identity keys.Identity, name segment.Segment, private bool, meta IndexMetadata) (*IndexRecord, error) {
	if identity.Shard() != meta.Shard {
		return nil, errorf("CreateRootIndex", "%w", ErrUnauthorized)
	}
	var secret keys.Secret
	var err error
	if private {
		secret, err = PrivateRootSecret(identity, name)
	} else {
		secret, err = PublicRootSecret(identity.Shard(), name)
	}
	if err != nil {
		return nil, errorf("CreateRootIndex", "%w", err)
	}
	key, err := dht.BuildKey(ctx, net, rootIndexSchema(name.String()), identity.Shard())
	if err != nil {
		return nil, errorf("CreateRootIndex", "%w", err)
	}
	rec, err := dht.CreateAt(ctx, net, key, rootIndexSchema(name.String()), identity)
	if err != nil {
		return nil, errorf("CreateRootIndex", "%w", err)
	}
	ir := openIndexAt(rec, secret)
	if err := ir.writeMeta(ctx, identity, meta); err != nil {
		return nil, errorf("CreateRootIndex", "%w", err)
	}
	return ir, nil
}

// ResolvePublicRoot opens the public named root at (shard, name).
func ResolvePublicRoot(ctx context.Context, net dht.Network, shard keys.Shard, name segment.Segment) (*IndexRecord, error) {
	secret, err := PublicRootSecret(shard, name)
	if err != nil {
		return nil, errorf("ResolvePublicRoot", "%w", err)
	}
	return openRootIndex(ctx, net, shard, name, secret)
}

// ResolvePrivateRoot opens the private named root at (identity.Shard(), name).
func ResolvePrivateRoot(ctx context.Context, net dht.Network, identity keys.Identity, name segment.Segment) (*IndexRecord, error) {
	secret, err := PrivateRootSecret(identity, name)
	if err != nil {
		return nil, errorf("ResolvePrivateRoot", "%w", err)
	}
	return openRootIndex(ctx, net, identity.Shard(), name, secret)
}

func openRootIndex(ctx context.Context, net dht.Network, shard keys.Shard, name segment.Segment, secret keys.Secret) (*IndexRecord, error) {
	key, err := dht.BuildKey(ctx, net, rootIndexSchema(name.String()), shard)
	if err != nil {
		return nil, errorf("openRootIndex", "%w", err)
	}
	rec, err := dht.Open(ctx, net, key)
	if err != nil {
		return nil, errorf("openRootIndex", "%w", err)
	}
	return openIndexAt(rec, secret), nil
}

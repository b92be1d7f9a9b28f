package snapshot

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	pkgredis "github.com/luminoshop/cartsync/pkg/redis"
	"github.com/luminoshop/cartsync/pkg/types"
)

// RedisStore keeps the snapshot under a namespaced per-profile key.
type RedisStore struct {
	client *pkgredis.Client
	key    string
}

// NewRedisStore builds a store for the given profile.
func NewRedisStore(client *pkgredis.Client, profileID string) (*RedisStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redis client is required")
	}
	if profileID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	return &RedisStore{client: client, key: client.SnapshotKey(profileID)}, nil
}

// Load returns the stored snapshot for the profile, if any.
func (s *RedisStore) Load(ctx context.Context) (types.LocalCartSnapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key)
	if err != nil {
		if pkgredis.IsNil(err) {
			return types.LocalCartSnapshot{}, false, nil
		}
		return types.LocalCartSnapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load snapshot")
	}
	var snap types.LocalCartSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return types.LocalCartSnapshot{}, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decode snapshot")
	}
	return snap, true, nil
}

// Save stores the snapshot unless an already-stored one is newer. The
// read-then-write window can race a peer; the newest timestamp still wins
// on the next write.
func (s *RedisStore) Save(ctx context.Context, snap types.LocalCartSnapshot) error {
	current, found, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if found && !snap.Supersedes(current) {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode snapshot")
	}
	if err := s.client.Set(ctx, s.key, payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "save snapshot")
	}
	return nil
}

// Clear removes the profile's snapshot key.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear snapshot")
	}
	return nil
}

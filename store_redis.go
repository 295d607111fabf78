package marketwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists snapshots in Redis, for deployments where several
// processes share one cache. A SET is atomic on the server side, so
// readers never observe a partial entry. No Redis expiry is set:
// freshness is judged by the snapshot's FetchedAt, and entries are only
// ever overwritten.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore returns a store over the given client. If namespace is
// empty, it uses "marketwatch".
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "marketwatch"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (s *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("%s:snapshot:%s", s.namespace, key)
}

// Load reads the snapshot for key, or (nil, nil) when none was ever
// saved. A corrupted entry is deleted and treated as absent.
func (s *RedisStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	b, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read snapshot %q: %w", key, err)
	}
	snap, err := decodeSnapshot(bytes.NewReader(b))
	if err != nil {
		// Delete corrupted cache entry
		_ = s.rdb.Del(ctx, s.redisKey(key)).Err()
		return nil, fmt.Errorf("cannot decode snapshot %q: %w", key, err)
	}
	return snap, nil
}

// Save overwrites the snapshot for key.
func (s *RedisStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	var buf bytes.Buffer
	if err := encodeSnapshot(&buf, snap); err != nil {
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.redisKey(key), buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("cannot write snapshot %q: %w", key, err)
	}
	return nil
}

package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRevocationRedisUnavailable = errors.New("revocation redis unavailable")

// RevocationStore remembers signed-out session ids until their tokens would
// have expired anyway.
type RevocationStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRevocationStore(redisClient redis.UniversalClient, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "dbx"
	}
	return &RevocationStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Revoke marks sid revoked for ttl. Non-positive ttl is a no-op since the
// token is already dead.
func (s *RevocationStore) Revoke(ctx context.Context, sid string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, joinKey(s.prefix, sid), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationRedisUnavailable, err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, sid string) (bool, error) {
	n, err := s.redis.Exists(ctx, joinKey(s.prefix, sid)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRevocationRedisUnavailable, err)
	}
	return n == 1, nil
}

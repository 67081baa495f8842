package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrProfileNotFound         = errors.New("profile not found")
	ErrProfileExists           = errors.New("profile already exists")
	ErrProfileRedisUnavailable = errors.New("profile redis unavailable")
)

// ProfileRecord is one profile row.
type ProfileRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// insertProfileLua writes the row and its email index only if neither exists.
// KEYS[1] = row key
// KEYS[2] = email index key
// ARGV[1] = row json
// ARGV[2] = profile id
//
// Returns 0 on insert, 1 when the id exists, 2 when the email is taken.
var insertProfileLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 1
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 2
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 0
`)

type ProfileStore struct {
	redis       redis.UniversalClient
	rowPrefix   string
	indexPrefix string
}

func NewProfileStore(redisClient redis.UniversalClient, prefix string) *ProfileStore {
	if prefix == "" {
		prefix = "dbp"
	}
	return &ProfileStore{
		redis:       redisClient,
		rowPrefix:   prefix,
		indexPrefix: prefix + "e",
	}
}

func (s *ProfileStore) rowKey(id string) string {
	return joinKey(s.rowPrefix, id)
}

// indexKey keeps the address as stored. Profile email queries are exact
// matches, unlike credential lookups.
func (s *ProfileStore) indexKey(email string) string {
	return joinKey(s.indexPrefix, strings.TrimSpace(email))
}

func (s *ProfileStore) Insert(ctx context.Context, record *ProfileRecord) error {
	if record == nil || record.ID == "" || record.Email == "" {
		return errors.New("profile id and email are required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	res, err := insertProfileLua.Run(ctx, s.redis,
		[]string{s.rowKey(record.ID), s.indexKey(record.Email)},
		data, record.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileRedisUnavailable, err)
	}
	if res != 0 {
		return ErrProfileExists
	}
	return nil
}

func (s *ProfileStore) ByID(ctx context.Context, id string) (*ProfileRecord, error) {
	data, err := s.redis.Get(ctx, s.rowKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileRedisUnavailable, err)
	}

	var record ProfileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &record, nil
}

func (s *ProfileStore) ByEmail(ctx context.Context, email string) (*ProfileRecord, error) {
	id, err := s.redis.Get(ctx, s.indexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileRedisUnavailable, err)
	}
	return s.ByID(ctx, id)
}

// Delete removes the row and its email index.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	record, err := s.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil
		}
		return err
	}
	if err := s.redis.Del(ctx, s.rowKey(id), s.indexKey(record.Email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileRedisUnavailable, err)
	}
	return nil
}

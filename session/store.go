package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by Load when no token is stored, or the stored
	// token is expired or unreadable.
	ErrNotFound = errors.New("session token not found")
	// ErrRedisUnavailable wraps transport failures of RedisStore.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Store persists at most one Token.
//
// Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, t *Token) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.Mutex
	token *Token
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Load(context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil, ErrNotFound
	}
	if s.token.Expired(s.now()) {
		s.token = nil
		return nil, ErrNotFound
	}
	cp := *s.token
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, t *Token) error {
	if t == nil {
		return errors.New("nil token")
	}
	cp := *t

	s.mu.Lock()
	s.token = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
	return nil
}

// RedisStore keeps the token under a single Redis key. The key expires with
// the token, so Redis evicts stale sessions on its own.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
	now   func() time.Time
}

// NewRedisStore creates a RedisStore using key "<prefix>:<slot>". slot lets
// several installations share one Redis (for example one per device id).
func NewRedisStore(client redis.UniversalClient, prefix, slot string) *RedisStore {
	if prefix == "" {
		prefix = "dst"
	}
	if slot == "" {
		slot = "default"
	}
	return &RedisStore{
		redis: client,
		key:   prefix + ":" + slot,
		now:   time.Now,
	}
}

// Key returns the Redis key the token is stored under.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (*Token, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	t, err := Decode(data)
	if err != nil {
		// unreadable blobs are never going to become readable
		_ = s.redis.Del(ctx, s.key).Err()
		return nil, ErrNotFound
	}
	if t.Expired(s.now()) {
		_ = s.redis.Del(ctx, s.key).Err()
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *RedisStore) Save(ctx context.Context, t *Token) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}

	ttl := t.TTL(s.now())
	if t.ExpiresAt > 0 && ttl <= 0 {
		return s.Clear(ctx)
	}
	if err := s.redis.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// FileStore keeps the encoded token in a single file readable only by the
// current user. Writes go through a temp file and rename.
type FileStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	t, err := Decode(data)
	if err != nil || t.Expired(s.now()) {
		_ = os.Remove(s.path)
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *FileStore) Save(_ context.Context, t *Token) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const oneTimeRecordVersionV1 = 1

var (
	ErrOneTimeNotFound         = errors.New("one-time record not found")
	ErrOneTimeRedisUnavailable = errors.New("one-time redis unavailable")
)

// OneTimeRecord binds a token digest to an account for a limited time.
type OneTimeRecord struct {
	UserID    string
	Email     string
	ExpiresAt int64
}

// OneTimeStore keeps single-use records keyed by token digest. The reset
// and verification flows each get their own prefix.
type OneTimeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewOneTimeStore(redisClient redis.UniversalClient, prefix string) *OneTimeStore {
	if prefix == "" {
		prefix = "dbo"
	}
	return &OneTimeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *OneTimeStore) key(digest [32]byte) string {
	return joinKey(s.prefix, hex.EncodeToString(digest[:]))
}

func (s *OneTimeStore) Save(ctx context.Context, digest [32]byte, record *OneTimeRecord, ttl time.Duration) error {
	if record.ExpiresAt == 0 {
		record.ExpiresAt = s.now().Add(ttl).Unix()
	}
	encoded, err := encodeOneTimeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(digest), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrOneTimeRedisUnavailable, err)
	}
	return nil
}

// Consume returns the record and deletes it. Concurrent consumers race on
// WATCH; exactly one wins.
func (s *OneTimeStore) Consume(ctx context.Context, digest [32]byte) (*OneTimeRecord, error) {
	const maxRetries = 4
	key := s.key(digest)

	for i := 0; i < maxRetries; i++ {
		var matched *OneTimeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, decodeErr := decodeOneTimeRecord(data)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			if decodeErr != nil || s.now().Unix() > record.ExpiresAt {
				return ErrOneTimeNotFound
			}

			matched = record
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrOneTimeNotFound):
				return nil, ErrOneTimeNotFound
			default:
				return nil, fmt.Errorf("%w: %v", ErrOneTimeRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrOneTimeNotFound
}

// Count returns how many records are live under this prefix. Only meant for
// tests and diagnostics; it scans.
func (s *OneTimeStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrOneTimeRedisUnavailable, err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func encodeOneTimeRecord(record *OneTimeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(oneTimeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.UserID, record.Email} {
		if len(field) > 65535 {
			return nil, errors.New("one-time record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeOneTimeRecord(data []byte) (*OneTimeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != oneTimeRecordVersionV1 {
		return nil, errors.New("invalid one-time record version")
	}

	record := &OneTimeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range []*string{&record.UserID, &record.Email} {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}

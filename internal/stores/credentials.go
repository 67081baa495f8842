package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

const credentialRecordVersionV1 = 1

var (
	ErrCredentialNotFound         = errors.New("credential not found")
	ErrCredentialExists           = errors.New("credential already exists")
	ErrCredentialCorrupt          = errors.New("credential record corrupt")
	ErrCredentialRedisUnavailable = errors.New("credential redis unavailable")
)

// CredentialRecord is the sign-in record for one email address.
type CredentialRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Verified     bool
	CreatedAt    int64
}

type CredentialStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCredentialStore(redisClient redis.UniversalClient, prefix string) *CredentialStore {
	if prefix == "" {
		prefix = "dbc"
	}
	return &CredentialStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *CredentialStore) key(email string) string {
	return joinKey(s.prefix, normalizeEmail(email))
}

// Create stores record unless the email is already registered.
func (s *CredentialStore) Create(ctx context.Context, record *CredentialRecord) error {
	encoded, err := encodeCredentialRecord(record)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, s.key(record.Email), encoded, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialRedisUnavailable, err)
	}
	if !ok {
		return ErrCredentialExists
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, email string) (*CredentialRecord, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialRedisUnavailable, err)
	}
	return decodeCredentialRecord(data)
}

// Update applies fn to the stored record atomically.
func (s *CredentialStore) Update(ctx context.Context, email string, fn func(*CredentialRecord) error) error {
	const maxRetries = 4
	key := s.key(email)

	for i := 0; i < maxRetries; i++ {
		var fnErr error
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeCredentialRecord(data)
			if err != nil {
				return err
			}
			if fnErr = fn(record); fnErr != nil {
				return fnErr
			}
			updated, err := encodeCredentialRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if fnErr != nil {
			return fnErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrCredentialNotFound
			case errors.Is(err, ErrCredentialCorrupt):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrCredentialRedisUnavailable, err)
			}
		}
		return nil
	}

	return fmt.Errorf("%w: too much contention", ErrCredentialRedisUnavailable)
}

// Delete removes the record. Used to roll back a sign-up.
func (s *CredentialStore) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialRedisUnavailable, err)
	}
	return nil
}

func encodeCredentialRecord(record *CredentialRecord) ([]byte, error) {
	if record == nil {
		return nil, errors.New("nil credential record")
	}
	var buf bytes.Buffer

	buf.WriteByte(credentialRecordVersionV1)
	if record.Verified {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.UserID, record.Email, record.PasswordHash} {
		if len(field) > 65535 {
			return nil, errors.New("credential field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeCredentialRecord(data []byte) (*CredentialRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != credentialRecordVersionV1 {
		return nil, ErrCredentialCorrupt
	}
	verified, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCredentialCorrupt
	}

	record := &CredentialRecord{Verified: verified == 1}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, ErrCredentialCorrupt
	}

	fields := []*string{&record.UserID, &record.Email, &record.PasswordHash}
	for _, field := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, ErrCredentialCorrupt
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, ErrCredentialCorrupt
		}
		*field = string(raw)
	}

	if reader.Len() != 0 {
		return nil, ErrCredentialCorrupt
	}
	return record, nil
}

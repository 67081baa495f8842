package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	tokenFormatVersionCurrent = 2
	tokenFormatVersionV1      = 1
)

// ErrCorrupt is returned by Decode for blobs that are truncated or carry an
// unknown version byte.
var ErrCorrupt = errors.New("session token blob corrupt")

// Encode serializes t.
//
// v1: version, uid (u8 len), token (u16 len), expiresAt.
// v2: v1 plus createdAt.
func Encode(t *Token) ([]byte, error) {
	if t == nil {
		return nil, errors.New("nil token")
	}
	if len(t.UserID) > math.MaxUint8 {
		return nil, errors.New("userID too long")
	}
	if len(t.AccessToken) > math.MaxUint16 {
		return nil, errors.New("access token too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 1 + len(t.UserID) + 2 + len(t.AccessToken) + 16)

	buf.WriteByte(tokenFormatVersionCurrent)

	buf.WriteByte(byte(len(t.UserID)))
	buf.WriteString(t.UserID)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(t.AccessToken))); err != nil {
		return nil, err
	}
	buf.WriteString(t.AccessToken)

	if err := binary.Write(&buf, binary.BigEndian, t.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, t.CreatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode, any version.
func Decode(data []byte) (*Token, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	if version != tokenFormatVersionCurrent && version != tokenFormatVersionV1 {
		return nil, ErrCorrupt
	}

	t := &Token{}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, ErrCorrupt
	}
	t.UserID = string(userID)

	var tokenLen uint16
	if err := binary.Read(reader, binary.BigEndian, &tokenLen); err != nil {
		return nil, ErrCorrupt
	}
	access := make([]byte, tokenLen)
	if _, err := io.ReadFull(reader, access); err != nil {
		return nil, ErrCorrupt
	}
	t.AccessToken = string(access)

	if err := binary.Read(reader, binary.BigEndian, &t.ExpiresAt); err != nil {
		return nil, ErrCorrupt
	}

	if version == tokenFormatVersionCurrent {
		if err := binary.Read(reader, binary.BigEndian, &t.CreatedAt); err != nil {
			return nil, ErrCorrupt
		}
	}

	if reader.Len() != 0 {
		return nil, ErrCorrupt
	}
	return t, nil
}

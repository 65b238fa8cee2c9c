// Package resets persists pending password-reset slots.
//
// A slot is addressed by an opaque reset id and encoded in a compact
// versioned binary layout. A per-user index key points at the user's single
// live slot, so opening a new slot for the same user discards the old one.
package resets

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/dashauth/kv"
)

const recordVersionV1 = 1

const (
	flagVerified byte = 1 << iota
)

var (
	ErrNotFound = errors.New("resets: no pending reset")
	ErrCorrupt  = errors.New("resets: malformed record")
)

// Record is one pending reset.
type Record struct {
	UserID    int64
	CodeHash  [32]byte
	ExpiresAt time.Time
	Attempts  uint16
	Verified  bool
}

// Expired reports whether now is past ExpiresAt. The code is still good at
// ExpiresAt itself.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store keeps reset slots in a kv.Store.
type Store struct {
	kv     kv.Store
	prefix string
}

// New returns a Store writing keys under prefix, e.g. "dashauth:pendingReset".
func New(backend kv.Store, prefix string) *Store {
	if prefix == "" {
		prefix = "pendingReset"
	}
	return &Store{kv: backend, prefix: prefix}
}

func (s *Store) key(resetID string) string {
	return s.prefix + ":" + resetID
}

func (s *Store) userKey(userID int64) string {
	return s.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

// Open stores rec as the user's only live slot, discarding any previous one.
// ttl bounds how long the backend retains the slot.
func (s *Store) Open(ctx context.Context, resetID string, rec Record, ttl time.Duration) error {
	prev, err := s.kv.Get(ctx, s.userKey(rec.UserID))
	switch {
	case err == nil:
		if err := s.kv.Delete(ctx, s.key(string(prev))); err != nil {
			return err
		}
	case !errors.Is(err, kv.ErrNotFound):
		return err
	}

	if err := s.Put(ctx, resetID, rec, ttl); err != nil {
		return err
	}
	return s.kv.Set(ctx, s.userKey(rec.UserID), []byte(resetID), ttl)
}

// Put overwrites the slot without touching the user index. Used to record
// attempts and verification.
func (s *Store) Put(ctx context.Context, resetID string, rec Record, ttl time.Duration) error {
	return s.kv.Set(ctx, s.key(resetID), encodeRecord(rec), ttl)
}

// Get returns the slot for resetID. A slot superseded by a newer request for
// the same user is reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, resetID string) (Record, error) {
	if resetID == "" {
		return Record{}, ErrNotFound
	}
	raw, err := s.kv.Get(ctx, s.key(resetID))
	if errors.Is(err, kv.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return Record{}, err
	}

	live, err := s.kv.Get(ctx, s.userKey(rec.UserID))
	if errors.Is(err, kv.ErrNotFound) || (err == nil && string(live) != resetID) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ForUser returns the id of the user's live slot.
func (s *Store) ForUser(ctx context.Context, userID int64) (string, error) {
	raw, err := s.kv.Get(ctx, s.userKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Clear removes the slot and, when it is still the user's live slot, the
// index entry.
func (s *Store) Clear(ctx context.Context, resetID string, userID int64) error {
	keys := []string{s.key(resetID)}
	live, err := s.kv.Get(ctx, s.userKey(userID))
	switch {
	case err == nil && string(live) == resetID:
		keys = append(keys, s.userKey(userID))
	case err != nil && !errors.Is(err, kv.ErrNotFound):
		return err
	}
	return s.kv.Delete(ctx, keys...)
}

// Layout (big endian):
//
//	version u8 | flags u8 | attempts u16 | expires_at i64 (unix ms) | user_id i64 | code_hash [32]
func encodeRecord(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(2 + 2 + 8 + 8 + 32)

	var flags byte
	if r.Verified {
		flags |= flagVerified
	}
	buf.WriteByte(recordVersionV1)
	buf.WriteByte(flags)
	_ = binary.Write(&buf, binary.BigEndian, r.Attempts)
	_ = binary.Write(&buf, binary.BigEndian, r.ExpiresAt.UnixMilli())
	_ = binary.Write(&buf, binary.BigEndian, r.UserID)
	buf.Write(r.CodeHash[:])
	return buf.Bytes()
}

func decodeRecord(data []byte) (Record, error) {
	var (
		rec       Record
		version   byte
		flags     byte
		expiresMs int64
	)
	rd := bytes.NewReader(data)

	fields := []any{&version, &flags, &rec.Attempts, &expiresMs, &rec.UserID, &rec.CodeHash}
	for _, f := range fields {
		if err := binary.Read(rd, binary.BigEndian, f); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if version != recordVersionV1 {
			return Record{}, fmt.Errorf("%w: version %d", ErrCorrupt, version)
		}
	}
	if rd.Len() != 0 {
		return Record{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, rd.Len())
	}

	rec.Verified = flags&flagVerified != 0
	rec.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	return rec, nil
}

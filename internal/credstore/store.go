package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/dashauth/kv"
)

var (
	ErrNotFound       = errors.New("credstore: user not found")
	ErrDuplicateEmail = errors.New("credstore: email already registered")
	ErrInvalidRole    = errors.New("credstore: invalid role")
	ErrInvalidStatus  = errors.New("credstore: invalid status")
	ErrCorrupt        = errors.New("credstore: stored users are not decodable")
)

// Store is the user repository. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	seqKey string
	now    func() time.Time
}

// New returns a Store keeping its array under key and its id counter under
// key+"Seq".
func New(backend kv.Store, key string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{kv: backend, key: key, seqKey: key + "Seq", now: now}
}

// nextID draws the next id from the persisted counter. Ids of deleted users
// are never handed out again. A counter behind the stored array (older data,
// a lost counter key) is moved past the highest existing id first.
func (s *Store) nextID(ctx context.Context, users []Record) (int64, error) {
	var maxID int64
	for _, u := range users {
		maxID = max(maxID, u.ID)
	}

	id, err := s.kv.Incr(ctx, s.seqKey, 0)
	if err != nil {
		return 0, err
	}
	if id > maxID {
		return id, nil
	}
	id = maxID + 1
	if err := s.kv.Set(ctx, s.seqKey, []byte(strconv.FormatInt(id, 10)), 0); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) load(ctx context.Context) ([]Record, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var users []Record
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return users, nil
}

func (s *Store) save(ctx context.Context, users []Record) error {
	if users == nil {
		users = []Record{}
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("credstore: encode users: %w", err)
	}
	return s.kv.Set(ctx, s.key, raw, 0)
}

func indexByID(users []Record, id int64) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func indexByEmail(users []Record, email string) int {
	email = NormalizeEmail(email)
	for i := range users {
		if NormalizeEmail(users[i].Email) == email {
			return i
		}
	}
	return -1
}

// FindByEmail looks a user up by address, case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (Record, error) {
	users, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i := indexByEmail(users, email)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return users[i], nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (Record, error) {
	users, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i := indexByID(users, id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return users[i], nil
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.load(ctx)
}

// Create inserts a new user with the next id from the counter, status
// active and an empty session list.
func (s *Store) Create(ctx context.Context, c Candidate) (Record, error) {
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	if !ValidRole(role) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	if indexByEmail(users, c.Email) >= 0 {
		return Record{}, ErrDuplicateEmail
	}

	id, err := s.nextID(ctx, users)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:           id,
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Role:         role,
		Avatar:       AvatarFor(c.Name),
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
		Sessions:     []SessionRecord{},
	}
	if err := s.save(ctx, append(users, rec)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update merges p into the user with id. Changing the name re-derives the
// avatar.
func (s *Store) Update(ctx context.Context, id int64, p Patch) (Record, error) {
	return s.Mutate(ctx, id, func(r *Record, users []Record) error {
		if p.Email != nil {
			email := NormalizeEmail(*p.Email)
			if i := indexByEmail(users, email); i >= 0 && users[i].ID != id {
				return ErrDuplicateEmail
			}
			r.Email = email
		}
		if p.Name != nil {
			r.Name = strings.TrimSpace(*p.Name)
			r.Avatar = AvatarFor(r.Name)
		}
		if p.Role != nil {
			if !ValidRole(*p.Role) {
				return fmt.Errorf("%w: %q", ErrInvalidRole, *p.Role)
			}
			r.Role = *p.Role
		}
		if p.Status != nil {
			if !ValidStatus(*p.Status) {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
			}
			r.Status = *p.Status
		}
		return nil
	})
}

// SetStatus changes only the status field.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) (Record, error) {
	return s.Update(ctx, id, Patch{Status: &status})
}

// Delete removes the user with id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexByID(users, id)
	if i < 0 {
		return ErrNotFound
	}
	return s.save(ctx, append(users[:i], users[i+1:]...))
}

// Mutate runs fn on the user with id under the store lock and persists the
// result. fn also sees the full array for cross-record checks; it must not
// modify it. An error from fn aborts the write.
func (s *Store) Mutate(ctx context.Context, id int64, fn func(r *Record, users []Record) error) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	i := indexByID(users, id)
	if i < 0 {
		return Record{}, ErrNotFound
	}

	rec := users[i].clone()
	if err := fn(&rec, users); err != nil {
		return Record{}, err
	}
	users[i] = rec
	if err := s.save(ctx, users); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Seed inserts candidates when the store holds no users yet. It reports
// whether anything was written.
func (s *Store) Seed(ctx context.Context, candidates []Candidate) (bool, error) {
	s.mu.Lock()
	users, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	for _, c := range candidates {
		if _, err := s.Create(ctx, c); err != nil && !errors.Is(err, ErrDuplicateEmail) {
			return false, err
		}
	}
	return true, nil
}

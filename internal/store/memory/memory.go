// Package memory implementa un store de cuentas en memoria, útil para dev y tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/para/internal/store"
)

func init() {
	store.RegisterAdapter(adapter{})
}

type adapter struct{}

func (adapter) Name() string { return "memory" }

func (adapter) Connect(context.Context, store.AdapterConfig) (store.Connection, error) {
	return New(), nil
}

// Store guarda cuentas con índices únicos por username y email (case-insensitive).
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*store.UserAccount
	byUser  map[string]string
	byEmail map[string]string
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byID:    map[string]*store.UserAccount{},
		byUser:  map[string]string{},
		byEmail: map[string]string{},
		now:     time.Now,
	}
}

func (s *Store) Name() string                { return "memory" }
func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close() error                { return nil }
func (s *Store) Users() store.UserRepository { return s }

func key(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

func (s *Store) Create(_ context.Context, u *store.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[key(u.Username)]; ok {
		return &store.DuplicateError{Field: "username"}
	}
	if _, ok := s.byEmail[key(u.Email)]; ok {
		return &store.DuplicateError{Field: "email"}
	}

	now := s.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	cp := *u
	s.byID[u.ID] = &cp
	s.byUser[key(u.Username)] = u.ID
	s.byEmail[key(u.Email)] = u.ID
	return nil
}

func (s *Store) lookup(idx map[string]string, k string) (*store.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := idx[key(k)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *Store) GetByUsername(_ context.Context, username string) (*store.UserAccount, error) {
	return s.lookup(s.byUser, username)
}

func (s *Store) GetByEmail(_ context.Context, email string) (*store.UserAccount, error) {
	return s.lookup(s.byEmail, email)
}

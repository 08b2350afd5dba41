package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store persists feed state per key and provides the loading flag that keeps
// at most one page request in flight per feed.
type Store interface {
	// Load returns the stored state, or a fresh state when none exists.
	Load(ctx context.Context, key string) (*State, error)
	// Save writes st only while the stored generation is still expect, and
	// returns ErrStaleResult otherwise. A missing state is generation 0.
	Save(ctx context.Context, key string, st *State, expect int64) error
	Delete(ctx context.Context, key string) error
	// TryLock sets the loading flag if it is clear. The returned token is
	// needed to clear it again.
	TryLock(ctx context.Context, key string) (token string, ok bool, err error)
	// Unlock clears the flag if it is still held under token.
	Unlock(ctx context.Context, key, token string) error
}

// MemoryStore is an in-process Store. It backs the CLI and tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*State
	locks  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		locks:  make(map[string]string),
	}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		return st.Clone(), nil
	}
	return NewState(), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, st *State, expect int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if cur, ok := m.states[key]; ok {
		current = cur.Generation
	}
	if current != expect {
		return ErrStaleResult
	}
	m.states[key] = st.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	delete(m.locks, key)
	return nil
}

func (m *MemoryStore) TryLock(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return "", false, nil
	}
	token := uuid.NewString()
	m.locks[key] = token
	return token, true, nil
}

func (m *MemoryStore) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == token {
		delete(m.locks, key)
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"sync"

	contextutils "quizengine/internal/utils"
)

// MemoryHintStore is a mutex-guarded in-process HintUsageStore. It is the
// default backend when no redis address is configured.
type MemoryHintStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryHintStore creates an empty in-memory hint usage store
func NewMemoryHintStore() *MemoryHintStore {
	return &MemoryHintStore{counts: make(map[string]int)}
}

func hintKey(userID, questionID int) string {
	return fmt.Sprintf("%d:%d", userID, questionID)
}

// Increment implements HintUsageStore
func (m *MemoryHintStore) Increment(_ context.Context, userID, questionID, max int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hintKey(userID, questionID)
	count := m.counts[key]
	if count >= max {
		return count, false, nil
	}
	count++
	m.counts[key] = count
	return count, true, nil
}

// Usage implements HintUsageStore
func (m *MemoryHintStore) Usage(_ context.Context, userID, questionID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[hintKey(userID, questionID)], nil
}

// Reset implements HintUsageStore
func (m *MemoryHintStore) Reset(_ context.Context, userID, questionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, hintKey(userID, questionID))
	return nil
}

// MemoryStore is a mutex-guarded in-process adaptive session Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func sessionKey(userID, quizID int) string {
	return fmt.Sprintf("%d:%d", userID, quizID)
}

// Put implements Store
func (m *MemoryStore) Put(_ context.Context, userID, quizID int, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(userID, quizID)] = state.Clone()
	return nil
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, userID, quizID int) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sessions[sessionKey(userID, quizID)]
	if !ok {
		return nil, contextutils.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Update implements Store. fn runs under the store lock on a copy of the
// state; the copy is persisted only when fn returns nil.
func (m *MemoryStore) Update(_ context.Context, userID, quizID int, fn func(*State) error) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(userID, quizID)
	state, ok := m.sessions[key]
	if !ok {
		return nil, contextutils.ErrSessionNotFound
	}
	updated := state.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	m.sessions[key] = updated
	return updated.Clone(), nil
}

// Delete implements Store
func (m *MemoryStore) Delete(_ context.Context, userID, quizID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(userID, quizID))
	return nil
}

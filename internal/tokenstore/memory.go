package tokenstore

import (
	"context"
	"sync"
	"time"
)

var (
	_ Store  = (*MemoryStore)(nil)
	_ Purger = (*MemoryStore)(nil)
)

type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	byHash map[string]Record
	byUser map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:    time.Now,
		byHash: make(map[string]Record),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Save(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(userID, HashToken(token), expiresAt)
	return nil
}

func (m *MemoryStore) FindByToken(_ context.Context, token string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byHash[HashToken(token)]
	if !ok || !rec.ExpiresAt.After(m.now()) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) DeleteByToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(HashToken(token)), nil
}

func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h := range m.byUser[userID] {
		delete(m.byHash, h)
	}
	delete(m.byUser, userID)
	return nil
}

func (m *MemoryStore) Rotate(_ context.Context, oldToken, userID, newToken string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldHash := HashToken(oldToken)
	rec, ok := m.byHash[oldHash]
	if !ok || rec.UserID != userID {
		return false, nil
	}
	m.remove(oldHash)
	m.put(userID, HashToken(newToken), expiresAt)
	return true, nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for h, rec := range m.byHash {
		if !rec.ExpiresAt.After(now) {
			m.remove(h)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored records, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

func (m *MemoryStore) put(userID, hash string, expiresAt time.Time) {
	m.byHash[hash] = Record{TokenHash: hash, UserID: userID, ExpiresAt: expiresAt, CreatedAt: m.now()}
	set, ok := m.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		m.byUser[userID] = set
	}
	set[hash] = struct{}{}
}

func (m *MemoryStore) remove(hash string) bool {
	rec, ok := m.byHash[hash]
	if !ok {
		return false
	}
	delete(m.byHash, hash)
	if set := m.byUser[rec.UserID]; set != nil {
		delete(set, hash)
		if len(set) == 0 {
			delete(m.byUser, rec.UserID)
		}
	}
	return true
}

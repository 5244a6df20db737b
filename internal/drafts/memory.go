package drafts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps drafts in process memory. It is used when no Redis URL is
// configured; drafts are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
}

type memoryEntry struct {
	data    Draft
	expires time.Time
}

// NewMemoryStore creates an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{drafts: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.drafts[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.drafts, id)
		return nil, nil
	}
	d := e.data
	d.Items = append(d.Items[:0:0], e.data.Items...)
	return &d, nil
}

// Save implements Store. Expired drafts are swept on every save.
func (s *MemoryStore) Save(_ context.Context, d *Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.drafts {
		if !now.Before(e.expires) {
			delete(s.drafts, id)
		}
	}

	cp := *d
	cp.Items = append(d.Items[:0:0], d.Items...)
	s.drafts[d.ID] = memoryEntry{data: cp, expires: now.Add(s.ttl)}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

// Len returns the number of stored drafts, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

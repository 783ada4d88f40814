package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/persona-chat/internal/model/chat"
)

const maxSweepInterval = 10 * time.Minute

type memoryEntry struct {
	session    *chat.Session
	lastAccess time.Time
}

// MemoryStore keeps sessions in process memory. Sessions vanish on restart,
// and with a TTL they also vanish once idle for longer than the TTL.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore returns an empty MemoryStore whose sessions never expire.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// NewMemoryStoreWithTTL returns a MemoryStore that drops sessions idle for
// longer than ttl, matching the sliding TTL of the redis driver. A background
// sweep runs until Close.
func NewMemoryStoreWithTTL(ttl time.Duration) *MemoryStore {
	s := NewMemoryStore()
	if ttl <= 0 {
		return s
	}
	s.ttl = ttl

	interval := ttl / 2
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	go s.sweepLoop(interval)
	return s
}

func (s *MemoryStore) Create(_ context.Context, session *chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.sessions[session.ID]; ok && !s.expired(entry, now) {
		return ErrSessionExists
	}

	session.CreatedAt = now.UTC()
	session.UpdatedAt = now.UTC()
	session.Version = 1
	s.sessions[session.ID] = &memoryEntry{session: session.Clone(), lastAccess: now}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.session.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, session *chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookup(session.ID)
	if err != nil {
		return err
	}
	if entry.session.Version != session.Version {
		return ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = s.now().UTC()
	entry.session = session.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*memoryEntry)
	return nil
}

// lookup returns a live entry and refreshes its idle clock. Callers hold mu.
func (s *MemoryStore) lookup(id string) (*memoryEntry, error) {
	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if s.expired(entry, now) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	entry.lastAccess = now
	return entry, nil
}

func (s *MemoryStore) expired(entry *memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastAccess) > s.ttl
}

// sweep drops every expired session and reports how many were removed.
func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				log.Printf("[session] expired %d idle sessions", removed)
			}
		}
	}
}

package listing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keeps live sessions by id and forgets them after an idle period.
// Expired sessions are swept at most once per sweepEvery, and when limit is
// reached the least recently used idle session makes room for a new one.
type Manager struct {
	ttl        time.Duration
	limit      int
	sweepEvery time.Duration
	now        func() time.Time
	onCount    func(int)

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewManager creates a manager holding at most limit sessions, zero means no limit.
// onCount, if not nil, is called with the number of live sessions whenever it changes.
func NewManager(ttl time.Duration, limit int, onCount func(int)) *Manager {
	return &Manager{
		ttl:        ttl,
		limit:      limit,
		sweepEvery: ttl,
		now:        time.Now,
		onCount:    onCount,
		sessions:   make(map[string]*entry),
	}
}

// Add stores a session and returns its new id.
func (m *Manager) Add(s *Session) string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl > 0 && m.now().Sub(m.lastSweep) >= m.sweepEvery {
		m.sweep()
		m.lastSweep = m.now()
	}

	if m.limit > 0 && len(m.sessions) >= m.limit {
		m.evict()
	}

	m.sessions[id] = &entry{session: s, lastSeen: m.now()}
	m.report()

	return id
}

// Get returns the session with the given id, if it is still alive.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]

	if !ok {
		return nil, false
	}

	if m.expired(e) {
		delete(m.sessions, id)
		m.report()
		return nil, false
	}

	e.lastSeen = m.now()

	return e.session, true
}

// Remove forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.report()
	}
}

// Len returns the number of sessions held, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

func (m *Manager) sweep() {
	for id, e := range m.sessions {
		// A session with a load in flight is kept until the load finishes.
		if m.expired(e) && !e.session.Loading() {
			delete(m.sessions, id)
		}
	}
}

// evict removes the least recently used session without a load in flight.
func (m *Manager) evict() {
	var (
		oldestID string
		oldest   *entry
	)

	for id, e := range m.sessions {
		if e.session.Loading() {
			continue
		}

		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}

	if oldest != nil {
		delete(m.sessions, oldestID)
	}
}

func (m *Manager) expired(e *entry) bool {
	return m.ttl > 0 && m.now().Sub(e.lastSeen) > m.ttl
}

func (m *Manager) report() {
	if m.onCount != nil {
		m.onCount(len(m.sessions))
	}
}

// Package slot bounds how many positions may be open at once across every
// trade monitor. All mutation funnels through TryAcquire/Release; the
// check-and-increment is a single critical section because the counter
// gates real capital exposure.
package slot

import "sync"

// Manager is the process-wide concurrency slot counter.
type Manager struct {
	mu    sync.Mutex
	limit int
	inUse int
}

// NewManager creates a manager permitting at most limit open positions.
func NewManager(limit int) *Manager {
	if limit < 0 {
		limit = 0
	}
	return &Manager{limit: limit}
}

// TryAcquire claims one slot if any remain. It never blocks and has no
// side effects on failure.
func (m *Manager) TryAcquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inUse >= m.limit {
		return false
	}
	m.inUse++
	return true
}

// Release returns one slot. The counter never goes below zero.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inUse > 0 {
		m.inUse--
	}
}

// InUse reports the currently held slot count.
func (m *Manager) InUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inUse
}

// Limit reports the configured maximum.
func (m *Manager) Limit() int {
	return m.limit
}

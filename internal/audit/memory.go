package audit

import "sync"

// MemoryFloor keeps events in memory. Used in tests to assert what was
// recorded without touching the filesystem.
type MemoryFloor struct {
	mu     sync.Mutex
	events []Event
}

var _ Floor = (*MemoryFloor)(nil)

func NewMemoryFloor() *MemoryFloor {
	return &MemoryFloor{}
}

func (m *MemoryFloor) Append(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (m *MemoryFloor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

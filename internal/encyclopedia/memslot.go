package encyclopedia

import "sync"

// MemorySlot is an in-process Slot, used for throwaway stores and tests.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string]string)}
}

func (m *MemorySlot) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlot) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// Writes returns how many times Set has been called.
func (m *MemorySlot) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

package snapshot

import (
	"context"
	"slices"
	"sync"
)

// Memory is a process-local Store. Values survive cache eviction but not a
// restart.
type Memory struct {
	mu      sync.RWMutex
	options map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{options: map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.options[name]
	return slices.Clone(value), ok, nil
}

func (m *Memory) Set(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.options[name] = slices.Clone(value)
	return nil
}

func (m *Memory) Add(_ context.Context, name string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.options[name]; ok {
		return false, nil
	}

	m.options[name] = slices.Clone(value)
	return true, nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.options, name)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

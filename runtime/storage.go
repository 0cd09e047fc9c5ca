package runtime

import (
	"sort"
	"sync"
)

// VariableStorage persists script variable values. A single storage instance
// is shared by the virtual machine, the library's visit-tracking built-ins,
// and the embedder, so implementations must be safe for concurrent use.
type VariableStorage interface {
	// Get returns the stored value for name, if any.
	Get(name string) (Value, bool)
	// Set stores a value under name, replacing any previous value.
	Set(name string, value Value)
	// Clear removes every stored variable.
	Clear()
}

// MemoryVariableStorage is the default in-memory VariableStorage.
type MemoryVariableStorage struct {
	mu   sync.RWMutex
	vars map[string]Value
}

// NewMemoryVariableStorage creates an empty in-memory storage.
func NewMemoryVariableStorage() *MemoryVariableStorage {
	return &MemoryVariableStorage{vars: make(map[string]Value)}
}

// Get returns the stored value for name, if any.
func (s *MemoryVariableStorage) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

// Set stores a value under name.
func (s *MemoryVariableStorage) Set(name string, value Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// Clear removes every stored variable.
func (s *MemoryVariableStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars = make(map[string]Value)
}

// Names returns the stored variable names in sorted order.
func (s *MemoryVariableStorage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

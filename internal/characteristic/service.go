package characteristic

import "sync"

// MemoryService is an in-memory Service holding the standard thermostat
// characteristics.
type MemoryService struct {
	name string

	mu    sync.RWMutex
	chars map[ID]*Base
	order []ID
}

// NewService creates a MemoryService pre-populated with Standard.
func NewService(name string) *MemoryService {
	s := &MemoryService{
		name:  name,
		chars: make(map[ID]*Base, len(Standard)+1),
	}
	for _, id := range Standard {
		s.chars[id] = New(id)
		s.order = append(s.order, id)
	}
	return s
}

// Name returns the service name.
func (s *MemoryService) Name() string {
	return s.name
}

// Characteristic returns the characteristic with the given ID.
func (s *MemoryService) Characteristic(id ID) (Characteristic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chars[id]
	if !ok {
		return nil, ErrUnknownCharacteristic
	}
	return c, nil
}

// AddCharacteristic registers id if it is not already present.
func (s *MemoryService) AddCharacteristic(id ID) (Characteristic, error) {
	if _, err := ParseID(string(id)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.chars[id]; ok {
		return c, nil
	}
	c := New(id)
	s.chars[id] = c
	s.order = append(s.order, id)
	return c, nil
}

// IDs returns the registered characteristic IDs in registration order.
func (s *MemoryService) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]ID, len(s.order))
	copy(ids, s.order)
	return ids
}

package accessory

import "sync"

// Registry holds the thermostats known to the process, keyed by Nest
// device ID. It keeps registration order for listing.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Thermostat
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Thermostat)}
}

// Add registers t. Returns ErrDuplicateThermostat if its device ID is
// already present.
func (r *Registry) Add(t *Thermostat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.DeviceID()]; ok {
		return ErrDuplicateThermostat
	}
	r.byID[t.DeviceID()] = t
	r.order = append(r.order, t.DeviceID())
	return nil
}

// Get returns the thermostat for deviceID.
func (r *Registry) Get(deviceID string) (*Thermostat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[deviceID]
	if !ok {
		return nil, ErrThermostatNotFound
	}
	return t, nil
}

// List returns every thermostat in registration order.
func (r *Registry) List() []*Thermostat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Thermostat, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.byID[id])
	}
	return list
}

// Len returns the number of registered thermostats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

package characteristic

import (
	"context"
	"errors"
	"sync"
)

// Base is a Characteristic that keeps its value in memory.
//
// Host adapters embed Base and call Mirror to copy every refreshed value
// into the host's own representation.
type Base struct {
	id ID

	mu      sync.RWMutex
	value   any
	get     GetHandler
	set     SetHandler
	changes []ChangeHandler
	mirror  func(value any)
}

// New creates a Base with no value and no handlers.
func New(id ID) *Base {
	return &Base{id: id}
}

// ID returns the characteristic's name.
func (c *Base) ID() ID {
	return c.id
}

// OnGet installs the get handler.
func (c *Base) OnGet(h GetHandler) Characteristic {
	c.mu.Lock()
	c.get = h
	c.mu.Unlock()
	return c
}

// OnSet installs the set handler.
func (c *Base) OnSet(h SetHandler) Characteristic {
	c.mu.Lock()
	c.set = h
	c.mu.Unlock()
	return c
}

// OnChange adds a change handler.
func (c *Base) OnChange(h ChangeHandler) Characteristic {
	c.mu.Lock()
	c.changes = append(c.changes, h)
	c.mu.Unlock()
	return c
}

// Mirror installs fn to receive every value stored by GetValue.
// Values stored by Fetch or SetValue are not mirrored; the host already
// holds them.
func (c *Base) Mirror(fn func(value any)) {
	c.mu.Lock()
	c.mirror = fn
	c.mu.Unlock()
}

// Value returns the last stored value.
func (c *Base) Value() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// GetValue runs the get handler and stores the result. Errors from the
// handler leave the stored value untouched.
func (c *Base) GetValue() {
	c.mu.RLock()
	get := c.get
	c.mu.RUnlock()

	if get == nil {
		return
	}
	get(func(value any, err error) {
		if err != nil {
			return
		}
		c.store(value, true)
	})
}

// Fetch runs the get handler and waits for its result.
func (c *Base) Fetch(ctx context.Context) (any, error) {
	c.mu.RLock()
	get := c.get
	c.mu.RUnlock()

	if get == nil {
		return nil, ErrNoGetHandler
	}

	type result struct {
		value any
		err   error
	}
	ch := make(chan result, 1)
	get(func(value any, err error) {
		ch <- result{value, err}
	})

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		c.store(r.value, false)
		return r.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetValue runs the set handler. The value is converted to the
// characteristic's native type first, so a 2.0 written to a state
// characteristic is stored as the int 2. The value is stored only if the
// handler accepts it.
func (c *Base) SetValue(value any, done SetCallback) {
	c.mu.RLock()
	set := c.set
	c.mu.RUnlock()

	if set == nil {
		if done != nil {
			done(ErrReadOnly)
		}
		return
	}

	value, err := c.native(value)
	if err != nil {
		if done != nil {
			done(err)
		}
		return
	}

	set(value, func(err error) {
		if err == nil {
			c.store(value, false)
		}
		if done != nil {
			done(err)
		}
	})
}

// Write runs SetValue and waits for the set handler to finish.
func (c *Base) Write(ctx context.Context, value any) error {
	ch := make(chan error, 1)
	c.SetValue(value, func(err error) {
		ch <- err
	})

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// native converts value with Normalize. IDs Normalize does not know keep
// the value as written.
func (c *Base) native(value any) (any, error) {
	v, err := Normalize(c.id, value)
	if errors.Is(err, ErrUnknownCharacteristic) {
		return value, nil
	}
	return v, err
}

// store records value and fires change handlers if it differs from the
// previous one.
func (c *Base) store(value any, mirror bool) {
	c.mu.Lock()
	old := c.value
	c.value = value
	handlers := make([]ChangeHandler, len(c.changes))
	copy(handlers, c.changes)
	fn := c.mirror
	c.mu.Unlock()

	if mirror && fn != nil {
		fn(value)
	}

	if valuesEqual(old, value) {
		return
	}

	change := Change{ID: c.id, OldValue: old, NewValue: value}
	for _, h := range handlers {
		h(change)
	}
}

// valuesEqual compares two stored values. Characteristic values are
// scalars (bool, int, float64, string), so == is enough once nil is handled.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a == b
}

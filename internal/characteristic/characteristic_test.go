package characteristic

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestBaseGetValueFiresChangeOnlyOnDifference(t *testing.T) {
	c := New(CurrentTemperature)

	current := 20.0
	c.OnGet(func(done GetCallback) { done(current, nil) })

	var changes []Change
	c.OnChange(func(ch Change) { changes = append(changes, ch) })

	c.GetValue()
	c.GetValue()
	current = 21.5
	c.GetValue()

	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].OldValue != nil || changes[0].NewValue != 20.0 {
		t.Errorf("first change = %+v", changes[0])
	}
	if changes[1].OldValue != 20.0 || changes[1].NewValue != 21.5 {
		t.Errorf("second change = %+v", changes[1])
	}
	if changes[1].ID != CurrentTemperature {
		t.Errorf("change ID = %q", changes[1].ID)
	}
	if got := c.Value(); got != 21.5 {
		t.Errorf("Value() = %v, want 21.5", got)
	}
}

func TestBaseGetValueErrorKeepsValue(t *testing.T) {
	c := New(CurrentTemperature)
	fail := false
	c.OnGet(func(done GetCallback) {
		if fail {
			done(nil, errors.New("boom"))
			return
		}
		done(19.0, nil)
	})

	c.GetValue()
	fail = true
	c.GetValue()

	if got := c.Value(); got != 19.0 {
		t.Errorf("Value() = %v, want 19", got)
	}
}

func TestBaseGetValueWithoutHandler(t *testing.T) {
	c := New(CurrentTemperature)
	c.GetValue()
	if c.Value() != nil {
		t.Errorf("Value() = %v, want nil", c.Value())
	}

	if _, err := c.Fetch(context.Background()); !errors.Is(err, ErrNoGetHandler) {
		t.Errorf("Fetch() error = %v, want ErrNoGetHandler", err)
	}
}

func TestBaseMultipleChangeHandlers(t *testing.T) {
	c := New(Away)
	c.OnGet(func(done GetCallback) { done(true, nil) })

	var order []int
	c.OnChange(func(Change) { order = append(order, 1) })
	c.OnChange(func(Change) { order = append(order, 2) })

	c.GetValue()

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("handler order = %v, want [1 2]", order)
	}
}

func TestBaseMirror(t *testing.T) {
	c := New(TargetTemperature)
	value := 20.0
	c.OnGet(func(done GetCallback) { done(value, nil) })
	c.OnSet(func(_ any, done SetCallback) { done(nil) })

	var mirrored []any
	c.Mirror(func(v any) { mirrored = append(mirrored, v) })

	c.GetValue()
	value = 22
	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	c.SetValue(23.0, nil)

	if len(mirrored) != 1 || mirrored[0] != 20.0 {
		t.Errorf("mirrored = %v, want [20]", mirrored)
	}
}

func TestBaseSetValue(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		c := New(TargetHeatingCoolingState)
		var got any
		c.OnSet(func(v any, done SetCallback) {
			got = v
			done(nil)
		})

		var changed bool
		c.OnChange(func(Change) { changed = true })

		var result error = errors.New("not called")
		c.SetValue(1, func(err error) { result = err })

		if result != nil {
			t.Errorf("done error = %v, want nil", result)
		}
		if got != 1 || c.Value() != 1 {
			t.Errorf("handler got %v, stored %v", got, c.Value())
		}
		if !changed {
			t.Error("change handler not called")
		}
	})

	t.Run("rejected", func(t *testing.T) {
		c := New(TargetHeatingCoolingState)
		wantErr := errors.New("transport down")
		c.OnSet(func(_ any, done SetCallback) { done(wantErr) })

		var result error
		c.SetValue(1, func(err error) { result = err })

		if !errors.Is(result, wantErr) {
			t.Errorf("done error = %v, want %v", result, wantErr)
		}
		if c.Value() != nil {
			t.Errorf("Value() = %v, want nil", c.Value())
		}
	})

	t.Run("read-only", func(t *testing.T) {
		c := New(CurrentTemperature)
		var result error
		c.SetValue(1.0, func(err error) { result = err })
		if !errors.Is(result, ErrReadOnly) {
			t.Errorf("done error = %v, want ErrReadOnly", result)
		}
		c.SetValue(1.0, nil)
	})

	t.Run("native type", func(t *testing.T) {
		c := New(TargetHeatingCoolingState)
		c.OnGet(func(done GetCallback) { done(2, nil) })
		var got any
		c.OnSet(func(v any, done SetCallback) {
			got = v
			done(nil)
		})
		c.GetValue()

		var changes int
		c.OnChange(func(Change) { changes++ })

		if err := c.Write(context.Background(), 2.0); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if got != 2 || c.Value() != 2 {
			t.Errorf("handler got %#v, stored %#v, want int 2", got, c.Value())
		}

		// A refresh with the same state is not a change.
		c.GetValue()
		if changes != 0 {
			t.Errorf("change handler called %d times, want 0", changes)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		c := New(TargetHeatingCoolingState)
		var called bool
		c.OnSet(func(_ any, done SetCallback) {
			called = true
			done(nil)
		})

		err := c.Write(context.Background(), "cool")
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Write() error = %v, want ErrInvalidValue", err)
		}
		if called {
			t.Error("set handler called for an invalid value")
		}
	})
}

func TestBaseWriteAsync(t *testing.T) {
	c := New(TargetTemperature)
	c.OnSet(func(_ any, done SetCallback) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			done(nil)
		}()
	})

	if err := c.Write(context.Background(), 21.0); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if c.Value() != 21.0 {
		t.Errorf("Value() = %v, want 21", c.Value())
	}
}

func TestBaseWriteContextCancelled(t *testing.T) {
	c := New(TargetTemperature)
	c.OnSet(func(_ any, _ SetCallback) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Write(ctx, 21.0); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
}

func TestMemoryService(t *testing.T) {
	s := NewService("Hall")

	for _, id := range Standard {
		if _, err := s.Characteristic(id); err != nil {
			t.Errorf("Characteristic(%q) error = %v", id, err)
		}
	}

	if _, err := s.Characteristic(Away); !errors.Is(err, ErrUnknownCharacteristic) {
		t.Errorf("Characteristic(Away) error = %v, want ErrUnknownCharacteristic", err)
	}

	added, err := s.AddCharacteristic(Away)
	if err != nil {
		t.Fatalf("AddCharacteristic(Away) error = %v", err)
	}
	again, _ := s.AddCharacteristic(Away)
	if added != again {
		t.Error("AddCharacteristic twice returned different characteristics")
	}

	if _, err := s.AddCharacteristic("Bogus"); !errors.Is(err, ErrUnknownCharacteristic) {
		t.Errorf("AddCharacteristic(Bogus) error = %v", err)
	}

	ids := s.IDs()
	if len(ids) != 7 || ids[6] != Away {
		t.Errorf("IDs() = %v", ids)
	}
	if s.Name() != "Hall" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestValueCoercion(t *testing.T) {
	if f, err := Float(int64(3)); err != nil || f != 3 {
		t.Errorf("Float(int64(3)) = %v, %v", f, err)
	}
	if _, err := Float("x"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Float(\"x\") error = %v", err)
	}
	if i, err := Int(2.0); err != nil || i != 2 {
		t.Errorf("Int(2.0) = %v, %v", i, err)
	}
	if _, err := Int(2.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Int(2.5) error = %v", err)
	}

	tests := []struct {
		in      any
		want    bool
		wantErr bool
	}{
		{true, true, false},
		{false, false, false},
		{1.0, true, false},
		{0, false, false},
		{uint8(1), true, false},
		{2, false, true},
		{"true", false, true},
	}
	for _, tt := range tests {
		got, err := Bool(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Bool(%v) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("TargetTemperature"); err != nil || id != TargetTemperature {
		t.Errorf("ParseID() = %q, %v", id, err)
	}
	if _, err := ParseID("targettemperature"); !errors.Is(err, ErrUnknownCharacteristic) {
		t.Errorf("ParseID() error = %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		id      ID
		in      any
		want    any
		wantErr error
	}{
		{TargetHeatingCoolingState, 3.0, 3, nil},
		{TemperatureDisplayUnits, json.Number("1"), 1, nil},
		{TargetTemperature, 21, 21.0, nil},
		{CurrentRelativeHumidity, float32(40), 40.0, nil},
		{Away, 1.0, true, nil},
		{Away, false, false, nil},
		{TargetHeatingCoolingState, 1.5, nil, ErrInvalidValue},
		{ID("Bogus"), 1, nil, ErrUnknownCharacteristic},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.id, tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize(%s, %v) error = %v, want %v", tt.id, tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Normalize(%s, %v) = %#v, %v, want %#v", tt.id, tt.in, got, err, tt.want)
		}
	}
}

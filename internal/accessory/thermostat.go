package accessory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/thermostat"
)

// Transport sends updates to the Nest API.
type Transport interface {
	Update(ctx context.Context, path string, value any) error
}

// Logger defines the logging interface used by Thermostat.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// State is the lifecycle state of a Thermostat.
type State int32

const (
	StateUninitialized State = iota
	StateReady
)

// Options configures a Thermostat.
type Options struct {
	// Transport receives every client write. Required.
	Transport Transport

	// Service holds the characteristics. Required.
	Service characteristic.Service

	// Device and Structure are the initial snapshots. Both required.
	Device    *thermostat.DeviceSnapshot
	Structure *thermostat.StructureSnapshot

	// Name overrides the device's reported name.
	Name string

	// Logger defaults to a no-op logger.
	Logger Logger

	// Context is passed to every transport call. Defaults to
	// context.Background().
	Context context.Context
}

// Thermostat is one Nest thermostat bound to a characteristic service.
type Thermostat struct {
	name        string
	deviceID    string
	structureID string
	id          uuid.UUID

	transport Transport
	service   characteristic.Service
	logger    Logger
	ctx       context.Context

	current  atomic.Pointer[snapshots]
	bindings []*binding
	state    atomic.Int32
}

// New creates a Thermostat, binds its characteristics and pushes the
// initial values.
//
// Parameters:
//   - opts: Transport, Service, Device and Structure are required
//
// Returns:
//   - *Thermostat: Ready accessory
//   - error: If a required option is missing or the service cannot hold
//     the Away characteristic
func New(opts Options) (*Thermostat, error) {
	if opts.Transport == nil {
		return nil, ErrMissingTransport
	}
	if opts.Service == nil {
		return nil, ErrMissingService
	}
	if opts.Device == nil || opts.Structure == nil {
		return nil, ErrMissingSnapshot
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	device := *opts.Device
	structure := *opts.Structure

	name := opts.Name
	if name == "" {
		name = device.Name
	}

	t := &Thermostat{
		name:        name,
		deviceID:    device.DeviceID,
		structureID: structure.StructureID,
		id:          StableID(device.DeviceID),
		transport:   opts.Transport,
		service:     opts.Service,
		logger:      logger,
		ctx:         ctx,
	}
	t.current.Store(&snapshots{device: &device, structure: &structure})

	if err := t.initialize(); err != nil {
		return nil, err
	}
	t.refresh()
	t.state.Store(int32(StateReady))

	logger.Info("thermostat ready",
		"name", t.name,
		"device_id", t.deviceID,
		"structure_id", t.structureID,
	)
	return t, nil
}

// StableID returns the accessory identity for a Nest device ID. The same
// device always maps to the same UUID, so HomeKit pairings survive restarts.
func StableID(deviceID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("nest.thermostat."+deviceID))
}

// initialize binds every characteristic in bindingSpec order.
func (t *Thermostat) initialize() error {
	t.bindings = make([]*binding, 0, len(bindingSpec))

	for i := range bindingSpec {
		b := bindingSpec[i]

		var (
			c   characteristic.Characteristic
			err error
		)
		if b.id == characteristic.Away {
			c, err = t.service.AddCharacteristic(b.id)
		} else {
			c, err = t.service.Characteristic(b.id)
		}
		if err != nil {
			return fmt.Errorf("binding %s: %w", b.id, err)
		}
		b.char = c

		bound := &b
		c.OnGet(func(done characteristic.GetCallback) {
			t.onGet(bound, done)
		})
		if bound.set != nil {
			c.OnSet(func(value any, done characteristic.SetCallback) {
				t.onSet(bound, value, done)
			})
		}
		c.OnChange(func(ch characteristic.Change) {
			t.onChange(bound, ch)
		})

		t.bindings = append(t.bindings, bound)
	}
	return nil
}

// onGet answers a get with the value computed from the current snapshots.
func (t *Thermostat) onGet(b *binding, done characteristic.GetCallback) {
	done(b.get(t.snapshot()), nil)
}

// onSet turns a client write into a Nest update and sends it without
// blocking the caller. done reports the transport outcome.
func (t *Thermostat) onSet(b *binding, value any, done characteristic.SetCallback) {
	cmd, err := b.set(t.snapshot(), value)
	if err != nil {
		t.logger.Warn("rejected characteristic write",
			"name", t.name,
			"characteristic", b.id,
			"value", value,
			"error", err,
		)
		done(err)
		return
	}

	t.logger.Info(cmd.Describe(t.name))

	go func() {
		if err := t.transport.Update(t.ctx, cmd.Path, cmd.Value); err != nil {
			t.logger.Error("nest update failed",
				"name", t.name,
				"path", cmd.Path,
				"value", cmd.Value,
				"error", err,
			)
			done(fmt.Errorf("%w: %w", ErrUpdateFailed, err))
			return
		}
		t.logger.Info("nest update applied",
			"name", t.name,
			"path", cmd.Path,
			"value", cmd.Value,
		)
		done(nil)
	}()
}

// onChange logs a value change in human-readable form.
func (t *Thermostat) onChange(b *binding, ch characteristic.Change) {
	formatted := thermostat.FormatValue(ch.NewValue)
	if b.format != nil {
		formatted = b.format(t.snapshot(), ch.NewValue)
	}
	t.logger.Info(fmt.Sprintf("%s for %s is: %s", b.description, t.name, formatted),
		"characteristic", b.id,
	)
}

// UpdateData stores new snapshots and pushes fresh values to every bound
// characteristic. A nil argument keeps the stored snapshot.
func (t *Thermostat) UpdateData(device *thermostat.DeviceSnapshot, structure *thermostat.StructureSnapshot) {
	var d *thermostat.DeviceSnapshot
	if device != nil {
		cp := *device
		d = &cp
	}
	var s *thermostat.StructureSnapshot
	if structure != nil {
		cp := *structure
		s = &cp
	}

	for {
		old := t.current.Load()
		next := &snapshots{device: d, structure: s}
		if old != nil {
			if next.device == nil {
				next.device = old.device
			}
			if next.structure == nil {
				next.structure = old.structure
			}
		}
		if t.current.CompareAndSwap(old, next) {
			break
		}
	}

	t.refresh()
}

// refresh pushes a fresh value to every bound characteristic, in binding
// order.
func (t *Thermostat) refresh() {
	t.snapshot()
	for _, b := range t.bindings {
		b.char.GetValue()
	}
}

// snapshot returns the current pair. Reading before both snapshots exist is
// a programming error.
func (t *Thermostat) snapshot() *snapshots {
	s := t.current.Load()
	if s == nil || s.device == nil || s.structure == nil {
		panic("accessory: snapshot read before initialisation")
	}
	return s
}

// UsesFahrenheit reports whether the thermostat displays °F.
func (t *Thermostat) UsesFahrenheit() bool {
	return t.snapshot().device.UsesFahrenheit()
}

// BoundCharacteristics returns the bound characteristic IDs in binding order.
func (t *Thermostat) BoundCharacteristics() []characteristic.ID {
	ids := make([]characteristic.ID, len(t.bindings))
	for i, b := range t.bindings {
		ids[i] = b.id
	}
	return ids
}

// Characteristic returns a bound characteristic.
func (t *Thermostat) Characteristic(id characteristic.ID) (characteristic.Characteristic, error) {
	for _, b := range t.bindings {
		if b.id == id {
			return b.char, nil
		}
	}
	return nil, ErrNotBound
}

// Values returns the last value stored on every bound characteristic.
func (t *Thermostat) Values() map[characteristic.ID]any {
	values := make(map[characteristic.ID]any, len(t.bindings))
	for _, b := range t.bindings {
		values[b.id] = b.char.Value()
	}
	return values
}

// Device returns a copy of the current device snapshot.
func (t *Thermostat) Device() thermostat.DeviceSnapshot {
	return *t.snapshot().device
}

// Structure returns a copy of the current structure snapshot.
func (t *Thermostat) Structure() thermostat.StructureSnapshot {
	return *t.snapshot().structure
}

// State returns the lifecycle state.
func (t *Thermostat) State() State {
	return State(t.state.Load())
}

// Name returns the display name.
func (t *Thermostat) Name() string { return t.name }

// DeviceID returns the Nest device ID.
func (t *Thermostat) DeviceID() string { return t.deviceID }

// StructureID returns the Nest structure ID.
func (t *Thermostat) StructureID() string { return t.structureID }

// UUID returns the stable accessory identity.
func (t *Thermostat) UUID() uuid.UUID { return t.id }

// WriteCharacteristic converts value to the native type of id and writes it
// through the characteristic's set path, waiting for the Nest update.
//
// Returns:
//   - error: ErrNotBound, characteristic.ErrInvalidValue,
//     characteristic.ErrReadOnly, ErrUpdateFailed or ctx.Err()
func (t *Thermostat) WriteCharacteristic(ctx context.Context, id characteristic.ID, value any) error {
	c, err := t.Characteristic(id)
	if err != nil {
		return err
	}
	v, err := characteristic.Normalize(id, value)
	if err != nil {
		return err
	}
	return c.Write(ctx, v)
}

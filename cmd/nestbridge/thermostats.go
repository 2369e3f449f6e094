package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/bridge"
	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/homekit"
	"github.com/redec/homebridge-nest/internal/infrastructure/config"
	"github.com/redec/homebridge-nest/internal/infrastructure/logging"
	"github.com/redec/homebridge-nest/internal/nest"
)

// errNoSnapshot is reported by the health check before the first snapshot.
var errNoSnapshot = errors.New("waiting for first nest snapshot")

// errStreamEnded is returned by WaitReady when the stream stops without an
// error before the first snapshot.
var errStreamEnded = errors.New("nest stream ended before first snapshot")

// managerOptions configures a thermostatManager.
type managerOptions struct {
	Config    config.NestConfig
	Transport accessory.Transport
	Registry  *accessory.Registry

	// HomeKit and Bridge may be nil when disabled.
	HomeKit *homekit.Server
	Bridge  *bridge.Bridge

	Logger *logging.Logger
}

// thermostatManager turns Nest snapshots into registered thermostats.
//
// The first snapshot that names a thermostat creates it; later snapshots
// update it in place.
type thermostatManager struct {
	ctx  context.Context
	opts managerOptions
	log  *logging.Logger

	mu sync.Mutex
	// homekitFrozen is set once the HAP server has started. Its accessory
	// list is fixed from then on.
	homekitFrozen bool

	ready     chan struct{}
	readyOnce sync.Once
}

func newThermostatManager(ctx context.Context, opts managerOptions) *thermostatManager {
	return &thermostatManager{
		ctx:   ctx,
		opts:  opts,
		log:   opts.Logger,
		ready: make(chan struct{}),
	}
}

// Handle applies one snapshot. It is called from the stream goroutine.
func (m *thermostatManager) Handle(snap nest.Snapshot) {
	ids := make([]string, 0, len(snap.Thermostats))
	for id := range snap.Thermostats {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !m.opts.Config.Selected(id) {
			continue
		}
		device := snap.Device(id)
		structure := snap.Structure(device.StructureID)
		if structure == nil {
			m.log.Warn("thermostat has no structure in snapshot",
				"device_id", id,
				"structure_id", device.StructureID,
			)
			continue
		}

		if t, err := m.opts.Registry.Get(id); err == nil {
			t.UpdateData(device, structure)
			continue
		}
		if err := m.add(device.DeviceID, snap); err != nil {
			m.log.Error("failed to add thermostat", "device_id", id, "error", err)
		}
	}

	m.readyOnce.Do(func() { close(m.ready) })
}

// add creates and registers the thermostat deviceID.
func (m *thermostatManager) add(deviceID string, snap nest.Snapshot) error {
	device := snap.Device(deviceID)
	structure := snap.Structure(device.StructureID)
	name := m.opts.Config.ThermostatName(deviceID)
	if name == "" {
		name = device.Name
	}

	// Held until the HomeKit server owns the accessory, so FreezeHomeKit
	// cannot slip between the check and AddThermostat.
	m.mu.Lock()
	defer m.mu.Unlock()
	useHomeKit := m.opts.HomeKit != nil && !m.homekitFrozen

	var (
		svc   characteristic.Service
		hkSvc *homekit.Service
	)
	if useHomeKit {
		hkSvc = homekit.NewService(name)
		svc = hkSvc
	} else {
		svc = characteristic.NewService(name)
	}

	t, err := accessory.New(accessory.Options{
		Transport: m.opts.Transport,
		Service:   svc,
		Device:    device,
		Structure: structure,
		Name:      name,
		Logger:    m.log.With("thermostat", name),
		Context:   m.ctx,
	})
	if err != nil {
		return fmt.Errorf("creating accessory: %w", err)
	}
	if err := m.opts.Registry.Add(t); err != nil {
		return err
	}

	if hkSvc != nil {
		if err := m.opts.HomeKit.AddThermostat(t, hkSvc); err != nil {
			return err
		}
	} else if m.opts.HomeKit != nil {
		m.log.Warn("thermostat appeared after HomeKit started; restart to expose it",
			"device_id", deviceID,
			"name", name,
		)
	}

	if m.opts.Bridge != nil {
		if err := m.opts.Bridge.Attach(t); err != nil {
			return fmt.Errorf("attaching to MQTT bridge: %w", err)
		}
	}
	return nil
}

// FreezeHomeKit marks the HomeKit accessory list as fixed. It waits for an
// add in progress, so the list is complete once it returns.
func (m *thermostatManager) FreezeHomeKit() {
	m.mu.Lock()
	m.homekitFrozen = true
	m.mu.Unlock()
}

// WaitReady blocks until the first snapshot has been handled. A value on
// streamErr means the stream gave up before any snapshot arrived.
func (m *thermostatManager) WaitReady(ctx context.Context, timeout time.Duration, streamErr <-chan error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case err := <-streamErr:
		if err == nil {
			return errStreamEnded
		}
		return err
	case <-timer.C:
		return fmt.Errorf("no snapshot after %v", timeout)
	}
}

// HealthCheck reports whether a snapshot has arrived.
func (m *thermostatManager) HealthCheck(_ context.Context) error {
	select {
	case <-m.ready:
		return nil
	default:
		return errNoSnapshot
	}
}

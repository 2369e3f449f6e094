package homekit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/brutella/hap"
	hapaccessory "github.com/brutella/hap/accessory"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/infrastructure/config"
)

// Accessory information reported to HomeKit.
const (
	manufacturer = "Nest"
	model        = "Thermostat"
)

// bridgeID is the HAP accessory ID reserved for the bridge itself.
const bridgeID = 1

// ErrServing is returned by AddThermostat once ListenAndServe has taken
// the accessory list. HAP cannot add accessories to a running bridge.
var ErrServing = errors.New("homekit: server already started")

// Logger defines the logging interface used by Server.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Server publishes thermostats as HomeKit accessories behind a bridge.
type Server struct {
	cfg    config.HomeKitConfig
	logger Logger
	bridge *hapaccessory.Bridge

	mu          sync.Mutex
	accessories []*hapaccessory.A
	ids         map[uint64]string
	serving     bool
}

// NewServer creates a Server. Thermostats are added with AddThermostat
// before ListenAndServe.
func NewServer(cfg config.HomeKitConfig, version string, logger Logger) *Server {
	if logger == nil {
		logger = noopLogger{}
	}
	bridge := hapaccessory.NewBridge(hapaccessory.Info{
		Name:         cfg.BridgeName,
		Manufacturer: manufacturer,
		Model:        "Bridge",
		Firmware:     version,
	})
	bridge.Id = bridgeID

	return &Server{
		cfg:    cfg,
		logger: logger,
		bridge: bridge,
		ids:    make(map[uint64]string),
	}
}

// AddThermostat exposes t, whose characteristics must live in svc.
//
// The accessory ID is derived from the thermostat's stable UUID so pairings
// survive restarts.
func (s *Server) AddThermostat(t *accessory.Thermostat, svc *Service) error {
	id := AccessoryID(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serving {
		return fmt.Errorf("%w: cannot add %s", ErrServing, t.DeviceID())
	}
	if other, ok := s.ids[id]; ok {
		return fmt.Errorf("homekit: accessory id %d of %s already used by %s", id, t.DeviceID(), other)
	}

	a := hapaccessory.New(hapaccessory.Info{
		Name:         t.Name(),
		SerialNumber: t.DeviceID(),
		Manufacturer: manufacturer,
		Model:        model,
	}, hapaccessory.TypeThermostat)
	a.Id = id
	a.AddS(svc.HAP())

	s.accessories = append(s.accessories, a)
	s.ids[id] = t.DeviceID()
	return nil
}

// AccessoryID returns the HAP accessory ID for t.
func AccessoryID(t *accessory.Thermostat) uint64 {
	u := t.UUID()
	id := binary.BigEndian.Uint64(u[:8])
	if id <= bridgeID {
		id += bridgeID + 1
	}
	return id
}

// Len returns the number of thermostat accessories.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accessories)
}

// ListenAndServe runs the HAP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	s.serving = true
	accs := make([]*hapaccessory.A, len(s.accessories))
	copy(accs, s.accessories)
	s.mu.Unlock()

	server, err := hap.NewServer(hap.NewFsStore(s.cfg.StoragePath), s.bridge.A, accs...)
	if err != nil {
		return fmt.Errorf("homekit: creating server: %w", err)
	}
	server.Pin = s.cfg.Pin
	if s.cfg.Port > 0 {
		server.Addr = fmt.Sprintf(":%d", s.cfg.Port)
	}

	s.logger.Info("homekit server starting",
		"bridge", s.cfg.BridgeName,
		"accessories", len(accs),
		"storage", s.cfg.StoragePath,
	)

	err = server.ListenAndServe(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("homekit: %w", err)
	}
	return nil
}

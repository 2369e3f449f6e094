package homekit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	hapchar "github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"

	"github.com/redec/homebridge-nest/internal/characteristic"
)

// HAP status codes returned from characteristic request handlers.
const (
	statusSuccess              = 0
	statusReadOnly             = -70404
	statusCommunicationFailure = -70402
	statusOperationTimedOut    = -70408
	statusInvalidValue         = -70410
)

// AwayType is the characteristic type UUID used for the Away switch. It is
// not a standard HAP characteristic, so Home shows it only in third-party
// apps.
const AwayType = "D8D9C2E6-4B6F-4E0A-9C41-6E6573744177"

// requestTimeout bounds a controller read or write.
const requestTimeout = 10 * time.Second

// Service is a characteristic.Service backed by a HAP thermostat service.
// Values stored by the accessory are pushed to paired controllers; reads
// and writes from controllers run the accessory's handlers.
type Service struct {
	name string
	hap  *service.Thermostat

	mu    sync.Mutex
	chars map[characteristic.ID]*characteristic.Base
}

// NewService creates a HAP thermostat service carrying the standard
// thermostat characteristics plus current humidity.
func NewService(name string) *Service {
	svc := service.NewThermostat()
	humidity := hapchar.NewCurrentRelativeHumidity()
	svc.AddC(humidity.C)

	s := &Service{
		name:  name,
		hap:   svc,
		chars: make(map[characteristic.ID]*characteristic.Base, len(characteristic.Standard)+1),
	}

	s.bind(characteristic.TemperatureDisplayUnits, svc.TemperatureDisplayUnits.C, func(v any) {
		if i, err := characteristic.Int(v); err == nil {
			svc.TemperatureDisplayUnits.SetValue(i)
		}
	})
	s.bind(characteristic.CurrentTemperature, svc.CurrentTemperature.C, func(v any) {
		if f, err := characteristic.Float(v); err == nil {
			svc.CurrentTemperature.SetValue(f)
		}
	})
	s.bind(characteristic.CurrentHeatingCoolingState, svc.CurrentHeatingCoolingState.C, func(v any) {
		if i, err := characteristic.Int(v); err == nil {
			svc.CurrentHeatingCoolingState.SetValue(i)
		}
	})
	s.bind(characteristic.CurrentRelativeHumidity, humidity.C, func(v any) {
		if f, err := characteristic.Float(v); err == nil {
			humidity.SetValue(f)
		}
	})
	s.bind(characteristic.TargetTemperature, svc.TargetTemperature.C, func(v any) {
		if f, err := characteristic.Float(v); err == nil {
			svc.TargetTemperature.SetValue(f)
		}
	})
	s.bind(characteristic.TargetHeatingCoolingState, svc.TargetHeatingCoolingState.C, func(v any) {
		if i, err := characteristic.Int(v); err == nil {
			svc.TargetHeatingCoolingState.SetValue(i)
		}
	})

	return s
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.name
}

// HAP returns the underlying HAP service.
func (s *Service) HAP() *service.S {
	return s.hap.S
}

// Characteristic returns the characteristic with the given ID.
func (s *Service) Characteristic(id characteristic.ID) (characteristic.Characteristic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chars[id]
	if !ok {
		return nil, characteristic.ErrUnknownCharacteristic
	}
	return c, nil
}

// AddCharacteristic adds a characteristic outside the standard set. Only
// Away is supported; it is exposed as a custom bool characteristic.
func (s *Service) AddCharacteristic(id characteristic.ID) (characteristic.Characteristic, error) {
	s.mu.Lock()
	c, ok := s.chars[id]
	s.mu.Unlock()
	if ok {
		return c, nil
	}
	if id != characteristic.Away {
		return nil, characteristic.ErrUnknownCharacteristic
	}

	away := hapchar.NewBool(AwayType)
	away.Permissions = []string{hapchar.PermissionRead, hapchar.PermissionWrite, hapchar.PermissionEvents}
	away.Description = "Away"
	s.hap.AddC(away.C)

	return s.bind(characteristic.Away, away.C, func(v any) {
		if b, err := characteristic.Bool(v); err == nil {
			away.SetValue(b)
		}
	}), nil
}

// bind creates the Base for id and connects it to the HAP characteristic c.
// push copies refreshed values into c, which notifies controllers.
func (s *Service) bind(id characteristic.ID, c *hapchar.C, push func(any)) *characteristic.Base {
	base := characteristic.New(id)
	base.Mirror(push)

	c.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		v, err := base.Fetch(ctx)
		if err != nil {
			return nil, statusCode(err)
		}
		return v, statusSuccess
	}
	c.SetValueRequestFunc = func(v interface{}, _ *http.Request) (interface{}, int) {
		value, err := characteristic.Normalize(id, v)
		if err != nil {
			return nil, statusInvalidValue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := base.Write(ctx, value); err != nil {
			return nil, statusCode(err)
		}
		return nil, statusSuccess
	}

	s.mu.Lock()
	s.chars[id] = base
	s.mu.Unlock()
	return base
}

// statusCode maps a handler error to a HAP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, characteristic.ErrReadOnly):
		return statusReadOnly
	case errors.Is(err, characteristic.ErrInvalidValue):
		return statusInvalidValue
	case errors.Is(err, context.DeadlineExceeded):
		return statusOperationTimedOut
	default:
		return statusCommunicationFailure
	}
}

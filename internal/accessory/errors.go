package accessory

import "errors"

// Domain-specific errors for thermostat accessories.
var (
	// ErrMissingTransport is returned by New without a transport.
	ErrMissingTransport = errors.New("accessory: transport is required")

	// ErrMissingService is returned by New without a characteristic service.
	ErrMissingService = errors.New("accessory: service is required")

	// ErrMissingSnapshot is returned by New without an initial device or
	// structure snapshot.
	ErrMissingSnapshot = errors.New("accessory: initial device and structure snapshots are required")

	// ErrUpdateFailed wraps transport failures reported to set callbacks.
	ErrUpdateFailed = errors.New("accessory: nest update failed")

	// ErrNotBound is returned when asking for a characteristic the
	// thermostat does not bind.
	ErrNotBound = errors.New("accessory: characteristic not bound")

	// ErrThermostatNotFound is returned by registry lookups.
	ErrThermostatNotFound = errors.New("accessory: thermostat not found")

	// ErrDuplicateThermostat is returned when registering a device ID twice.
	ErrDuplicateThermostat = errors.New("accessory: thermostat already registered")
)

package bridge

import "errors"

// Domain-specific errors for the MQTT bridge.
var (
	// ErrMissingMQTT is returned by New without an MQTT client.
	ErrMissingMQTT = errors.New("bridge: mqtt client is required")

	// ErrMissingRegistry is returned by New without a thermostat registry.
	ErrMissingRegistry = errors.New("bridge: registry is required")

	// ErrInvalidCommand is returned for a command payload that cannot be used.
	ErrInvalidCommand = errors.New("bridge: invalid command")

	// ErrStopped is returned for a command that arrives after Stop.
	ErrStopped = errors.New("bridge: stopped")
)

package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when telemetry is switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the server does not answer the
	// initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrClosed is reported by HealthCheck after Close or on a zero Client.
	ErrClosed = errors.New("influxdb: client closed")

	// ErrUnhealthy is reported when the server answers a ping but is not
	// ready to accept samples.
	ErrUnhealthy = errors.New("influxdb: server not healthy")
)

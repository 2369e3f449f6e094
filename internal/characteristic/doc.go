// Package characteristic defines the contract between a thermostat accessory
// and the host that stores and publishes its characteristic values.
//
// A Service is a named set of characteristics. A Characteristic holds one
// value and three kinds of handler:
//
//   - a get handler, run when the host needs a fresh value (GetValue, Fetch)
//   - a set handler, run when a client writes a new value (SetValue, Write)
//   - change handlers, run whenever the stored value actually changes
//
// Get and set handlers complete through a callback, so an implementation may
// finish the work on another goroutine. Change handlers run on the goroutine
// that stored the value.
//
// Base is a ready-made Characteristic that host adapters embed. NewService
// returns an in-memory Service built from Base values. It backs the MQTT
// mirror and the HTTP API when no HomeKit host is configured, and is the
// container used in tests.
//
// Thread Safety: All exported methods are safe for concurrent use.
package characteristic

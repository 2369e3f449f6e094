// Package thermostat maps Nest thermostat data onto HomeKit-style
// characteristic values and back again.
//
// The package is pure: it never performs I/O. Read functions turn a
// DeviceSnapshot or StructureSnapshot into the value a characteristic should
// expose. Write functions turn a characteristic write into a Command, which
// names the remote field path and the value to store there. Issuing the
// command is the caller's job.
//
// # Units
//
// Every temperature crossing the package boundary on the characteristic side
// is in degrees Celsius. The snapshot carries both Celsius and Fahrenheit
// fields. The temperature_scale field decides which one is read, and which
// one a write targets:
//
//	°C = (°F - 32) / 1.8
//	°F = °C * 1.8 + 32
//
// Fahrenheit writes are rounded to the nearest whole degree. Celsius writes
// are rounded to the nearest half degree.
//
// # Heat-cool mode
//
// When hvac_mode is "heat-cool" the thermostat holds a low and a high
// setpoint instead of a single target. A single target temperature is
// presented by picking the setpoint closer to the ambient temperature:
//
//	chosen = |high - ambient| < |ambient - low| ? high : low
//
// Ties go to the low setpoint. Writes use the same comparison against the
// latest snapshot to decide which of the two fields to update.
//
// # Defaults
//
// Unknown enum strings never produce an error. They map to Off, false or
// Celsius as documented on each function.
package thermostat

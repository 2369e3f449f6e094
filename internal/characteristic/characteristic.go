package characteristic

import "context"

// ID names a characteristic.
type ID string

// Characteristics exposed by a thermostat accessory.
const (
	TemperatureDisplayUnits    ID = "TemperatureDisplayUnits"
	CurrentTemperature         ID = "CurrentTemperature"
	CurrentHeatingCoolingState ID = "CurrentHeatingCoolingState"
	CurrentRelativeHumidity    ID = "CurrentRelativeHumidity"
	TargetTemperature          ID = "TargetTemperature"
	TargetHeatingCoolingState  ID = "TargetHeatingCoolingState"

	// Away is not part of the standard thermostat service and has to be
	// added with Service.AddCharacteristic.
	Away ID = "Away"
)

// Standard lists the characteristics a thermostat service carries without
// any AddCharacteristic call.
var Standard = []ID{
	TemperatureDisplayUnits,
	CurrentTemperature,
	CurrentHeatingCoolingState,
	CurrentRelativeHumidity,
	TargetTemperature,
	TargetHeatingCoolingState,
}

// ParseID returns the ID named by s.
func ParseID(s string) (ID, error) {
	id := ID(s)
	switch id {
	case TemperatureDisplayUnits, CurrentTemperature, CurrentHeatingCoolingState,
		CurrentRelativeHumidity, TargetTemperature, TargetHeatingCoolingState, Away:
		return id, nil
	default:
		return "", ErrUnknownCharacteristic
	}
}

// GetCallback completes a get handler.
type GetCallback func(value any, err error)

// GetHandler produces the current value of a characteristic.
type GetHandler func(done GetCallback)

// SetCallback completes a set handler. A nil error accepts the write.
type SetCallback func(err error)

// SetHandler applies a client write.
type SetHandler func(value any, done SetCallback)

// Change describes a stored value that differs from the previous one.
type Change struct {
	ID       ID
	OldValue any
	NewValue any
}

// ChangeHandler observes value changes.
type ChangeHandler func(Change)

// Characteristic is a single observable, optionally writable value.
type Characteristic interface {
	// ID returns the characteristic's name.
	ID() ID

	// OnGet installs the get handler, replacing any previous one.
	OnGet(GetHandler) Characteristic

	// OnSet installs the set handler, replacing any previous one.
	OnSet(SetHandler) Characteristic

	// OnChange adds a change handler. Handlers run in registration order.
	OnChange(ChangeHandler) Characteristic

	// GetValue runs the get handler now and stores its result. The host is
	// told about the new value and change handlers fire if it differs.
	GetValue()

	// Fetch runs the get handler and returns its result once complete.
	Fetch(ctx context.Context) (any, error)

	// SetValue runs the set handler with value. On success the value is
	// stored. done may be nil.
	SetValue(value any, done SetCallback)

	// Write is SetValue that waits for completion or ctx.
	Write(ctx context.Context, value any) error

	// Value returns the last stored value.
	Value() any
}

// Service is a container of characteristics.
type Service interface {
	// Characteristic returns the characteristic with the given ID.
	Characteristic(id ID) (Characteristic, error)

	// AddCharacteristic registers a characteristic that is not part of the
	// standard set. Adding an ID twice returns the existing one.
	AddCharacteristic(id ID) (Characteristic, error)
}

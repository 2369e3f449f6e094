package thermostat

// HVAC state strings reported in hvac_state.
const (
	HVACStateOff     = "off"
	HVACStateHeating = "heating"
	HVACStateCooling = "cooling"
)

// HVAC mode strings reported in, and written to, hvac_mode.
const (
	HVACModeOff      = "off"
	HVACModeHeat     = "heat"
	HVACModeCool     = "cool"
	HVACModeHeatCool = "heat-cool"
)

// Away strings reported in, and written to, a structure's away field.
const (
	AwayHome     = "home"
	AwayAway     = "away"
	AwayAutoAway = "auto-away"
)

// Temperature scale strings reported in temperature_scale.
const (
	ScaleCelsius    = "C"
	ScaleFahrenheit = "F"
)

// DeviceSnapshot is the latest set of fields reported for one thermostat.
//
// Temperatures are present in both units. The scale field says which unit
// the user sees, and which unit the device expects on writes.
type DeviceSnapshot struct {
	DeviceID    string `json:"device_id"`
	Name        string `json:"name"`
	StructureID string `json:"structure_id"`

	HVACState string `json:"hvac_state"`
	HVACMode  string `json:"hvac_mode"`

	AmbientTemperatureC float64 `json:"ambient_temperature_c"`
	AmbientTemperatureF float64 `json:"ambient_temperature_f"`

	TargetTemperatureC float64 `json:"target_temperature_c"`
	TargetTemperatureF float64 `json:"target_temperature_f"`

	TargetTemperatureLowC  float64 `json:"target_temperature_low_c"`
	TargetTemperatureLowF  float64 `json:"target_temperature_low_f"`
	TargetTemperatureHighC float64 `json:"target_temperature_high_c"`
	TargetTemperatureHighF float64 `json:"target_temperature_high_f"`

	Humidity         float64 `json:"humidity"`
	TemperatureScale string  `json:"temperature_scale"`
}

// StructureSnapshot is the latest set of fields reported for a structure
// (a home) that owns one or more thermostats.
type StructureSnapshot struct {
	StructureID string `json:"structure_id"`
	Name        string `json:"name,omitempty"`
	Away        string `json:"away"`
}

// HeatingCoolingState is the operating state of a thermostat. The numeric
// values match HomeKit's TargetHeatingCoolingState, where HeatAndCool is
// reported as Auto.
type HeatingCoolingState int

const (
	StateOff         HeatingCoolingState = 0
	StateHeat        HeatingCoolingState = 1
	StateCool        HeatingCoolingState = 2
	StateHeatAndCool                     = StateHeat | StateCool
)

// TemperatureUnit is the display unit of a thermostat. The numeric values
// match HomeKit's TemperatureDisplayUnits.
type TemperatureUnit int

const (
	UnitCelsius    TemperatureUnit = 0
	UnitFahrenheit TemperatureUnit = 1
)

// Setpoint names which target field a temperature write lands in.
type Setpoint int

const (
	SetpointSingle Setpoint = iota
	SetpointLow
	SetpointHigh
)

// String returns the word used in log lines ("", "low" or "high").
func (s Setpoint) String() string {
	switch s {
	case SetpointLow:
		return "low"
	case SetpointHigh:
		return "high"
	default:
		return ""
	}
}

// Command is a single remote write: store Value at Path.
type Command struct {
	Path  string
	Value any

	// Setpoint is set on temperature commands only.
	Setpoint Setpoint
}

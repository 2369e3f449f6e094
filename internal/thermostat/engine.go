package thermostat

import (
	"math"
	"strings"
)

// UsesFahrenheit reports whether the thermostat is set to display °F.
func (d DeviceSnapshot) UsesFahrenheit() bool {
	return d.TemperatureScale == ScaleFahrenheit
}

// CurrentOperatingState maps hvac_state. Unknown values map to StateOff.
func (d DeviceSnapshot) CurrentOperatingState() HeatingCoolingState {
	switch d.HVACState {
	case HVACStateHeating:
		return StateHeat
	case HVACStateCooling:
		return StateCool
	default:
		return StateOff
	}
}

// TargetOperatingState maps hvac_mode. Unknown values map to StateOff.
func (d DeviceSnapshot) TargetOperatingState() HeatingCoolingState {
	switch d.HVACMode {
	case HVACModeHeat:
		return StateHeat
	case HVACModeCool:
		return StateCool
	case HVACModeHeatCool:
		return StateHeatAndCool
	default:
		return StateOff
	}
}

// DisplayUnit maps temperature_scale. Unknown values map to UnitCelsius.
func (d DeviceSnapshot) DisplayUnit() TemperatureUnit {
	if d.UsesFahrenheit() {
		return UnitFahrenheit
	}
	return UnitCelsius
}

// CurrentTemperature returns the ambient temperature in °C.
func (d DeviceSnapshot) CurrentTemperature() float64 {
	return d.celsius(d.AmbientTemperatureC, d.AmbientTemperatureF)
}

// CurrentHumidity returns the relative humidity in percent.
func (d DeviceSnapshot) CurrentHumidity() float64 {
	return d.Humidity
}

// TargetTemperature returns the target temperature in °C. In heat-cool mode
// this is whichever setpoint is closer to the ambient temperature.
func (d DeviceSnapshot) TargetTemperature() float64 {
	if d.TargetOperatingState() == StateHeatAndCool {
		low, high := d.setpoints()
		v, _ := ClosestSetpoint(low, high, d.CurrentTemperature())
		return v
	}
	return d.celsius(d.TargetTemperatureC, d.TargetTemperatureF)
}

// setpoints returns the low and high setpoints in °C.
func (d DeviceSnapshot) setpoints() (low, high float64) {
	return d.celsius(d.TargetTemperatureLowC, d.TargetTemperatureLowF),
		d.celsius(d.TargetTemperatureHighC, d.TargetTemperatureHighF)
}

func (d DeviceSnapshot) celsius(c, f float64) float64 {
	if d.UsesFahrenheit() {
		return FahrenheitToCelsius(f)
	}
	return c
}

// ClosestSetpoint picks the setpoint nearer to current. The high setpoint
// wins only when strictly closer; ties return low. isHigh reports which one
// was chosen.
func ClosestSetpoint(low, high, current float64) (value float64, isHigh bool) {
	if math.Abs(high-current) < math.Abs(current-low) {
		return high, true
	}
	return low, false
}

// IsAway maps a structure's away field. "away" and "auto-away" are away,
// anything else is home.
func (s StructureSnapshot) IsAway() bool {
	switch s.Away {
	case AwayAway, AwayAutoAway:
		return true
	default:
		return false
	}
}

// ThermostatPath returns the remote path of a thermostat field.
func ThermostatPath(deviceID, field string) string {
	return "devices/thermostats/" + deviceID + "/" + field
}

// StructurePath returns the remote path of a structure field.
func StructurePath(structureID, field string) string {
	return "structures/" + structureID + "/" + field
}

// TargetOperatingStateCommand builds the hvac_mode write for state.
// Values outside the four known states write "off".
func TargetOperatingStateCommand(deviceID string, state HeatingCoolingState) Command {
	var mode string
	switch state {
	case StateHeatAndCool:
		mode = HVACModeHeatCool
	case StateHeat:
		mode = HVACModeHeat
	case StateCool:
		mode = HVACModeCool
	default:
		mode = HVACModeOff
	}
	return Command{Path: ThermostatPath(deviceID, "hvac_mode"), Value: mode}
}

// TargetTemperatureCommand builds the write for a new target temperature
// given in °C.
//
// The value is converted to the snapshot's scale and rounded. In heat-cool
// mode the setpoint closest to the ambient temperature, judged against the
// stored low and high values, is the one replaced.
func (d DeviceSnapshot) TargetTemperatureCommand(celsius float64) Command {
	unit := "c"
	if d.UsesFahrenheit() {
		unit = "f"
	}

	field := "target_temperature_" + unit
	setpoint := SetpointSingle
	if d.TargetOperatingState() == StateHeatAndCool {
		low, high := d.setpoints()
		if _, isHigh := ClosestSetpoint(low, high, d.CurrentTemperature()); isHigh {
			setpoint = SetpointHigh
		} else {
			setpoint = SetpointLow
		}
		field = "target_temperature_" + setpoint.String() + "_" + unit
	}

	return Command{
		Path:     ThermostatPath(d.DeviceID, field),
		Value:    roundForScale(celsius, d.TemperatureScale),
		Setpoint: setpoint,
	}
}

// AwayCommand builds the write for a structure's away flag.
func AwayCommand(structureID string, away bool) Command {
	v := AwayHome
	if away {
		v = AwayAway
	}
	return Command{Path: StructurePath(structureID, "away"), Value: v}
}

// Describe returns the log line announcing cmd for the named thermostat.
func (c Command) Describe(name string) string {
	var b strings.Builder
	b.WriteString("Setting ")
	switch {
	case strings.HasSuffix(c.Path, "/hvac_mode"):
		b.WriteString("target heating cooling")
	case strings.HasSuffix(c.Path, "/away"):
		b.WriteString("Away")
	default:
		if s := c.Setpoint.String(); s != "" {
			b.WriteString(s)
			b.WriteByte(' ')
		}
		b.WriteString("target temperature")
	}
	b.WriteString(" for ")
	b.WriteString(name)
	b.WriteString(" to: ")
	b.WriteString(FormatValue(c.Value))
	return b.String()
}

package thermostat

import (
	"fmt"
	"strconv"
)

// FormatValue renders a characteristic value for logs. Floats use the
// shortest representation ("21.5", "70").
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// FormatTemperature renders a °C value in the unit the user sees, e.g.
// "21.5 C" or "70.7 F".
func FormatTemperature(celsius float64, fahrenheit bool) string {
	if fahrenheit {
		return FormatValue(CelsiusToFahrenheit(celsius)) + " F"
	}
	return FormatValue(celsius) + " C"
}

// FormatHumidity renders a relative humidity, e.g. "45%".
func FormatHumidity(v float64) string {
	return FormatValue(v) + "%"
}

// String returns Off, Heating, Cooling or Heating/Cooling.
func (s HeatingCoolingState) String() string {
	switch s {
	case StateHeat:
		return "Heating"
	case StateCool:
		return "Cooling"
	case StateHeatAndCool:
		return "Heating/Cooling"
	default:
		return "Off"
	}
}

// String returns Celsius or Fahrenheit.
func (u TemperatureUnit) String() string {
	if u == UnitFahrenheit {
		return "Fahrenheit"
	}
	return "Celsius"
}

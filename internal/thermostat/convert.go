package thermostat

import "math"

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(t float64) float64 {
	return t*1.8 + 32
}

// FahrenheitToCelsius converts °F to °C.
func FahrenheitToCelsius(t float64) float64 {
	return (t - 32) / 1.8
}

// roundHalfUp rounds to the nearest integer, with .5 going towards +Inf.
// math.Round sends -0.5 to -1, which would disagree with the device for
// sub-zero Celsius setpoints.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// roundForScale converts a Celsius temperature into the value the device
// expects for the given scale.
func roundForScale(celsius float64, scale string) float64 {
	if scale == ScaleFahrenheit {
		return roundHalfUp(CelsiusToFahrenheit(celsius))
	}
	return roundHalfUp(celsius*2) / 2
}

package characteristic

import (
	"encoding/json"
	"fmt"
)

// Float converts a written value to float64. JSON and HAP clients deliver
// numbers in several Go types.
func Float(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrInvalidValue, v)
	}
}

// Int converts a written value to int. Fractional numbers are rejected.
func Int(v any) (int, error) {
	f, err := Float(v)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%w: want integer, got %v", ErrInvalidValue, f)
	}
	return int(f), nil
}

// Bool converts a written value to bool. HomeKit clients sometimes send
// booleans as 0 or 1.
func Bool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	i, err := Int(v)
	if err != nil {
		return false, fmt.Errorf("%w: want bool, got %T", ErrInvalidValue, v)
	}
	switch i {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: want bool, got %d", ErrInvalidValue, i)
	}
}

// Normalize converts a written value to the native type of id: int for
// states and units, float64 for temperature and humidity, bool for Away.
func Normalize(id ID, v any) (any, error) {
	switch id {
	case TemperatureDisplayUnits, CurrentHeatingCoolingState, TargetHeatingCoolingState:
		return Int(v)
	case CurrentTemperature, CurrentRelativeHumidity, TargetTemperature:
		return Float(v)
	case Away:
		return Bool(v)
	default:
		return nil, ErrUnknownCharacteristic
	}
}

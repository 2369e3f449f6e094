package accessory

import (
	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/thermostat"
)

// snapshots is the immutable pair the getters read. It is replaced whole.
type snapshots struct {
	device    *thermostat.DeviceSnapshot
	structure *thermostat.StructureSnapshot
}

// binding ties one characteristic to the mapping functions.
type binding struct {
	id          characteristic.ID
	description string
	char        characteristic.Characteristic

	get    func(s *snapshots) any
	set    func(s *snapshots, value any) (thermostat.Command, error)
	format func(s *snapshots, value any) string
}

// bindingSpec lists the characteristics every thermostat exposes, in the
// order they are bound and refreshed. Away is last because the service has
// to be extended with it first.
var bindingSpec = []binding{
	{
		id:          characteristic.TemperatureDisplayUnits,
		description: "Temperature unit",
		get: func(s *snapshots) any {
			return int(s.device.DisplayUnit())
		},
		format: func(_ *snapshots, v any) string {
			i, err := characteristic.Int(v)
			if err != nil {
				return thermostat.FormatValue(v)
			}
			return thermostat.TemperatureUnit(i).String()
		},
	},
	{
		id:          characteristic.CurrentTemperature,
		description: "Current temperature",
		get: func(s *snapshots) any {
			return s.device.CurrentTemperature()
		},
		format: formatTemperature,
	},
	{
		id:          characteristic.CurrentHeatingCoolingState,
		description: "Current heating",
		get: func(s *snapshots) any {
			return int(s.device.CurrentOperatingState())
		},
		format: formatHeatingCooling,
	},
	{
		id:          characteristic.CurrentRelativeHumidity,
		description: "Current humidity",
		get: func(s *snapshots) any {
			return s.device.CurrentHumidity()
		},
		format: func(_ *snapshots, v any) string {
			f, err := characteristic.Float(v)
			if err != nil {
				return thermostat.FormatValue(v)
			}
			return thermostat.FormatHumidity(f)
		},
	},
	{
		id:          characteristic.TargetTemperature,
		description: "Target temperature",
		get: func(s *snapshots) any {
			return s.device.TargetTemperature()
		},
		set: func(s *snapshots, v any) (thermostat.Command, error) {
			celsius, err := characteristic.Float(v)
			if err != nil {
				return thermostat.Command{}, err
			}
			return s.device.TargetTemperatureCommand(celsius), nil
		},
		format: formatTemperature,
	},
	{
		id:          characteristic.TargetHeatingCoolingState,
		description: "Target heating",
		get: func(s *snapshots) any {
			return int(s.device.TargetOperatingState())
		},
		set: func(s *snapshots, v any) (thermostat.Command, error) {
			state, err := characteristic.Int(v)
			if err != nil {
				return thermostat.Command{}, err
			}
			return thermostat.TargetOperatingStateCommand(s.device.DeviceID, thermostat.HeatingCoolingState(state)), nil
		},
		format: formatHeatingCooling,
	},
	{
		id:          characteristic.Away,
		description: "Away",
		get: func(s *snapshots) any {
			return s.structure.IsAway()
		},
		set: func(s *snapshots, v any) (thermostat.Command, error) {
			away, err := characteristic.Bool(v)
			if err != nil {
				return thermostat.Command{}, err
			}
			return thermostat.AwayCommand(s.structure.StructureID, away), nil
		},
	},
}

func formatTemperature(s *snapshots, v any) string {
	f, err := characteristic.Float(v)
	if err != nil {
		return thermostat.FormatValue(v)
	}
	return thermostat.FormatTemperature(f, s.device.UsesFahrenheit())
}

func formatHeatingCooling(_ *snapshots, v any) string {
	i, err := characteristic.Int(v)
	if err != nil {
		return thermostat.FormatValue(v)
	}
	return thermostat.HeatingCoolingState(i).String()
}

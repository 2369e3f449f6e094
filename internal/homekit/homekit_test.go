package homekit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/infrastructure/config"
	"github.com/redec/homebridge-nest/internal/thermostat"
)

type fakeTransport struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeTransport) Update(_ context.Context, path string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

func device(id string) *thermostat.DeviceSnapshot {
	return &thermostat.DeviceSnapshot{
		DeviceID:            id,
		Name:                "Hallway",
		StructureID:         "str1",
		HVACState:           "cooling",
		HVACMode:            "cool",
		AmbientTemperatureC: 25.5,
		AmbientTemperatureF: 78,
		TargetTemperatureC:  23,
		TargetTemperatureF:  73,
		Humidity:            55,
		TemperatureScale:    "F",
	}
}

func newBound(t *testing.T, transport accessory.Transport, id string) (*accessory.Thermostat, *Service) {
	t.Helper()
	svc := NewService("Hallway")
	th, err := accessory.New(accessory.Options{
		Transport: transport,
		Service:   svc,
		Device:    device(id),
		Structure: &thermostat.StructureSnapshot{StructureID: "str1", Away: "away"},
	})
	require.NoError(t, err)
	return th, svc
}

func TestServiceMirrorsValues(t *testing.T) {
	_, svc := newBound(t, &fakeTransport{}, "dev1")

	assert.InDelta(t, 25.0, svc.hap.CurrentTemperature.Value(), 0.1)
	assert.InDelta(t, 23.0, svc.hap.TargetTemperature.Value(), 0.1)
	assert.Equal(t, int(thermostat.StateCool), svc.hap.CurrentHeatingCoolingState.Value())
	assert.Equal(t, int(thermostat.StateCool), svc.hap.TargetHeatingCoolingState.Value())
	assert.Equal(t, int(thermostat.UnitFahrenheit), svc.hap.TemperatureDisplayUnits.Value())

	away, err := svc.Characteristic(characteristic.Away)
	require.NoError(t, err)
	assert.Equal(t, true, away.Value())
}

func TestServiceCharacteristicLookup(t *testing.T) {
	svc := NewService("Hallway")

	for _, id := range characteristic.Standard {
		_, err := svc.Characteristic(id)
		assert.NoError(t, err, string(id))
	}

	_, err := svc.Characteristic(characteristic.Away)
	assert.ErrorIs(t, err, characteristic.ErrUnknownCharacteristic, "Away needs AddCharacteristic")

	first, err := svc.AddCharacteristic(characteristic.Away)
	require.NoError(t, err)
	second, err := svc.AddCharacteristic(characteristic.Away)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = svc.AddCharacteristic("FanSpeed")
	assert.ErrorIs(t, err, characteristic.ErrUnknownCharacteristic)
}

func TestControllerRead(t *testing.T) {
	th, svc := newBound(t, &fakeTransport{}, "dev1")

	d := device("dev1")
	d.AmbientTemperatureC = 26
	d.AmbientTemperatureF = 78.8
	th.UpdateData(d, nil)

	v, code := svc.hap.CurrentTemperature.ValueRequestFunc(nil)
	assert.Equal(t, statusSuccess, code)
	require.IsType(t, 0.0, v)
	assert.InDelta(t, 26.0, v.(float64), 0.001)
}

func TestControllerWrite(t *testing.T) {
	transport := &fakeTransport{}
	_, svc := newBound(t, transport, "dev1")

	_, code := svc.hap.TargetHeatingCoolingState.SetValueRequestFunc(1.0, nil)
	assert.Equal(t, statusSuccess, code)

	_, code = svc.hap.TargetTemperature.SetValueRequestFunc(21.0, nil)
	assert.Equal(t, statusSuccess, code)

	assert.Equal(t, []string{
		"devices/thermostats/dev1/hvac_mode",
		"devices/thermostats/dev1/target_temperature_f",
	}, transport.paths)

	_, code = svc.hap.CurrentTemperature.SetValueRequestFunc(20.0, nil)
	assert.Equal(t, statusReadOnly, code)

	_, code = svc.hap.TargetHeatingCoolingState.SetValueRequestFunc("heat", nil)
	assert.Equal(t, statusInvalidValue, code)
}

func TestControllerWriteFailure(t *testing.T) {
	_, svc := newBound(t, &fakeTransport{err: errors.New("503")}, "dev1")

	_, code := svc.hap.TargetHeatingCoolingState.SetValueRequestFunc(2.0, nil)
	assert.Equal(t, statusCommunicationFailure, code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, statusReadOnly, statusCode(characteristic.ErrReadOnly))
	assert.Equal(t, statusInvalidValue, statusCode(characteristic.ErrInvalidValue))
	assert.Equal(t, statusOperationTimedOut, statusCode(context.DeadlineExceeded))
	assert.Equal(t, statusCommunicationFailure, statusCode(accessory.ErrUpdateFailed))
}

func TestServerAddThermostat(t *testing.T) {
	srv := NewServer(config.HomeKitConfig{BridgeName: "Nest", Pin: "03145154"}, "test", nil)

	th1, svc1 := newBound(t, &fakeTransport{}, "dev1")
	th2, svc2 := newBound(t, &fakeTransport{}, "dev2")

	require.NoError(t, srv.AddThermostat(th1, svc1))
	require.NoError(t, srv.AddThermostat(th2, svc2))
	assert.Equal(t, 2, srv.Len())

	assert.Error(t, srv.AddThermostat(th1, svc1), "same device twice")

	assert.Equal(t, AccessoryID(th1), srv.accessories[0].Id)
	assert.NotEqual(t, AccessoryID(th1), AccessoryID(th2))
	assert.Greater(t, AccessoryID(th1), uint64(bridgeID))
}

func TestServerAddThermostatAfterServe(t *testing.T) {
	srv := NewServer(config.HomeKitConfig{BridgeName: "Nest", Pin: "03145154"}, "test", nil)
	th1, svc1 := newBound(t, &fakeTransport{}, "dev1")
	require.NoError(t, srv.AddThermostat(th1, svc1))

	// ListenAndServe marks the list taken before it builds the HAP server.
	srv.mu.Lock()
	srv.serving = true
	srv.mu.Unlock()

	th2, svc2 := newBound(t, &fakeTransport{}, "dev2")
	err := srv.AddThermostat(th2, svc2)
	assert.ErrorIs(t, err, ErrServing)
	assert.Equal(t, 1, srv.Len())
}

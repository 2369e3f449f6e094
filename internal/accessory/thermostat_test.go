package accessory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/redec/homebridge-nest/internal/characteristic"
	"github.com/redec/homebridge-nest/internal/thermostat"
)

// mockTransport records Nest updates.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Update(ctx context.Context, path string, value any) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }

func (l *recordingLogger) contains(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func heatCoolDevice() *thermostat.DeviceSnapshot {
	return &thermostat.DeviceSnapshot{
		DeviceID:               "dev1",
		Name:                   "Hallway",
		StructureID:            "str1",
		HVACState:              "heating",
		HVACMode:               "heat-cool",
		AmbientTemperatureC:    19,
		AmbientTemperatureF:    66,
		TargetTemperatureLowC:  18,
		TargetTemperatureLowF:  64,
		TargetTemperatureHighC: 24,
		TargetTemperatureHighF: 75,
		Humidity:               40,
		TemperatureScale:       "C",
	}
}

func homeStructure() *thermostat.StructureSnapshot {
	return &thermostat.StructureSnapshot{StructureID: "str1", Away: "home"}
}

func newTestThermostat(t *testing.T, transport Transport, logger Logger) (*Thermostat, *characteristic.MemoryService) {
	t.Helper()
	svc := characteristic.NewService("Hallway")
	th, err := New(Options{
		Transport: transport,
		Service:   svc,
		Device:    heatCoolDevice(),
		Structure: homeStructure(),
		Logger:    logger,
	})
	require.NoError(t, err)
	return th, svc
}

func value(t *testing.T, svc characteristic.Service, id characteristic.ID) any {
	t.Helper()
	c, err := svc.Characteristic(id)
	require.NoError(t, err)
	return c.Value()
}

func TestNewValidatesOptions(t *testing.T) {
	svc := characteristic.NewService("x")
	tr := &mockTransport{}

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no transport", Options{Service: svc, Device: heatCoolDevice(), Structure: homeStructure()}, ErrMissingTransport},
		{"no service", Options{Transport: tr, Device: heatCoolDevice(), Structure: homeStructure()}, ErrMissingService},
		{"no device", Options{Transport: tr, Service: svc, Structure: homeStructure()}, ErrMissingSnapshot},
		{"no structure", Options{Transport: tr, Service: svc, Device: heatCoolDevice()}, ErrMissingSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewBindsInOrderAndRefreshes(t *testing.T) {
	th, svc := newTestThermostat(t, &mockTransport{}, nil)

	assert.Equal(t, StateReady, th.State())
	assert.Equal(t, []characteristic.ID{
		characteristic.TemperatureDisplayUnits,
		characteristic.CurrentTemperature,
		characteristic.CurrentHeatingCoolingState,
		characteristic.CurrentRelativeHumidity,
		characteristic.TargetTemperature,
		characteristic.TargetHeatingCoolingState,
		characteristic.Away,
	}, th.BoundCharacteristics())

	assert.Equal(t, int(thermostat.UnitCelsius), value(t, svc, characteristic.TemperatureDisplayUnits))
	assert.Equal(t, 19.0, value(t, svc, characteristic.CurrentTemperature))
	assert.Equal(t, int(thermostat.StateHeat), value(t, svc, characteristic.CurrentHeatingCoolingState))
	assert.Equal(t, 40.0, value(t, svc, characteristic.CurrentRelativeHumidity))
	assert.Equal(t, 18.0, value(t, svc, characteristic.TargetTemperature))
	assert.Equal(t, int(thermostat.StateHeatAndCool), value(t, svc, characteristic.TargetHeatingCoolingState))
	assert.Equal(t, false, value(t, svc, characteristic.Away))

	assert.Equal(t, "Hallway", th.Name())
	assert.Equal(t, "dev1", th.DeviceID())
	assert.Equal(t, "str1", th.StructureID())
	assert.False(t, th.UsesFahrenheit())
}

func TestNewLogsInitialValues(t *testing.T) {
	logger := &recordingLogger{}
	newTestThermostat(t, &mockTransport{}, logger)

	for _, want := range []string{
		"Temperature unit for Hallway is: Celsius",
		"Current temperature for Hallway is: 19 C",
		"Current heating for Hallway is: Heating",
		"Current humidity for Hallway is: 40%",
		"Target temperature for Hallway is: 18 C",
		"Target heating for Hallway is: Heating/Cooling",
		"Away for Hallway is: false",
	} {
		assert.True(t, logger.contains(want), "missing log %q", want)
	}
}

func TestNameOverride(t *testing.T) {
	th, err := New(Options{
		Transport: &mockTransport{},
		Service:   characteristic.NewService("x"),
		Device:    heatCoolDevice(),
		Structure: homeStructure(),
		Name:      "Upstairs",
	})
	require.NoError(t, err)
	assert.Equal(t, "Upstairs", th.Name())
}

func TestStableID(t *testing.T) {
	assert.Equal(t, StableID("dev1"), StableID("dev1"))
	assert.NotEqual(t, StableID("dev1"), StableID("dev2"))

	th, _ := newTestThermostat(t, &mockTransport{}, nil)
	assert.Equal(t, StableID("dev1"), th.UUID())
}

func TestUpdateDataPartial(t *testing.T) {
	th, svc := newTestThermostat(t, &mockTransport{}, nil)

	th.UpdateData(nil, &thermostat.StructureSnapshot{StructureID: "str1", Away: "auto-away"})
	assert.Equal(t, true, value(t, svc, characteristic.Away))
	assert.Equal(t, 19.0, value(t, svc, characteristic.CurrentTemperature), "device snapshot kept")

	dev := heatCoolDevice()
	dev.AmbientTemperatureC = 23
	th.UpdateData(dev, nil)
	assert.Equal(t, 23.0, value(t, svc, characteristic.CurrentTemperature))
	assert.Equal(t, 24.0, value(t, svc, characteristic.TargetTemperature))
	assert.Equal(t, true, value(t, svc, characteristic.Away), "structure snapshot kept")
}

func TestUpdateDataFahrenheit(t *testing.T) {
	th, svc := newTestThermostat(t, &mockTransport{}, nil)

	dev := heatCoolDevice()
	dev.TemperatureScale = "F"
	dev.HVACMode = "heat"
	dev.TargetTemperatureF = 68
	dev.AmbientTemperatureF = 77
	th.UpdateData(dev, nil)

	assert.True(t, th.UsesFahrenheit())
	assert.Equal(t, int(thermostat.UnitFahrenheit), value(t, svc, characteristic.TemperatureDisplayUnits))
	assert.InDelta(t, 20.0, value(t, svc, characteristic.TargetTemperature), 1e-9)
	assert.InDelta(t, 25.0, value(t, svc, characteristic.CurrentTemperature), 1e-9)
}

func TestUpdateDataDoesNotMutateCallerSnapshot(t *testing.T) {
	th, _ := newTestThermostat(t, &mockTransport{}, nil)

	dev := heatCoolDevice()
	th.UpdateData(dev, nil)
	dev.AmbientTemperatureC = 99

	got := th.Device()
	assert.Equal(t, 19.0, got.AmbientTemperatureC)
}

func TestSetTargetTemperatureHeatCool(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, "devices/thermostats/dev1/target_temperature_low_c", 20.0).Return(nil).Once()

	logger := &recordingLogger{}
	th, _ := newTestThermostat(t, tr, logger)

	c, err := th.Characteristic(characteristic.TargetTemperature)
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), 20.0))

	tr.AssertExpectations(t)
	assert.True(t, logger.contains("Setting low target temperature for Hallway to: 20"))
	assert.True(t, logger.contains("nest update applied"))
}

func TestSetTargetHeatingCoolingState(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, "devices/thermostats/dev1/hvac_mode", "cool").Return(nil).Once()

	th, _ := newTestThermostat(t, tr, nil)

	c, err := th.Characteristic(characteristic.TargetHeatingCoolingState)
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), 2.0))

	tr.AssertExpectations(t)
	assert.Equal(t, 2, c.Value())
}

func TestSetAway(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, "structures/str1/away", "away").Return(nil).Once()

	logger := &recordingLogger{}
	th, _ := newTestThermostat(t, tr, logger)

	c, err := th.Characteristic(characteristic.Away)
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), true))

	tr.AssertExpectations(t)
	assert.True(t, logger.contains("Setting Away for Hallway to: away"))
}

func TestSetTransportFailure(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("503")).Once()

	logger := &recordingLogger{}
	th, _ := newTestThermostat(t, tr, logger)

	c, err := th.Characteristic(characteristic.TargetHeatingCoolingState)
	require.NoError(t, err)

	err = c.Write(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUpdateFailed)
	assert.True(t, logger.contains("nest update failed"))
	assert.Equal(t, int(thermostat.StateHeatAndCool), c.Value(), "failed write keeps value")
	tr.AssertNumberOfCalls(t, "Update", 1)
}

func TestSetInvalidValue(t *testing.T) {
	tr := &mockTransport{}
	th, _ := newTestThermostat(t, tr, nil)

	c, err := th.Characteristic(characteristic.TargetTemperature)
	require.NoError(t, err)

	err = c.Write(context.Background(), "warm")
	assert.ErrorIs(t, err, characteristic.ErrInvalidValue)
	tr.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReadOnlyCharacteristics(t *testing.T) {
	th, _ := newTestThermostat(t, &mockTransport{}, nil)

	for _, id := range []characteristic.ID{
		characteristic.TemperatureDisplayUnits,
		characteristic.CurrentTemperature,
		characteristic.CurrentHeatingCoolingState,
		characteristic.CurrentRelativeHumidity,
	} {
		c, err := th.Characteristic(id)
		require.NoError(t, err)
		assert.ErrorIs(t, c.Write(context.Background(), 1), characteristic.ErrReadOnly, string(id))
	}
}

func TestWriteCharacteristicNormalizes(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, "devices/thermostats/dev1/hvac_mode", "cool").Return(nil).Once()

	th, svc := newTestThermostat(t, tr, nil)

	require.NoError(t, th.WriteCharacteristic(context.Background(), characteristic.TargetHeatingCoolingState, 2.0))
	assert.Equal(t, 2, value(t, svc, characteristic.TargetHeatingCoolingState))

	err := th.WriteCharacteristic(context.Background(), characteristic.TargetHeatingCoolingState, 1.5)
	assert.ErrorIs(t, err, characteristic.ErrInvalidValue)

	err = th.WriteCharacteristic(context.Background(), characteristic.CurrentTemperature, 20)
	assert.ErrorIs(t, err, characteristic.ErrReadOnly)

	err = th.WriteCharacteristic(context.Background(), "Nope", 1)
	assert.ErrorIs(t, err, ErrNotBound)

	tr.AssertExpectations(t)
}

func TestCharacteristicNotBound(t *testing.T) {
	th, _ := newTestThermostat(t, &mockTransport{}, nil)
	_, err := th.Characteristic("Nope")
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestValues(t *testing.T) {
	th, _ := newTestThermostat(t, &mockTransport{}, nil)
	values := th.Values()
	assert.Len(t, values, 7)
	assert.Equal(t, 18.0, values[characteristic.TargetTemperature])
}

func TestFetchUsesLatestSnapshot(t *testing.T) {
	th, _ := newTestThermostat(t, &mockTransport{}, nil)

	dev := heatCoolDevice()
	dev.Humidity = 55
	th.UpdateData(dev, nil)

	c, err := th.Characteristic(characteristic.CurrentRelativeHumidity)
	require.NoError(t, err)
	v, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 55.0, v)
}

func TestSnapshotBeforeInitialisationPanics(t *testing.T) {
	var th Thermostat
	assert.Panics(t, func() { th.UsesFahrenheit() })
	assert.Panics(t, func() { th.UpdateData(heatCoolDevice(), nil) })
}

func TestConcurrentUpdatesAndSets(t *testing.T) {
	tr := &mockTransport{}
	tr.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	th, _ := newTestThermostat(t, tr, nil)
	c, err := th.Characteristic(characteristic.TargetTemperature)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			dev := heatCoolDevice()
			dev.AmbientTemperatureC = float64(15 + i%10)
			th.UpdateData(dev, nil)
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Write(context.Background(), float64(18+i%5)))
		}(i)
	}
	wg.Wait()

	for _, call := range tr.Calls {
		path := fmt.Sprint(call.Arguments.Get(1))
		assert.True(t, strings.HasSuffix(path, "_low_c") || strings.HasSuffix(path, "_high_c"), path)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	th, _ := newTestThermostat(t, &mockTransport{}, nil)

	require.NoError(t, r.Add(th))
	assert.ErrorIs(t, r.Add(th), ErrDuplicateThermostat)

	got, err := r.Get("dev1")
	require.NoError(t, err)
	assert.Same(t, th, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrThermostatNotFound)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []*Thermostat{th}, r.List())
}

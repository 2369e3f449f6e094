package influxdb

import (
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ThermostatMeasurement is the measurement every thermostat sample is
// written to. Each characteristic is a field; device_id and name are tags.
const ThermostatMeasurement = "thermostat"

// WriteThermostatSample records one numeric characteristic value. It never
// blocks; the sample is batched and sent in the background.
//
// Non-finite values are dropped, since line protocol cannot carry them.
//
// Example:
//
//	client.WriteThermostatSample("peyiJNo0IldT2YlIVtYaGQ", "Hallway", "CurrentTemperature", 19.5)
func (c *Client) WriteThermostatSample(deviceID, name, characteristic string, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.writer == nil {
		return
	}
	c.writer.WritePoint(thermostatPoint(deviceID, name, characteristic, value, c.now()))
}

func thermostatPoint(deviceID, name, characteristic string, value float64, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(ThermostatMeasurement).
		AddTag("device_id", deviceID).
		AddField(characteristic, value).
		SetTime(ts)
	if name != "" {
		p.AddTag("name", name)
	}
	return p
}

// Package influxdb records thermostat samples in InfluxDB v2.
//
// Every numeric characteristic change becomes one point in the
// "thermostat" measurement:
//
//	thermostat,device_id=dev1,name=Hallway CurrentTemperature=19.5 1700000000000000000
//
// Samples are batched by the influxdb-client-go write API and sent in the
// background. WriteThermostatSample never blocks the caller; failed batches
// are reported to the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteThermostatSample("dev1", "Hallway", "CurrentTemperature", 19.5)
package influxdb

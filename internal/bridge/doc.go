// Package bridge mirrors thermostat accessories onto MQTT.
//
// Every bound characteristic is published as a retained state message:
//
//	{prefix}/state/{device_id}/{characteristic}
//	{"device_id":"dev1","name":"Hallway","characteristic":"CurrentTemperature","value":19.5,"timestamp":"..."}
//
// Clients write characteristics by publishing to {prefix}/command/{device_id}:
//
//	{"id":"c1","characteristic":"TargetTemperature","value":21}
//
// The command runs the characteristic's set path, exactly as a HomeKit
// write would. Progress is acknowledged on {prefix}/ack/{device_id} with
// status "accepted" once validated, then "completed" or "failed".
//
// Numeric values are also handed to an optional MetricWriter, normally the
// InfluxDB client, as they change.
package bridge

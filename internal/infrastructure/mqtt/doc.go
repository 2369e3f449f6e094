// Package mqtt connects the Nest bridge to an MQTT broker.
//
// The bridge mirrors every thermostat characteristic onto retained state
// topics and accepts writes on command topics, so home automation systems
// that speak MQTT can drive the same thermostats HomeKit sees.
//
//	Nest API ↔ nestbridge ↔ MQTT Broker ↔ automations, dashboards
//
// The client keeps three things true across broker restarts: the command
// subscription is re-made after every reconnect, the system status topic
// carries "online" while connected, and the broker publishes "offline" as
// the will if the bridge vanishes.
//
// # Security Considerations
//
//   - Enable TLS when the broker is not on the same host (cfg.Broker.TLS=true)
//   - Anyone able to publish on the command topics can change setpoints;
//     restrict them with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.SubscribeCommands(func(deviceID string, payload []byte) error {
//	    log.Printf("command for %s: %s", deviceID, payload)
//	    return nil
//	})
package mqtt

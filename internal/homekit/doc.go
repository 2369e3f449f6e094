// Package homekit hosts thermostat accessories on a HomeKit accessory
// server built on github.com/brutella/hap.
//
// Service implements characteristic.Service over a HAP thermostat service
// with current humidity and a custom Away characteristic. Values the
// accessory refreshes are pushed to paired controllers, controller reads run
// the accessory's get handlers, and controller writes run its set handlers
// and wait for the Nest answer.
//
// Server groups the accessories behind a single bridge:
//
//	srv := homekit.NewServer(cfg.HomeKit, version, logger)
//	svc := homekit.NewService("Hallway")
//	t, _ := accessory.New(accessory.Options{Service: svc, ...})
//	srv.AddThermostat(t, svc)
//	srv.ListenAndServe(ctx)
package homekit

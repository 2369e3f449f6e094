// Package accessory binds one Nest thermostat to a characteristic service.
//
// A Thermostat owns the ordered list of characteristic bindings. Each binding
// pairs a characteristic with a getter that reads the latest snapshots
// through the thermostat package, an optional setter that turns client
// writes into Nest updates, and a formatter used for change logging.
//
// Lifecycle:
//
//	t, err := accessory.New(accessory.Options{
//	    Transport: nestClient,
//	    Service:   svc,
//	    Device:    &device,
//	    Structure: &structure,
//	    Logger:    logger,
//	})
//	...
//	t.UpdateData(&newDevice, nil) // on every stream update
//
// New binds every characteristic, pushes the initial values and leaves the
// thermostat Ready. UpdateData swaps in new snapshots and pushes values
// again; the service raises change events for anything that moved.
//
// Writes are sent to the transport on their own goroutine. The outcome is
// reported through the characteristic's set callback and logged. Writes are
// not retried, sequenced or cancelled.
//
// Thread Safety: All exported methods are safe for concurrent use. The
// snapshot pair is replaced with a single atomic pointer swap, so getters
// never observe a device snapshot from one update and a structure snapshot
// from another half-applied update.
package accessory

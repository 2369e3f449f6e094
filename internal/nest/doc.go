// Package nest is a client for the Nest developer API.
//
// The API is a Firebase-style tree. Every field has a path such as
// devices/thermostats/<id>/hvac_mode, and a write stores a JSON value at a
// path:
//
//	client, _ := nest.New(cfg.Nest, logger)
//	err := client.Update(ctx, "structures/abc/away", "away")
//
// Reads use the streaming endpoint. The server sends a "put" event holding
// the whole tree whenever anything changes; Stream decodes each one into a
// Snapshot:
//
//	err := client.Stream(ctx, func(s nest.Snapshot) {
//	    ...
//	})
//
// Stream returns when the server closes the connection, the context ends,
// or the token is revoked. Reconnecting is the caller's job.
//
// The API answers writes with a 307 redirect to a shard host. The client
// follows it and keeps the auth query parameter across the hop.
package nest

// Package inspect serves a read-only view of a lifecycle runtime over HTTP.
//
// Routes:
//
//	GET /healthz   liveness probe
//	GET /entries   JSON snapshot of live registry entries
//	GET /metrics   Prometheus metrics
//	GET /events    WebSocket stream of fired lifecycle callbacks (pkg/wire frames)
//
// A stream starts with a Hello frame and a Snapshot frame, followed by one
// Event frame per fired callback. Slow readers lose events; the next frame
// they receive carries wire.FlagDropped.
package inspect

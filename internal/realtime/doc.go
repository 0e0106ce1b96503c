// Package realtime implements the state-distribution subsystem: the
// authenticated websocket endpoint, the in-memory connection registry, and
// the best-effort event dispatcher that fans task, device, and customer
// state changes out to connected clients.
package realtime

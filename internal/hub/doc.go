// Package hub fans out price updates to downstream websocket clients.
// Clients connect read-only; every tick is broadcast to every client, and
// a client whose write fails is dropped without affecting the rest.
package hub

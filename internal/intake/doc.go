// Package intake turns order requests from the external queue into
// persisted pending offers. Delivery is at-least-once, so persistence is
// deduplicated on the request id: a redelivered request is a logged no-op.
package intake

// Package bus declares the publish/subscribe contract the message handler
// depends on, independent of the underlying broker client, per SPEC_FULL.md
// §4.6.
package bus

import "context"

// MessageHandler is invoked once per inbound message, with the exact topic
// it arrived on and the raw payload bytes.
type MessageHandler func(topic string, payload []byte)

// Client is the abstract bus contract. Implementations must be safe for
// concurrent use: Publish/Subscribe/Unsubscribe may be called from the
// tracker worker goroutine while a handler callback runs concurrently on a
// client-owned goroutine.
type Client interface {
	// Connect blocks until the initial connection attempt resolves, or ctx
	// is done. A non-retryable (auth/protocol) rejection is returned
	// wrapped as *errs.BusPermanent; anything else retryable is wrapped as
	// *errs.BusTransient.
	Connect(ctx context.Context) error

	// Disconnect drains in-flight callbacks, then closes the connection.
	// Safe to call more than once; the second call is a no-op.
	Disconnect(ctx context.Context) error

	// Publish sends payload to topic. It is a no-op (logged, not returned
	// as an error) when the client is not currently connected — publishing
	// telemetry must never block or crash the tracker loop.
	Publish(topic string, payload []byte) error

	// Subscribe registers handler for topic. If the client is not
	// currently connected, the subscription is recorded and (re-)issued
	// automatically once a connection is established.
	Subscribe(topic string, handler MessageHandler) error

	// Unsubscribe removes a previously registered subscription.
	Unsubscribe(topic string) error

	IsConnected() bool
	IsSubscribed() bool
}

package messaging

import "context"

// Broker carries domain events out of the process. Channels are event
// type names (appointment.created, appointment.missed, ...); messages
// are JSON-marshalled by the implementation.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

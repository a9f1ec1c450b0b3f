package audit

import "context"

// Store is an append-only sink for audit events. Implementations decide
// durability: in-memory for tests, Kafka for production fan-out.
type Store interface {
	Append(ctx context.Context, event Event) error
}

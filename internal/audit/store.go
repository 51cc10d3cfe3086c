package audit

import "context"

// Store persists audit events. Append-only; events are never updated or
// deleted. Postgres implementations must write through the context
// transaction handle when one is present so the event commits or aborts with
// the mutation it documents.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error)
}

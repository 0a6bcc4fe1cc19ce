// Package journal persists the engine's immutable operation journal.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing and stateless dev
// runs).
package journal

import (
	"context"

	"github.com/equiblock/engine/internal/model"
)

// Store is the persistence interface for operation events. Events are
// append-only; nothing updates or deletes them.
type Store interface {
	// Append records one committed operation.
	Append(ctx context.Context, event *model.Event) error

	// ListByAccount returns all events touching one account, oldest
	// first.
	ListByAccount(ctx context.Context, account string) ([]model.Event, error)

	// ListByKind returns all events of one kind, oldest first.
	ListByKind(ctx context.Context, kind string) ([]model.Event, error)

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Event, error)
}

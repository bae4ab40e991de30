package trajectory

import (
	"context"

	"aeterna/internal/model"
)

// Storage is the trajectory-specific slice of the Storage Backend
// interface (spec.md §6). Concrete persistence (SQL, key-value, object
// store) is an external collaborator; the CORE depends only on this
// interface.
type Storage interface {
	PersistEvents(ctx context.Context, sessionID string, batch []model.TrajectoryEvent) error
	LoadEvents(ctx context.Context, sessionID string) ([]model.TrajectoryEvent, error)
}

package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists workflow versions
type Repository interface {
	// FindActive returns the active version for a license type or shared.ErrNotFound
	FindActive(ctx context.Context, licenseTypeID string) (*Workflow, error)

	// FindByID returns a specific workflow version
	FindByID(ctx context.Context, id uuid.UUID) (*Workflow, error)

	// ListActive returns the active version of every license type
	ListActive(ctx context.Context) ([]*Workflow, error)

	// Activate stores w as the active version of its license type and
	// deactivates every other version of that license type.
	Activate(ctx context.Context, w *Workflow) error
}

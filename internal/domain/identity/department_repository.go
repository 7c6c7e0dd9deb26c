package identity

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// DepartmentRepository defines the interface for department persistence
type DepartmentRepository interface {
	// Create saves a new department; a duplicate code fails with shared.ErrAlreadyExists
	Create(ctx context.Context, dept *Department) error

	// Update saves changes guarded by the aggregate version
	Update(ctx context.Context, dept *Department) error

	// FindByID finds a department by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Department, error)

	// FindByCode finds a department by its upper-case code
	FindByCode(ctx context.Context, code string) (*Department, error)

	// FindAll lists departments
	FindAll(ctx context.Context, filter shared.Filter) ([]*Department, int64, error)

	// FindActiveIDs returns the IDs of all active departments
	FindActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

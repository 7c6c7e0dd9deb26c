package licensing

import (
	"context"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists applications. Writes are expected to run inside a
// transaction together with the ledger entries of the same transition.
type Repository interface {
	// FindByID returns the application or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// FindByNumber looks an application up by its external number
	FindByNumber(ctx context.Context, number string) (*Application, error)

	// FindAll lists applications matching filter
	FindAll(ctx context.Context, query Query) ([]*Application, int64, error)

	// CountOpenByDepartment counts submitted and in-review applications per department
	CountOpenByDepartment(ctx context.Context) (map[uuid.UUID]int64, error)

	// Create inserts a new application
	Create(ctx context.Context, app *Application) error

	// Update saves a transitioned application. The stored row must still be at
	// app.GetVersion()-1, otherwise shared.ErrConcurrencyConflict is returned.
	Update(ctx context.Context, app *Application) error
}

// Query filters an application listing
type Query struct {
	shared.Filter
	DepartmentID  *uuid.UUID
	ApplicantID   *uuid.UUID
	LicenseTypeID string
	Status        *Status
}

// DocumentStore answers whether a document of a given type is present and
// verified for an application. The engine never reads document content.
type DocumentStore interface {
	IsVerified(ctx context.Context, applicationID uuid.UUID, documentType string) (bool, error)
}

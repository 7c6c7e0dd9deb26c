package licensing

import (
	"context"

	"github.com/google/uuid"
)

// Locker serializes transitions of a single application.
// Lock blocks until the lock is held or ctx is done; the returned function releases it.
type Locker interface {
	Lock(ctx context.Context, applicationID uuid.UUID) (unlock func(), err error)
}

// Observer receives transition outcomes for telemetry
type Observer interface {
	TransitionCompleted(ctx context.Context, action string, departmentID uuid.UUID)
	TransitionFailed(ctx context.Context, operation string, code string)
	LockWaited(ctx context.Context, seconds float64)
}

type noopObserver struct{}

func (noopObserver) TransitionCompleted(context.Context, string, uuid.UUID) {}
func (noopObserver) TransitionFailed(context.Context, string, string)       {}
func (noopObserver) LockWaited(context.Context, float64)                    {}

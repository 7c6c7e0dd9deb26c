package workflow

import (
	"context"
	"sync"

	"github.com/afrinict/nbcportal-sub001/internal/domain/workflow"
	"github.com/google/uuid"
)

// Catalog serves workflow versions. A stored version never changes once
// written, so versions fetched by ID are cached for the life of the process.
// Only the active pointer per license type is read from the repository.
type Catalog struct {
	repo     workflow.Repository
	mu       sync.RWMutex
	versions map[uuid.UUID]*workflow.Workflow
}

// NewCatalog creates a new workflow catalog
func NewCatalog(repo workflow.Repository) *Catalog {
	return &Catalog{
		repo:     repo,
		versions: make(map[uuid.UUID]*workflow.Workflow),
	}
}

// Active returns the active workflow for a license type
func (c *Catalog) Active(ctx context.Context, licenseTypeID string) (*workflow.Workflow, error) {
	wf, err := c.repo.FindActive(ctx, workflow.NormalizeLicenseType(licenseTypeID))
	if err != nil {
		return nil, err
	}
	c.remember(wf)
	return wf, nil
}

// Version returns a specific workflow version, typically the one an application is pinned to
func (c *Catalog) Version(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	c.mu.RLock()
	wf, ok := c.versions[id]
	c.mu.RUnlock()
	if ok {
		return wf, nil
	}

	wf, err := c.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.remember(wf)
	return wf, nil
}

// remember caches a version. The Active flag of a cached copy may go stale;
// callers that need it use Active.
func (c *Catalog) remember(wf *workflow.Workflow) {
	c.mu.Lock()
	if _, ok := c.versions[wf.ID]; !ok {
		c.versions[wf.ID] = wf
	}
	c.mu.Unlock()
}

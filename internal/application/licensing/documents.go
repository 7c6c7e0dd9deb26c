package licensing

import (
	"context"
	"sync"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultDocumentLookupTimeout = 5 * time.Second

// DocumentVerifier checks the required documents of a stage against the document store
type DocumentVerifier struct {
	store   licensing.DocumentStore
	timeout time.Duration
}

// NewDocumentVerifier creates a verifier; timeout <= 0 uses the default of 5s
func NewDocumentVerifier(store licensing.DocumentStore, timeout time.Duration) *DocumentVerifier {
	if timeout <= 0 {
		timeout = defaultDocumentLookupTimeout
	}
	return &DocumentVerifier{store: store, timeout: timeout}
}

// Verified looks every document type up in parallel and returns the set that
// is present and verified. The first lookup failure cancels the rest.
func (v *DocumentVerifier) Verified(ctx context.Context, applicationID uuid.UUID, documentTypes []string) (map[string]bool, error) {
	verified := make(map[string]bool, len(documentTypes))
	if len(documentTypes) == 0 {
		return verified, nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, docType := range documentTypes {
		g.Go(func() error {
			ok, err := v.store.IsVerified(ctx, applicationID, docType)
			if err != nil {
				return shared.ErrStorageUnavailable.WithMessage("Document store lookup failed for " + docType).Wrap(err)
			}
			mu.Lock()
			verified[docType] = ok
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verified, nil
}

package licensing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/afrinict/nbcportal-sub001/tests/testutil"
)

type slowStore struct{ delay time.Duration }

func (s slowStore) IsVerified(ctx context.Context, _ uuid.UUID, _ string) (bool, error) {
	select {
	case <-time.After(s.delay):
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestDocumentVerifier_Verified(t *testing.T) {
	docs := testutil.NewMemDocumentStore()
	appID := uuid.New()
	docs.Verify(appID, "a", "c")
	v := NewDocumentVerifier(docs, 0)

	got, err := v.Verified(context.Background(), appID, []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": false, "c": true}, got)
	assert.Equal(t, 3, docs.Calls())
}

func TestDocumentVerifier_NoDocumentsSkipsStore(t *testing.T) {
	docs := testutil.NewMemDocumentStore()
	v := NewDocumentVerifier(docs, time.Second)

	got, err := v.Verified(context.Background(), uuid.New(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, docs.Calls())
}

func TestDocumentVerifier_StoreError(t *testing.T) {
	docs := testutil.NewMemDocumentStore()
	docs.SetError(errors.New("access denied"))
	v := NewDocumentVerifier(docs, time.Second)

	_, err := v.Verified(context.Background(), uuid.New(), []string{"a"})

	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "access denied")
}

func TestDocumentVerifier_Timeout(t *testing.T) {
	v := NewDocumentVerifier(slowStore{delay: time.Second}, 20*time.Millisecond)

	start := time.Now()
	_, err := v.Verified(context.Background(), uuid.New(), []string{"a", "b"})

	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

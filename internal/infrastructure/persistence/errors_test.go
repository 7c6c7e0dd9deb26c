package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *shared.DomainError
	}{
		{"record not found", gorm.ErrRecordNotFound, shared.ErrNotFound},
		{"wrapped record not found", fmt.Errorf("find: %w", gorm.ErrRecordNotFound), shared.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists},
		{"unique violation", &pgconn.PgError{Code: "23505"}, shared.ErrAlreadyExists},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, shared.ErrStorageUnavailable},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, shared.ErrStorageUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, shared.ErrStorageUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, shared.ErrStorageUnavailable},
		{"lib/pq connection failure", &pq.Error{Code: "08001"}, shared.ErrStorageUnavailable},
		{"bad connection", driver.ErrBadConn, shared.ErrStorageUnavailable},
		{"deadline", context.DeadlineExceeded, shared.ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestTranslateError_PassThrough(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("domain errors are kept", func(t *testing.T) {
		err := shared.ErrConcurrencyConflict.WithMessage("stale")
		assert.Same(t, err, translateError(err))
	})

	t.Run("other SQL states are returned unchanged", func(t *testing.T) {
		err := &pgconn.PgError{Code: "P0001", Message: "activity records are append-only"}
		got := translateError(err)
		assert.Equal(t, err, got)
		assert.False(t, shared.IsRetryable(got))
	})

	t.Run("plain errors are returned unchanged", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, err, translateError(err))
	})
}

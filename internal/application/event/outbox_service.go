package event

import (
	"context"
	"errors"
	"time"

	"github.com/afrinict/nbcportal-sub001/internal/domain/identity"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const retryBatchSize = 100

// OutboxService lets department admins inspect and replay undeliverable
// lifecycle events (dead letters)
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{
		repo:   repo,
		logger: logger,
	}
}

// OutboxEntryDTO represents an outbox entry
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	DepartmentID  uuid.UUID  `json:"department_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxStatsDTO counts outbox entries per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

func requireDepartmentAdmin(actor identity.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.DepartmentAdmin {
		return shared.ErrPermissionDenied.WithMessage("Only department admins can manage the event outbox")
	}
	return nil
}

// DeadLetters lists entries that exhausted their retries
func (s *OutboxService) DeadLetters(ctx context.Context, actor identity.Actor, filter shared.Filter) (shared.Paginated[OutboxEntryDTO], error) {
	if err := requireDepartmentAdmin(actor); err != nil {
		return shared.Paginated[OutboxEntryDTO]{}, err
	}
	filter = filter.Normalize()

	entries, total, err := s.repo.FindDead(ctx, filter.Page, filter.PageSize)
	if err != nil {
		s.logger.Error("Failed to list dead letters", zap.Error(err))
		return shared.Paginated[OutboxEntryDTO]{}, shared.ErrStorageUnavailable.Wrap(err)
	}

	items := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		items[i] = toOutboxEntryDTO(entry)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Get returns one outbox entry
func (s *OutboxService) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OutboxEntryDTO, error) {
	if err := requireDepartmentAdmin(actor); err != nil {
		return nil, err
	}
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// Retry puts a dead letter back in the delivery queue
func (s *OutboxService) Retry(ctx context.Context, actor identity.Actor, id uuid.UUID) (*OutboxEntryDTO, error) {
	if err := requireDepartmentAdmin(actor); err != nil {
		return nil, err
	}
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.ErrInvalidState.WithMessage("Only dead letters can be retried").
			WithDetail("status", string(entry.Status))
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to reset outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.ErrStorageUnavailable.Wrap(err)
	}

	s.logger.Info("Dead letter queued for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("retried_by", actor.UserID.String()))

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAll puts every dead letter back in the delivery queue and returns how
// many were reset
func (s *OutboxService) RetryAll(ctx context.Context, actor identity.Actor) (int64, error) {
	if err := requireDepartmentAdmin(actor); err != nil {
		return 0, err
	}

	var count int64
	for {
		// Reset entries leave the dead set, so the first page always holds the next batch.
		entries, _, err := s.repo.FindDead(ctx, 1, retryBatchSize)
		if err != nil {
			s.logger.Error("Failed to list dead letters", zap.Error(err))
			return count, shared.ErrStorageUnavailable.Wrap(err)
		}
		if len(entries) == 0 {
			break
		}

		reset := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to reset outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			reset++
		}
		count += int64(reset)

		if reset == 0 || len(entries) < retryBatchSize {
			break
		}
	}

	s.logger.Info("Dead letters queued for retry",
		zap.Int64("count", count),
		zap.String("retried_by", actor.UserID.String()))
	return count, nil
}

// Stats counts outbox entries per status
func (s *OutboxService) Stats(ctx context.Context, actor identity.Actor) (*OutboxStatsDTO, error) {
	if err := requireDepartmentAdmin(actor); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count outbox entries", zap.Error(err))
		return nil, shared.ErrStorageUnavailable.Wrap(err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, shared.ErrNotFound.WithMessage("Outbox entry not found")
	}
	if err != nil {
		s.logger.Error("Failed to load outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.ErrStorageUnavailable.Wrap(err)
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		DepartmentID:  entry.DepartmentID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}

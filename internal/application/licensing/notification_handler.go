package licensing

import (
	"context"
	"fmt"

	"github.com/afrinict/nbcportal-sub001/internal/domain/licensing"
	"github.com/afrinict/nbcportal-sub001/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is a message addressed to an applicant about their application
type Notification struct {
	ApplicantID       uuid.UUID `json:"applicant_id"`
	ApplicationID     uuid.UUID `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	Kind              string    `json:"kind"` // "submitted", "advanced", "approved", "rejected"
	Message           string    `json:"message"`
}

// Notifier delivers applicant notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ApplicantNotificationHandler turns application lifecycle events into applicant notifications
type ApplicantNotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewApplicantNotificationHandler creates a new handler. A nil notifier logs notifications.
func NewApplicantNotificationHandler(notifier Notifier, logger *zap.Logger) *ApplicantNotificationHandler {
	if notifier == nil {
		notifier = NewLoggingNotifier(logger)
	}
	return &ApplicantNotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in.
// Stage reassignments are staff-facing and not forwarded.
func (h *ApplicantNotificationHandler) EventTypes() []string {
	return []string{
		licensing.EventTypeApplicationSubmitted,
		licensing.EventTypeApplicationAdvanced,
		licensing.EventTypeApplicationApproved,
		licensing.EventTypeApplicationRejected,
	}
}

// Handle builds and sends the notification for event
func (h *ApplicantNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, err := notificationFor(event)
	if err != nil {
		h.logger.Error("unexpected event type",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
		return err
	}
	n.ApplicationID = event.AggregateID()

	if err := h.notifier.Notify(ctx, n); err != nil {
		// Delivery failure is logged; the outbox entry is not retried for it
		h.logger.Error("failed to notify applicant",
			zap.String("application_id", n.ApplicationID.String()),
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
	}
	return nil
}

func notificationFor(event shared.DomainEvent) (Notification, error) {
	switch e := event.(type) {
	case *licensing.ApplicationSubmittedEvent:
		return Notification{
			ApplicantID:       e.ApplicantID,
			ApplicationNumber: e.ApplicationNumber,
			Kind:              "submitted",
			Message:           fmt.Sprintf("Application %s was received and is at stage %q", e.ApplicationNumber, e.StageName),
		}, nil
	case *licensing.ApplicationAdvancedEvent:
		return Notification{
			ApplicantID:       e.ApplicantID,
			ApplicationNumber: e.ApplicationNumber,
			Kind:              "advanced",
			Message:           fmt.Sprintf("Application %s moved to stage %q", e.ApplicationNumber, e.ToStageName),
		}, nil
	case *licensing.ApplicationApprovedEvent:
		return Notification{
			ApplicantID:       e.ApplicantID,
			ApplicationNumber: e.ApplicationNumber,
			Kind:              "approved",
			Message:           fmt.Sprintf("Application %s for license type %s was approved", e.ApplicationNumber, e.LicenseTypeID),
		}, nil
	case *licensing.ApplicationRejectedEvent:
		msg := fmt.Sprintf("Application %s was rejected at stage %q", e.ApplicationNumber, e.StageName)
		if e.Reason != "" {
			msg += ": " + e.Reason
		}
		return Notification{
			ApplicantID:       e.ApplicantID,
			ApplicationNumber: e.ApplicationNumber,
			Kind:              "rejected",
			Message:           msg,
		}, nil
	default:
		return Notification{}, fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

var _ shared.EventHandler = (*ApplicantNotificationHandler)(nil)

// LoggingNotifier writes notifications to the log
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier creates a new logging notifier
func NewLoggingNotifier(logger *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

// Notify logs the notification
func (n *LoggingNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info("applicant notification",
		zap.String("applicant_id", note.ApplicantID.String()),
		zap.String("application_id", note.ApplicationID.String()),
		zap.String("application_number", note.ApplicationNumber),
		zap.String("kind", note.Kind),
		zap.String("message", note.Message),
	)
	return nil
}

var _ Notifier = (*LoggingNotifier)(nil)

package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/events"
)

// Notifier is the slice of the ticket service the worker needs.
type Notifier interface {
	SetNotified(ctx context.Context, id string, notified bool) error
}

// NotificationWorker watches for submissions and marks each ticket
// notified once its confirmation has been sent. Failures are logged and
// retried on the next event; they never fail the submission itself.
type NotificationWorker struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(notifier Notifier, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{notifier: notifier, logger: logger}
}

// Start registers the worker on the dispatcher.
func (w *NotificationWorker) Start(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketSubmitted, w.handleSubmitted)
}

func (w *NotificationWorker) handleSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSubmittedPayload)
	if !ok {
		return nil
	}

	w.logger.Info("submission confirmation sent",
		zap.String("ticket_id", event.TicketID),
		zap.String("ticket_number", payload.TicketNumber),
		zap.String("email", payload.Email),
	)

	if err := w.notifier.SetNotified(ctx, event.TicketID, true); err != nil {
		w.logger.Warn("failed to mark ticket notified", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}

package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// disabledRepository stands in when the ticket backend is unconfigured.
// Every operation logs and reports a configuration error; the portal
// keeps serving with an empty collection.
type disabledRepository struct {
	logger *zap.Logger
}

// NewDisabledRepository returns the degraded-mode repository.
func NewDisabledRepository(logger *zap.Logger) TicketRepository {
	return &disabledRepository{logger: logger}
}

func (r *disabledRepository) reject(operation string) error {
	r.logger.Warn("ticket backend not configured; operation skipped", zap.String("operation", operation))
	return apperrors.NewConfigurationError("ticket backend is not configured")
}

func (r *disabledRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return nil, r.reject("list")
}

func (r *disabledRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return nil, r.reject("fetch")
}

func (r *disabledRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	return r.reject("insert")
}

func (r *disabledRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return r.reject("update")
}

func (r *disabledRepository) UpdateComments(ctx context.Context, id string, comments []domain.Comment, expectedRevision int64) error {
	return r.reject("comment")
}

func (r *disabledRepository) Delete(ctx context.Context, id string) error {
	return r.reject("delete")
}

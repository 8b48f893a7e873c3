package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-portal/internal/domain"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// TicketRepository encapsulates the ticket system of record. All callers
// must hold an active session before invoking a mutating operation; that
// precondition is checked at the service boundary, not here.
type TicketRepository interface {
	// ListAll returns the entire collection, unfiltered, newest first.
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Insert assigns the persistent id and initial revision.
	Insert(ctx context.Context, ticket *domain.Ticket) error
	// Update persists the whole mutated record.
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateComments replaces the comment list only when the stored
	// revision still matches expectedRevision. A mismatch reports a
	// CONFLICT so the caller can refetch and retry instead of silently
	// dropping a concurrent append.
	UpdateComments(ctx context.Context, id string, comments []domain.Comment, expectedRevision int64) error
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, customer_name, phone_number, email, issue_description,
       status, priority, notified, notes, representative_name, comments, revision,
       created_at, updated_at, closed_at`

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets ORDER BY created_at DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewRepositoryError("list", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)

	var (
		ticket      domain.Ticket
		rawComments []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerName,
		&ticket.PhoneNumber,
		&ticket.Email,
		&ticket.IssueDescription,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Notified,
		&ticket.Notes,
		&ticket.RepresentativeName,
		&rawComments,
		&ticket.Revision,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, apperrors.NewRepositoryError("fetch", err)
	}
	if err := decodeComments(rawComments, &ticket); err != nil {
		return nil, apperrors.NewRepositoryError("fetch", err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	rawComments, err := encodeComments(ticket.Comments)
	if err != nil {
		return apperrors.NewRepositoryError("insert", err)
	}

	const query = `
        INSERT INTO tickets (ticket_number, customer_name, phone_number, email, issue_description,
            status, priority, notified, notes, representative_name, comments, created_at, updated_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, revision`
	if err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerName,
		ticket.PhoneNumber,
		ticket.Email,
		ticket.IssueDescription,
		ticket.Status,
		ticket.Priority,
		ticket.Notified,
		ticket.Notes,
		ticket.RepresentativeName,
		rawComments,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.Revision); err != nil {
		return apperrors.NewRepositoryError("insert", err)
	}
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	rawComments, err := encodeComments(ticket.Comments)
	if err != nil {
		return apperrors.NewRepositoryError("update", err)
	}

	const query = `
        UPDATE tickets SET customer_name=$1, phone_number=$2, email=$3, issue_description=$4,
            status=$5, priority=$6, notified=$7, notes=$8, representative_name=$9,
            comments=$10, revision=revision+1, updated_at=$11, closed_at=$12
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CustomerName,
		ticket.PhoneNumber,
		ticket.Email,
		ticket.IssueDescription,
		ticket.Status,
		ticket.Priority,
		ticket.Notified,
		ticket.Notes,
		ticket.RepresentativeName,
		rawComments,
		ticket.UpdatedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return apperrors.NewRepositoryError("update", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	ticket.Revision++
	return nil
}

func (r *ticketRepository) UpdateComments(ctx context.Context, id string, comments []domain.Comment, expectedRevision int64) error {
	rawComments, err := encodeComments(comments)
	if err != nil {
		return apperrors.NewRepositoryError("comment", err)
	}

	const query = `
        UPDATE tickets SET comments=$1, revision=revision+1, updated_at=NOW()
        WHERE id=$2 AND revision=$3`
	cmd, err := r.pool.Exec(ctx, query, rawComments, id, expectedRevision)
	if err != nil {
		return apperrors.NewRepositoryError("comment", err)
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a vanished ticket from a concurrent writer.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
			return apperrors.NewRepositoryError("comment", err)
		}
		if !exists {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"id": id})
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return apperrors.NewRepositoryError("delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket      domain.Ticket
			rawComments []byte
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.CustomerName,
			&ticket.PhoneNumber,
			&ticket.Email,
			&ticket.IssueDescription,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Notified,
			&ticket.Notes,
			&ticket.RepresentativeName,
			&rawComments,
			&ticket.Revision,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, apperrors.NewRepositoryError("list", err)
		}
		if err := decodeComments(rawComments, &ticket); err != nil {
			return nil, apperrors.NewRepositoryError("list", err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRepositoryError("list", err)
	}
	return result, nil
}

func encodeComments(comments []domain.Comment) ([]byte, error) {
	if comments == nil {
		comments = []domain.Comment{}
	}
	return json.Marshal(comments)
}

func decodeComments(raw []byte, ticket *domain.Ticket) error {
	ticket.Comments = []domain.Comment{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &ticket.Comments)
}

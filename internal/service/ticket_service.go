package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/repository"
	"github.com/spec-kit/support-portal/internal/store"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// commentAuthor is the fixed author identifier for staff comments; the
// portal does not resolve a per-comment authenticated author.
const commentAuthor = "staff"

// commentRetryLimit bounds retries when a concurrent writer bumps the
// ticket revision between the point fetch and the comment persist.
const commentRetryLimit = 3

// SessionProvider supplies the portal service-account session for the
// public submission form.
type SessionProvider interface {
	ServiceSession(ctx context.Context) (*domain.Session, error)
}

// DraftRecorder records locally submitted tickets into the draft cache.
type DraftRecorder interface {
	Record(ctx context.Context, ticket domain.Ticket) error
}

// TicketService is the lifecycle engine: it owns creation defaults, the
// meaning of each mutating action, and the refetch-after-write rule that
// keeps the client store consistent with the system of record.
type TicketService struct {
	tickets    repository.TicketRepository
	store      *store.TicketStore
	drafts     DraftRecorder
	sessions   SessionProvider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// Dependencies bundles collaborators for the ticket service.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	Store      *store.TicketStore
	Drafts     DraftRecorder
	Sessions   SessionProvider
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// SubmitInput describes the customer-facing submission payload.
type SubmitInput struct {
	CustomerName       string
	PhoneNumber        string
	Email              string
	IssueDescription   string
	Status             domain.TicketStatus
	Notified           bool
	Notes              *string
	RepresentativeName string
}

// ListFilter narrows the dashboard listing.
type ListFilter struct {
	SearchTerm string
	Status     domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		store:      deps.Store,
		drafts:     deps.Drafts,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Submit creates a ticket from a customer submission. The form carries no
// session of its own, so the portal account is signed in first; a failed
// sign-in rejects the submission before any write. Priority is always
// medium at creation regardless of input, status defaults to Open unless
// explicitly chosen, and createdAt equals updatedAt.
func (s *TicketService) Submit(ctx context.Context, input SubmitInput) (*domain.Ticket, error) {
	if _, err := s.sessions.ServiceSession(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		TicketNumber:       s.generateTicketNumber(now),
		CustomerName:       strings.TrimSpace(input.CustomerName),
		PhoneNumber:        strings.TrimSpace(input.PhoneNumber),
		Email:              strings.TrimSpace(input.Email),
		IssueDescription:   strings.TrimSpace(input.IssueDescription),
		Status:             input.Status,
		Priority:           domain.TicketPriorityMedium,
		Notified:           input.Notified,
		Notes:              input.Notes,
		RepresentativeName: strings.TrimSpace(input.RepresentativeName),
		Comments:           []domain.Comment{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, err
	}

	if s.drafts != nil {
		if err := s.drafts.Record(ctx, *ticket); err != nil {
			// the draft cache is a redundant local record; its failure
			// never fails the submission
			s.logger.Warn("failed to record draft", zap.Error(err), zap.String("ticket_number", ticket.TicketNumber))
		}
	}

	s.store.Append(*ticket)
	s.refreshAfterWrite(ctx)
	s.metrics.RecordAction("submit")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Payload: events.TicketSubmittedPayload{
			TicketNumber: ticket.TicketNumber,
			CustomerName: ticket.CustomerName,
			Email:        ticket.Email,
			Priority:     ticket.Priority,
		},
	})
	return ticket, nil
}

// List refreshes the collection and returns the cached tickets, filtered
// the way the dashboards filter: by status and by a term matched against
// ticket number, customer name, and email.
func (s *TicketService) List(ctx context.Context, filter ListFilter) ([]domain.Ticket, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	tickets := s.store.Snapshot()
	if filter.SearchTerm == "" && filter.Status == "" {
		return tickets, nil
	}

	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	filtered := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if term != "" && !matchesTerm(t, term) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

// Get point-fetches one ticket from the system of record.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// Update persists a staff edit of the whole ticket record. Moving into
// Closed stamps closedAt; moving out clears it. On failure the optimistic
// cache state is left for the next refetch to reconcile.
func (s *TicketService) Update(ctx context.Context, session *domain.Session, edited domain.Ticket) (*domain.Ticket, error) {
	if session == nil || session.Expired(s.now()) {
		return nil, apperrors.NewSessionRequired("an active session is required to edit tickets")
	}
	if !session.Admin {
		return nil, apperrors.NewForbidden("admin capability required to edit tickets")
	}

	oldStatus := edited.Status
	if cached, ok := s.store.Get(edited.ID); ok {
		oldStatus = cached.Status
	}

	now := s.now()
	edited.UpdatedAt = now
	if edited.Status == domain.TicketStatusClosed {
		if edited.ClosedAt == nil {
			edited.ClosedAt = &now
		}
	} else {
		edited.ClosedAt = nil
	}

	if err := s.tickets.Update(ctx, &edited); err != nil {
		return nil, err
	}

	s.store.UpdateOne(edited)
	s.refreshAfterWrite(ctx)
	s.metrics.RecordAction("update")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: edited.ID,
		Payload: events.TicketUpdatedPayload{
			OldStatus: oldStatus,
			NewStatus: edited.Status,
		},
	})
	return &edited, nil
}

// AddComment appends a staff comment to a ticket's thread. The session
// precondition is checked before any read or write; the point fetch and
// the persist report distinct error classes. The persist is a
// compare-and-swap on the ticket revision, retried on conflict, so a
// concurrent append is never silently dropped.
func (s *TicketService) AddComment(ctx context.Context, session *domain.Session, ticketID, content string) (*domain.Comment, error) {
	if session == nil || session.Expired(s.now()) {
		return nil, apperrors.NewSessionRequired("an active session is required to comment")
	}

	comment := domain.Comment{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Author:    commentAuthor,
		Content:   strings.TrimSpace(content),
		CreatedAt: s.now(),
	}

	var updated *domain.Ticket
	for attempt := 0; attempt < commentRetryLimit; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		next := make([]domain.Comment, 0, len(ticket.Comments)+1)
		next = append(next, ticket.Comments...)
		next = append(next, comment)

		err = s.tickets.UpdateComments(ctx, ticket.ID, next, ticket.Revision)
		if err == nil {
			ticket.Comments = next
			ticket.Revision++
			ticket.UpdatedAt = s.now()
			updated = ticket
			break
		}
		if !apperrors.HasCode(err, "CONFLICT") {
			return nil, err
		}
		s.logger.Info("comment append raced a concurrent writer; retrying",
			zap.String("ticket_id", ticketID), zap.Int("attempt", attempt+1))
	}
	if updated == nil {
		return nil, apperrors.NewConflict("ticket kept changing while appending comment", map[string]any{"id": ticketID})
	}

	s.store.UpdateOne(*updated)
	s.refreshAfterWrite(ctx)
	s.metrics.RecordAction("comment")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommented,
		TicketID: updated.ID,
		Payload: events.TicketCommentedPayload{
			CommentID:   comment.ID,
			Author:      comment.Author,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return &comment, nil
}

// Delete removes a ticket from the system of record and the cache. It is
// admin-gated; a ticket absent remotely reports an error and leaves the
// cache untouched.
func (s *TicketService) Delete(ctx context.Context, session *domain.Session, id string) error {
	if session == nil || session.Expired(s.now()) {
		return apperrors.NewSessionRequired("an active session is required to delete tickets")
	}
	if !session.Admin {
		return apperrors.NewForbidden("admin capability required to delete tickets")
	}

	ticketNumber := ""
	if cached, ok := s.store.Get(id); ok {
		ticketNumber = cached.TicketNumber
	}

	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}

	s.store.RemoveOne(id)
	s.refreshAfterWrite(ctx)
	s.metrics.RecordAction("delete")
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Payload:  events.TicketDeletedPayload{TicketNumber: ticketNumber},
	})
	return nil
}

// SetNotified flips the notification flag on a ticket. Used by the
// notification worker once a submission has been notified.
func (s *TicketService) SetNotified(ctx context.Context, id string, notified bool) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ticket.Notified == notified {
		return nil
	}

	ticket.Notified = notified
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.store.UpdateOne(*ticket)
	s.refreshAfterWrite(ctx)
	s.metrics.RecordAction("notify")
	return nil
}

// Refresh refetches the entire collection and replaces the cached one.
// This runs after every mutation and is authoritative over any optimistic
// overlay. An unconfigured backend degrades to an empty collection.
func (s *TicketService) Refresh(ctx context.Context) error {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		if apperrors.HasCode(err, "CONFIGURATION") {
			s.store.ReplaceAll(nil)
			return nil
		}
		return err
	}
	s.store.ReplaceAll(tickets)
	s.metrics.RecordRefresh()
	return nil
}

func (s *TicketService) refreshAfterWrite(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refetch after write failed; cache keeps optimistic state until next refresh", zap.Error(err))
	}
}

// generateTicketNumber builds the human-facing token: date-prefixed so
// numbers sort roughly by submission time, suffixed to stay unique. It is
// uncorrelated with the backend id.
func (s *TicketService) generateTicketNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "TKT-" + now.Format("20060102") + "-" + suffix
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func matchesTerm(t domain.Ticket, term string) bool {
	return strings.Contains(strings.ToLower(t.TicketNumber), term) ||
		strings.Contains(strings.ToLower(t.CustomerName), term) ||
		strings.Contains(strings.ToLower(t.Email), term)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

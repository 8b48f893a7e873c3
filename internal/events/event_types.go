package events

import (
	"time"

	"github.com/spec-kit/support-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketCommented EventType = "ticket_commented"
	EventTicketDeleted   EventType = "ticket_deleted"
)

// Event represents a domain event emitted by the lifecycle engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	CustomerName string                `json:"customer_name"`
	Email        string                `json:"email"`
	Priority     domain.TicketPriority `json:"priority"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID   string `json:"comment_id"`
	Author      string `json:"author"`
	BodyPreview string `json:"body_preview"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber string `json:"ticket_number"`
}

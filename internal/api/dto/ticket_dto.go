package dto

import (
	"time"

	"github.com/spec-kit/support-portal/internal/domain"
)

// SubmitTicketRequest is the customer-facing form payload.
type SubmitTicketRequest struct {
	CustomerName       string              `json:"customer_name"`
	PhoneNumber        string              `json:"phone_number"`
	Email              string              `json:"email"`
	IssueDescription   string              `json:"issue_description"`
	Status             domain.TicketStatus `json:"status,omitempty"`
	Notified           bool                `json:"notified,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	RepresentativeName string              `json:"representative_name,omitempty"`
}

// UpdateTicketRequest is the staff edit payload: the whole mutated record.
type UpdateTicketRequest struct {
	CustomerName       string                `json:"customer_name"`
	PhoneNumber        string                `json:"phone_number"`
	Email              string                `json:"email"`
	IssueDescription   string                `json:"issue_description"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	Notified           bool                  `json:"notified"`
	Notes              *string               `json:"notes"`
	RepresentativeName string                `json:"representative_name"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Content string `json:"content"`
}

// LoginRequest opens a portal session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginRequest carries the shared admin secret.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// ThemeRequest sets the color-theme preference.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                 string                `json:"id"`
	TicketNumber       string                `json:"ticket_number"`
	CustomerName       string                `json:"customer_name"`
	PhoneNumber        string                `json:"phone_number"`
	Email              string                `json:"email"`
	IssueDescription   string                `json:"issue_description"`
	Status             domain.TicketStatus   `json:"status"`
	Priority           domain.TicketPriority `json:"priority"`
	Notified           bool                  `json:"notified"`
	Notes              *string               `json:"notes"`
	RepresentativeName string                `json:"representative_name"`
	Comments           []CommentResponse     `json:"comments"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	ClosedAt           *time.Time            `json:"closed_at,omitempty"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse returns the opened session and its bearer token.
type SessionResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

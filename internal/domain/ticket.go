package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. Transitions are
// unconstrained: staff may move a ticket between any two states, and
// closing stamps ClosedAt while reopening clears it.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketPriority enumerates urgency. New tickets always start at medium.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the aggregate for customer support requests. ID is an opaque
// string assigned by the repository and immutable afterwards; TicketNumber
// is the human-facing token assigned once at submission.
type Ticket struct {
	ID                 string         `json:"id"`
	TicketNumber       string         `json:"ticketNumber"`
	CustomerName       string         `json:"customerName"`
	PhoneNumber        string         `json:"phoneNumber"`
	Email              string         `json:"email"`
	IssueDescription   string         `json:"issueDescription"`
	Status             TicketStatus   `json:"status"`
	Priority           TicketPriority `json:"priority"`
	Notified           bool           `json:"notified"`
	Notes              *string        `json:"notes"`
	RepresentativeName string         `json:"representativeName"`
	Comments           []Comment      `json:"comments"`
	Revision           int64          `json:"-"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	ClosedAt           *time.Time     `json:"closedAt,omitempty"`
}

// Comment is an append-only entry in a ticket's thread. Comments are never
// edited or removed once written.
type Comment struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy so cached tickets can be handed out without
// sharing the comments slice.
func (t Ticket) Clone() Ticket {
	copied := t
	if t.Comments != nil {
		copied.Comments = make([]Comment, len(t.Comments))
		copy(copied.Comments, t.Comments)
	}
	if t.Notes != nil {
		notes := *t.Notes
		copied.Notes = &notes
	}
	if t.ClosedAt != nil {
		closed := *t.ClosedAt
		copied.ClosedAt = &closed
	}
	return copied
}

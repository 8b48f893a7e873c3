package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/service"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// TicketsHandler serves the customer form and the staff dashboards.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Submit POST /api/tickets. The public submission form; required-field
// presence is enforced here, at the form layer.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	missing := map[string]any{}
	for field, value := range map[string]string{
		"customer_name":     req.CustomerName,
		"phone_number":      req.PhoneNumber,
		"email":             req.Email,
		"issue_description": req.IssueDescription,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", missing)
	}

	ticket, err := h.service.Submit(c.UserContext(), service.SubmitInput{
		CustomerName:       req.CustomerName,
		PhoneNumber:        req.PhoneNumber,
		Email:              req.Email,
		IssueDescription:   req.IssueDescription,
		Status:             req.Status,
		Notified:           req.Notified,
		Notes:              req.Notes,
		RepresentativeName: req.RepresentativeName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := service.ListFilter{
		SearchTerm: c.Query("q"),
		Status:     domain.TicketStatus(c.Query("status")),
	}
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)

	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("content required", nil)
	}

	comment, err := h.service.AddComment(c.UserContext(), session, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(*comment)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	comments := make([]dto.CommentResponse, 0, len(ticket.Comments))
	for _, comment := range ticket.Comments {
		comments = append(comments, commentResponse(comment))
	}
	return dto.TicketResponse{
		ID:                 ticket.ID,
		TicketNumber:       ticket.TicketNumber,
		CustomerName:       ticket.CustomerName,
		PhoneNumber:        ticket.PhoneNumber,
		Email:              ticket.Email,
		IssueDescription:   ticket.IssueDescription,
		Status:             ticket.Status,
		Priority:           ticket.Priority,
		Notified:           ticket.Notified,
		Notes:              ticket.Notes,
		RepresentativeName: ticket.RepresentativeName,
		Comments:           comments,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
		ClosedAt:           ticket.ClosedAt,
	}
}

func commentResponse(comment domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		Author:    comment.Author,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/service"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// AdminHandler serves the admin dashboard: the shared-secret gate plus
// the edit and delete actions it unlocks.
type AdminHandler struct {
	service  *service.TicketService
	gate     *auth.AdminGate
	sessions *auth.SessionManager
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(ticketService *service.TicketService, gate *auth.AdminGate, sessions *auth.SessionManager) *AdminHandler {
	return &AdminHandler{service: ticketService, gate: gate, sessions: sessions}
}

// Login POST /api/admin/login. Checks the shared secret and, on success,
// attaches the admin grant to the caller's session for its remainder.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewSessionRequired("no active session")
	}

	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if !h.gate.CheckPassword(req.Password) {
		return apperrors.NewUnauthorized("invalid password")
	}

	if err := h.gate.Elevate(c.UserContext(), h.sessions, session); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"admin": true}})
}

// Update PUT /api/tickets/:id. Staff edit of the whole ticket record.
func (h *AdminHandler) Update(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	current, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	edited := *current
	edited.CustomerName = req.CustomerName
	edited.PhoneNumber = req.PhoneNumber
	edited.Email = req.Email
	edited.IssueDescription = req.IssueDescription
	edited.Status = req.Status
	edited.Priority = req.Priority
	edited.Notified = req.Notified
	edited.Notes = req.Notes
	edited.RepresentativeName = req.RepresentativeName

	updated, err := h.service.Update(c.UserContext(), session, edited)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(updated)})
}

// Delete DELETE /api/tickets/:id.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)

	if err := h.service.Delete(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

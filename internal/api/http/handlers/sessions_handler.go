package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/auth"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// SessionsHandler exposes the identity gate.
type SessionsHandler struct {
	sessions *auth.SessionManager
}

// NewSessionsHandler constructs the handler.
func NewSessionsHandler(sessions *auth.SessionManager) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

// Login POST /api/session/login.
func (h *SessionsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	session, token, err := h.sessions.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SessionResponse{
		Token:     token,
		Email:     session.Email,
		Admin:     session.Admin,
		ExpiresAt: session.ExpiresAt,
	}})
}

// Logout POST /api/session/logout.
func (h *SessionsHandler) Logout(c *fiber.Ctx) error {
	token := c.Get("Authorization")
	if len(token) > 7 {
		token = token[7:] // strip "Bearer "
	}
	if err := h.sessions.SignOut(c.UserContext(), token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"signed_out": true}})
}

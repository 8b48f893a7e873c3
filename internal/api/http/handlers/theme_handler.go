package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/api/dto"
	"github.com/spec-kit/support-portal/internal/draft"
	"github.com/spec-kit/support-portal/internal/store"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// ThemeHandler reads and writes the color-theme preference slot.
type ThemeHandler struct {
	drafts *draft.Cache
	store  *store.TicketStore
}

// NewThemeHandler constructs the handler.
func NewThemeHandler(drafts *draft.Cache, ticketStore *store.TicketStore) *ThemeHandler {
	return &ThemeHandler{drafts: drafts, store: ticketStore}
}

// Get GET /api/theme.
func (h *ThemeHandler) Get(c *fiber.Ctx) error {
	theme, err := h.drafts.Theme(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"theme": theme, "dark_mode": h.store.DarkMode()}})
}

// Set PUT /api/theme.
func (h *ThemeHandler) Set(c *fiber.Ctx) error {
	var req dto.ThemeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Theme != "dark" && req.Theme != "light" {
		return apperrors.NewValidationError("theme must be dark or light", nil)
	}

	if err := h.drafts.SaveTheme(c.UserContext(), req.Theme); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.store.SetDarkMode(req.Theme == "dark")
	return c.JSON(fiber.Map{"data": fiber.Map{"theme": req.Theme}})
}

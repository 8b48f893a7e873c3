package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-portal/internal/domain"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

const sessionKey = "portal_session"

// SessionMiddleware resolves bearer tokens into live sessions.
type SessionMiddleware struct {
	sessions *SessionManager
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(sessions *SessionManager) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// Handle enforces an active session for protected routes.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return apperrors.NewSessionRequired("missing authorization header")
	}

	session, err := m.sessions.Current(c.Context(), token)
	if err != nil {
		return err
	}

	c.Locals(sessionKey, session)
	return c.Next()
}

// RequireAdmin ensures the session carries the admin grant. The grant is
// read from the server-held session record, never from client input.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewSessionRequired("no active session")
		}
		if !session.Admin {
			return apperrors.NewForbidden("admin capability required")
		}
		return c.Next()
	}
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

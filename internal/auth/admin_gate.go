package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
)

// AdminGate is the shared-secret check that unlocks destructive and
// administrative actions. It is independent of the identity gate: any
// holder of the password gets full admin capability, and there is no
// lockout or delay on repeated attempts.
type AdminGate struct {
	secret string
	cost   int
	logger *zap.Logger

	once    sync.Once
	hashed  string
	hashErr error
}

// NewAdminGate configures the gate. The secret defaults upstream when
// unconfigured.
func NewAdminGate(secret string, bcryptCost int, logger *zap.Logger) *AdminGate {
	return &AdminGate{secret: secret, cost: bcryptCost, logger: logger}
}

// CheckPassword verifies a candidate against the shared secret. The
// reference hash is computed once, lazily, on the first check and reused
// for the process lifetime.
func (g *AdminGate) CheckPassword(candidate string) bool {
	g.once.Do(func() {
		g.hashed, g.hashErr = HashPassword(g.secret, g.cost)
		if g.hashErr != nil {
			g.logger.Error("failed to hash admin secret", zap.Error(g.hashErr))
		}
	})
	if g.hashErr != nil {
		return false
	}
	return ComparePassword(g.hashed, candidate) == nil
}

// Elevate attaches the admin grant to the server-held session record.
// The grant lasts for the remainder of the session and is never
// persisted across sign-ins.
func (g *AdminGate) Elevate(ctx context.Context, sessions *SessionManager, session *domain.Session) error {
	session.Admin = true
	if err := sessions.Save(ctx, session); err != nil {
		return err
	}
	g.logger.Info("admin capability granted", zap.String("session_id", session.ID))
	return nil
}

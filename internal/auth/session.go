package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/domain"
	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

// SessionManager is the identity gate: it wraps the session provider and
// exposes sign-in, sign-out, and current-session lookup. The portal has a
// single configured account; any authenticated caller acts as it.
type SessionManager struct {
	store  SessionStore
	tokens *TokenManager
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewSessionManager constructs the manager.
func NewSessionManager(store SessionStore, tokens *TokenManager, cfg config.AuthConfig, logger *zap.Logger) *SessionManager {
	return &SessionManager{store: store, tokens: tokens, cfg: cfg, logger: logger}
}

// SignIn authenticates the portal account and opens a session. It returns
// the session and the signed bearer token for it.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*domain.Session, string, error) {
	if !m.credentialsValid(email, password) {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.tokens.TTL()),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	token, _, err := m.tokens.GenerateToken(session.ID)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	m.logger.Info("session opened", zap.String("session_id", session.ID))
	return session, token, nil
}

// SignOut closes the session behind the token. Unknown tokens are not an
// error; the session is gone either way.
func (m *SessionManager) SignOut(ctx context.Context, token string) error {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, claims.SessionID); err != nil {
		return apperrors.NewInternalError(err)
	}
	m.logger.Info("session closed", zap.String("session_id", claims.SessionID))
	return nil
}

// Current resolves the live session behind a bearer token. An invalid,
// unknown, or expired token yields a session-required error so callers
// reject the action before any write.
func (m *SessionManager) Current(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, apperrors.NewSessionRequired("no active session")
	}
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewSessionRequired("invalid session token")
	}
	session, err := m.store.Get(ctx, claims.SessionID)
	if err == ErrSessionNotFound {
		return nil, apperrors.NewSessionRequired("session expired or signed out")
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if session.Expired(time.Now()) {
		_ = m.store.Delete(ctx, session.ID)
		return nil, apperrors.NewSessionRequired("session expired")
	}
	return session, nil
}

// ServiceSession signs the portal account in on behalf of the public
// submission form, which carries no session of its own.
func (m *SessionManager) ServiceSession(ctx context.Context) (*domain.Session, error) {
	session, _, err := m.SignIn(ctx, m.cfg.PortalEmail, m.cfg.PortalPassword)
	if err != nil {
		return nil, apperrors.NewSessionRequired("could not sign in portal account")
	}
	return session, nil
}

// Save persists a mutated session record (used by the admin gate to
// attach the admin grant server-side).
func (m *SessionManager) Save(ctx context.Context, session *domain.Session) error {
	if err := m.store.Save(ctx, session); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

func (m *SessionManager) credentialsValid(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(m.cfg.PortalEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.cfg.PortalPassword)) == 1
	return emailOK && passOK
}

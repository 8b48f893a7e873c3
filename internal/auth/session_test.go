package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/support-portal/pkg/util"
)

func newTestManager(t *testing.T, ttl time.Duration) *SessionManager {
	t.Helper()
	cfg := testAuthConfig()
	tokens := NewTokenManager(cfg.JWTSecret, ttl)
	return NewSessionManager(NewMemorySessionStore(), tokens, cfg, zap.NewNop())
}

func TestSignInAndCurrent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, time.Hour)

	session, token, err := m.SignIn(ctx, "test@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, token)

	current, err := m.Current(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)
	assert.Equal(t, "test@example.com", current.Email)
}

func TestSignIn_BadCredentials(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, _, err := m.SignIn(context.Background(), "test@example.com", "nope")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}

func TestCurrent_NoToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Current(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
}

func TestCurrent_GarbageToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Current(context.Background(), "not-a-jwt")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, time.Hour)

	_, token, err := m.SignIn(ctx, "test@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(ctx, token))

	_, err = m.Current(ctx, token)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SESSION_REQUIRED"))

	// signing out an unknown token is not an error
	require.NoError(t, m.SignOut(ctx, "garbage"))
}

func TestServiceSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, time.Hour)

	session, err := m.ServiceSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", session.Email)
	assert.False(t, session.Admin)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expires, err := tm.GenerateToken("session-1")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	other := NewTokenManager("different", time.Hour)

	token, _, err := tm.GenerateToken("session-1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	require.Error(t, err)
}

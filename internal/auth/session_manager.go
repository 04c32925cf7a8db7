package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/ripple/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the access token has expired and the caller must refresh.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// SessionStore persists issued sessions so they can survive process restarts
// and be revoked server-side.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	FindByAccessToken(ctx context.Context, accessToken string) (Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Session is the server-side record behind an issued token pair.
type Session struct {
	AccessToken      string
	RefreshToken     string
	UserID           string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Manager owns the session lifecycle: issuing token pairs, resolving the
// current session from an access token, rotating pairs on refresh, and
// revoking on sign-out. Session transitions are announced through an optional
// Broadcaster so interested consumers observe sign-outs as they happen.
type Manager struct {
	accessTTL  time.Duration
	refreshTTL time.Duration

	store    SessionStore
	notifier *Broadcaster

	nowFunc func() time.Time
}

// NewManager constructs a Manager issuing access and refresh tokens with the
// provided TTLs. The notifier may be nil when no one listens for changes.
func NewManager(accessTTL, refreshTTL time.Duration, store SessionStore, notifier *Broadcaster) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		notifier:   notifier,
	}
}

// Issue creates a new session for the provided user identifier and announces
// the sign-in.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	tokens, err := m.newSession(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	m.publish(Event{Type: EventSignedIn, UserID: userID})

	return tokens, nil
}

func (m *Manager) newSession(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return models.SessionTokens{}, err
	}

	session := Session{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		UserID:           userID,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	if err := m.store.Save(ctx, session); err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      session.AccessToken,
		AccessExpiresAt:  session.AccessExpiresAt,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.RefreshExpiresAt,
	}, nil
}

// Current resolves the session behind an access token. Callers gating
// protected operations treat any error as "no session".
func (m *Manager) Current(ctx context.Context, accessToken string) (Session, error) {
	if accessToken == "" {
		return Session{}, ErrSessionNotFound
	}

	session, err := m.store.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return Session{}, err
	}

	if m.now().After(session.AccessExpiresAt) {
		return Session{}, ErrSessionExpired
	}

	return session, nil
}

// Refresh exchanges a refresh token for a new session token pair. The old
// pair is revoked before the new one is issued. Rotation is silent: the user
// neither signed in nor out, so subscribers hear nothing.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	session, err := m.store.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.now().After(session.RefreshExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		m.publish(Event{Type: EventSignedOut, UserID: session.UserID})
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return m.newSession(ctx, session.UserID)
}

// SignOut revokes the session behind the provided access token and announces
// the sign-out. Unknown tokens are ignored: signing out twice is not an error.
func (m *Manager) SignOut(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}

	session, err := m.store.FindByAccessToken(ctx, accessToken)
	if err != nil {
		return
	}

	_ = m.store.Delete(ctx, session.RefreshToken)
	m.publish(Event{Type: EventSignedOut, UserID: session.UserID})
}

func (m *Manager) publish(evt Event) {
	if m.notifier == nil {
		return
	}
	m.notifier.Publish(evt)
}

func (m *Manager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc().UTC()
	}
	return time.Now().UTC()
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ripple/backend/internal/auth"
	"github.com/ripple/backend/internal/logging"
)

// Route targets handed to clients by the session gate.
const (
	signInRoute  = "/auth"
	exploreRoute = "/explore"
)

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// currentSession resolves the session gating a protected handler. A failed
// lookup is treated the same as an absent session: the user is sent to sign
// in, and the failure is logged rather than surfaced.
func currentSession(r *http.Request, sessions SessionManager) (auth.Session, bool) {
	ctx := r.Context()
	session, err := sessions.Current(ctx, bearerToken(r))
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
			logging.FromContext(ctx).Error("session lookup failed", "error", err)
		}
		return auth.Session{}, false
	}
	return session, true
}

// respondSignInRedirect emits the protected-page gate response: no session
// means the client navigates to the sign-in route.
func respondSignInRedirect(r *http.Request, w http.ResponseWriter) {
	respondJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{
		"error":    "sign in required",
		"redirect": signInRoute,
	})
}

// SessionHandler exposes session state and the session-change event stream.
type SessionHandler struct {
	Sessions SessionManager
	Notifier SessionEvents
}

// Check handles GET /api/v1/session. It reports both gate directions: an
// authenticated caller is pointed at the feed, an anonymous one at sign-in.
func (h SessionHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	if h.Sessions == nil {
		logging.FromContext(ctx).Error("session manager unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	session, ok := currentSession(r, h.Sessions)
	if !ok {
		respondJSON(ctx, w, http.StatusOK, sessionCheckResponse{Authenticated: false, Redirect: signInRoute})
		return
	}

	respondJSON(ctx, w, http.StatusOK, sessionCheckResponse{
		Authenticated: true,
		Redirect:      exploreRoute,
		UserID:        session.UserID,
	})
}

// Events handles GET /api/v1/session/events: a server-sent event stream of
// session transitions for the calling user. The subscription lives exactly
// as long as the request; a sign-out event ends the stream after delivery.
func (h SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil || h.Notifier == nil {
		logger.Error("session event dependencies unavailable", "hasSessions", h.Sessions != nil, "hasNotifier", h.Notifier != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "session service unavailable"})
		return
	}

	session, ok := currentSession(r, h.Sessions)
	if !ok {
		respondSignInRedirect(r, w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("response writer does not support streaming")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, cancel := h.Notifier.Subscribe(session.UserID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: {\"redirect\":%q}\n\n", evt.Type, redirectFor(evt.Type))
			flusher.Flush()
			if evt.Type == auth.EventSignedOut {
				return
			}
		}
	}
}

func redirectFor(t auth.EventType) string {
	if t == auth.EventSignedOut {
		return signInRoute
	}
	return exploreRoute
}

type sessionCheckResponse struct {
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect"`
	UserID        string `json:"userId,omitempty"`
}

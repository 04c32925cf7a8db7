package handlers

import (
	"net/http"

	"github.com/ripple/backend/internal/storage"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	session := SessionHandler{Sessions: deps.Sessions, Notifier: deps.Events}
	profile := ProfileHandler{Sessions: deps.Sessions, Profiles: deps.Profiles, Avatars: deps.Avatars}
	videos := VideoHandler{Sessions: deps.Sessions, Videos: deps.Videos, Uploads: deps.Uploads, MaxUploadBytes: deps.MaxUploadBytes}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/", videos.Landing)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)
	mux.HandleFunc("/api/v1/session", session.Check)
	mux.HandleFunc("/api/v1/session/events", session.Events)
	mux.HandleFunc("/api/v1/profile", profile.Handle)
	mux.HandleFunc("/api/v1/videos", videos.Create)
	mux.HandleFunc("/api/v1/videos/feed", videos.Feed)
	mux.HandleFunc("/api/v1/videos/feed/navigate", videos.Navigate)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Sessions    SessionManager
	Events      SessionEvents
	Profiles    ProfileStore
	Videos      VideoStore
	Uploads     UploadOrchestrator
	Avatars     storage.ObjectStore
	AuthLimiter RateLimiter

	// MaxUploadBytes caps the video upload request body.
	MaxUploadBytes int64
}

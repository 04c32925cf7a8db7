package handlers

import (
	"context"

	"github.com/ripple/backend/internal/auth"
	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/uploads"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager owns the session lifecycle consumed by the HTTP layer.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Current(ctx context.Context, accessToken string) (auth.Session, error)
	SignOut(ctx context.Context, accessToken string)
}

// SessionEvents delivers session transitions to subscribed consumers.
type SessionEvents interface {
	Subscribe(userID string) (<-chan auth.Event, func())
}

// ProfileStore captures persistence for the profile load-or-create flow.
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (models.Profile, error)
	Create(ctx context.Context, profile models.Profile) error
	Update(ctx context.Context, profile models.Profile) error
}

// VideoStore exposes the joined feed consumed by the list handlers.
type VideoStore interface {
	ListFeed(ctx context.Context) ([]models.FeedEntry, error)
}

// UploadOrchestrator runs the upload flow for a decoded draft.
type UploadOrchestrator interface {
	Run(ctx context.Context, userID string, draft uploads.Draft) (models.Video, error)
	ValidateVideoSize(size int64) error
	ValidateThumbnailSize(size int64) error
}

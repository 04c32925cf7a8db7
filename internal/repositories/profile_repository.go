package repositories

import (
	"context"

	"github.com/ripple/backend/internal/models"
)

// ProfileRepository defines data access for user profiles.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (models.Profile, error)
	Create(ctx context.Context, profile models.Profile) error
	Update(ctx context.Context, profile models.Profile) error
}

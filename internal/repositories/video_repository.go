package repositories

import (
	"context"

	"github.com/ripple/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	ListFeed(ctx context.Context) ([]models.FeedEntry, error)
}

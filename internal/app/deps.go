package app

import (
	"context"
	"fmt"

	"github.com/ripple/backend/internal/auth"
	"github.com/ripple/backend/internal/config"
	"github.com/ripple/backend/internal/db"
	"github.com/ripple/backend/internal/handlers"
	"github.com/ripple/backend/internal/middleware"
	"github.com/ripple/backend/internal/repositories"
	"github.com/ripple/backend/internal/storage"
	"github.com/ripple/backend/internal/uploads"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	videoStore, avatarStore, err := buildObjectStores(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	notifier := auth.NewBroadcaster()
	sessionStore := repositories.NewPostgresSessionStore(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)

	orchestrator := uploads.NewOrchestrator(videoStore, videoRepo, uploads.Limits{
		MaxVideoBytes:     cfg.Uploads.MaxVideoBytes,
		MaxThumbnailBytes: cfg.Uploads.MaxThumbnailBytes,
	})

	limiter := middleware.NewIPRateLimiter(
		cfg.AuthRateLimit.Requests,
		cfg.AuthRateLimit.Window,
		cfg.AuthRateLimit.Burst,
		cfg.AuthRateLimit.TTL,
	)

	return handlers.Dependencies{
		Users:       repositories.NewPostgresUserRepository(pool),
		Sessions:    auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore, notifier),
		Events:      notifier,
		Profiles:    repositories.NewPostgresProfileRepository(pool),
		Videos:      videoRepo,
		Uploads:     orchestrator,
		Avatars:     avatarStore,
		AuthLimiter: limiter,

		// Form-field headroom on top of the blob limits.
		MaxUploadBytes: cfg.Uploads.MaxVideoBytes + cfg.Uploads.MaxThumbnailBytes + (1 << 20),
	}, nil
}

// buildObjectStores picks the blob backend. Without an endpoint or public URL
// configured there is no reachable S3 target, so local development falls back
// to process-memory stores.
func buildObjectStores(ctx context.Context, cfg config.ObjectStoreConfig) (storage.ObjectStore, storage.ObjectStore, error) {
	if cfg.Endpoint == "" && cfg.PublicBaseURL == "" {
		return storage.NewInMemoryStore(cfg.VideoBucket), storage.NewInMemoryStore(cfg.AvatarBucket), nil
	}

	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("configure object store client: %w", err)
	}

	videoStore, err := storage.NewS3Store(client, cfg.VideoBucket, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("configure video store: %w", err)
	}

	avatarStore, err := storage.NewS3Store(client, cfg.AvatarBucket, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("configure avatar store: %w", err)
	}

	return videoStore, avatarStore, nil
}

package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ripple/backend/internal/logging"
	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/repositories"
	"github.com/ripple/backend/internal/storage"
)

// State labels one step of the upload flow.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateUploadingVideo     State = "uploading_video"
	StateUploadingThumbnail State = "uploading_thumbnail"
	StateInsertingRecord    State = "inserting_record"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

var (
	// ErrTitleRequired indicates the draft has no title.
	ErrTitleRequired = errors.New("title is required")
	// ErrVideoRequired indicates the draft has no video file.
	ErrVideoRequired = errors.New("a video file is required")
)

// SizeError reports a file exceeding its configured limit.
type SizeError struct {
	Field string
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s file size must be less than %dMB", e.Field, e.Limit/(1024*1024))
}

// Error wraps a failure with the step at which the flow stopped. Blobs
// uploaded by earlier successful steps are left behind: the flow performs no
// rollback.
type Error struct {
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// File is one file selected for upload.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Draft is the transient, client-supplied input for one upload. It is never
// persisted on its own: a draft either becomes a video row or is discarded.
type Draft struct {
	Title       string
	Description string
	Video       *File
	Thumbnail   *File
}

// Limits bounds the file sizes a draft may carry.
type Limits struct {
	MaxVideoBytes     int64
	MaxThumbnailBytes int64
}

// Orchestrator drives the upload flow: validate, upload the video blob,
// upload the optional thumbnail blob, insert the video row. Each step runs at
// most once and a failure at any step aborts the rest; nothing is retried.
type Orchestrator struct {
	store  storage.ObjectStore
	videos repositories.VideoRepository
	limits Limits

	nowFunc func() time.Time
	idFunc  func() string
}

// NewOrchestrator constructs an Orchestrator writing blobs to the provided
// store and rows to the provided repository.
func NewOrchestrator(store storage.ObjectStore, videos repositories.VideoRepository, limits Limits) *Orchestrator {
	return &Orchestrator{
		store:  store,
		videos: videos,
		limits: limits,
	}
}

// ValidateDraft checks a draft without touching storage. It runs once when
// fields arrive and again inside Run, so stale state cannot slip through.
func (o *Orchestrator) ValidateDraft(draft Draft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return ErrTitleRequired
	}
	if draft.Video == nil {
		return ErrVideoRequired
	}
	if err := o.ValidateVideoSize(draft.Video.Size); err != nil {
		return err
	}
	if draft.Thumbnail != nil {
		if err := o.ValidateThumbnailSize(draft.Thumbnail.Size); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVideoSize rejects video payloads over the configured limit.
func (o *Orchestrator) ValidateVideoSize(size int64) error {
	if size > o.limits.MaxVideoBytes {
		return &SizeError{Field: "video", Limit: o.limits.MaxVideoBytes}
	}
	return nil
}

// ValidateThumbnailSize rejects thumbnail payloads over the configured limit.
func (o *Orchestrator) ValidateThumbnailSize(size int64) error {
	if size > o.limits.MaxThumbnailBytes {
		return &SizeError{Field: "thumbnail", Limit: o.limits.MaxThumbnailBytes}
	}
	return nil
}

// Run executes the upload flow for the provided user and draft. On success
// the created video row is returned and the draft is spent. On failure the
// returned error is an *Error naming the failing step; blobs stored by
// earlier steps are not cleaned up.
func (o *Orchestrator) Run(ctx context.Context, userID string, draft Draft) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "upload video")
	defer span.End()

	logger := logging.FromContext(ctx)

	if err := o.ValidateDraft(draft); err != nil {
		return models.Video{}, &Error{State: StateValidating, Err: err}
	}

	videoKey := randomKey("", draft.Video.Name)
	videoURL, err := o.store.Save(ctx, videoKey, draft.Video.Content)
	if err != nil {
		logger.Error("video blob upload failed", "key", videoKey, "error", err)
		return models.Video{}, &Error{State: StateUploadingVideo, Err: err}
	}

	var thumbnailURL *string
	if draft.Thumbnail != nil {
		thumbnailKey := randomKey("thumbnails", draft.Thumbnail.Name)
		url, err := o.store.Save(ctx, thumbnailKey, draft.Thumbnail.Content)
		if err != nil {
			// The video blob stays behind as an orphan. Accepted.
			logger.Error("thumbnail blob upload failed", "key", thumbnailKey, "error", err)
			return models.Video{}, &Error{State: StateUploadingThumbnail, Err: err}
		}
		thumbnailURL = &url
	}

	video := models.Video{
		ID:           o.newID(),
		Title:        draft.Title,
		Description:  draft.Description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		UserID:       userID,
		CreatedAt:    o.now(),
	}

	if err := o.videos.Create(ctx, video); err != nil {
		logger.Error("video record insert failed", "videoId", video.ID, "error", err)
		return models.Video{}, &Error{State: StateInsertingRecord, Err: err}
	}

	logger.Info("video uploaded", "videoId", video.ID, "userId", userID, "hasThumbnail", thumbnailURL != nil)

	return video, nil
}

// randomKey builds an object key from a random UUID, preserving the original
// file extension. Collisions are treated as negligible.
func randomKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	key := uuid.NewString() + ext
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// StoreFile uploads a single file under a fresh random key and returns its
// public URL. The profile avatar flow shares this single-step contract.
func StoreFile(ctx context.Context, store storage.ObjectStore, file File) (string, error) {
	key := randomKey("", file.Name)
	url, err := store.Save(ctx, key, file.Content)
	if err != nil {
		return "", fmt.Errorf("store file %s: %w", key, err)
	}
	return url, nil
}

func (o *Orchestrator) now() time.Time {
	if o.nowFunc != nil {
		return o.nowFunc().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newID() string {
	if o.idFunc != nil {
		return o.idFunc()
	}
	return uuid.NewString()
}

package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/storage"
)

const (
	testMaxVideoBytes     = 50 * 1024 * 1024
	testMaxThumbnailBytes = 5 * 1024 * 1024
)

type videoRepoStub struct {
	created   []models.Video
	createErr error
}

func (s *videoRepoStub) Create(_ context.Context, video models.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, video)
	return nil
}

func (s *videoRepoStub) ListFeed(_ context.Context) ([]models.FeedEntry, error) {
	return nil, nil
}

// countingStore wraps an ObjectStore and records Save calls, optionally
// failing from a given call onward.
type countingStore struct {
	base     storage.ObjectStore
	saves    int
	failFrom int // 1-based call number to start failing at; 0 disables
}

func (s *countingStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	s.saves++
	if s.failFrom > 0 && s.saves >= s.failFrom {
		return "", errors.New("storage unavailable")
	}
	return s.base.Save(ctx, key, r)
}

func (s *countingStore) PublicURL(key string) string {
	return s.base.PublicURL(key)
}

func newTestOrchestrator(store storage.ObjectStore, repo *videoRepoStub) *Orchestrator {
	o := NewOrchestrator(store, repo, Limits{
		MaxVideoBytes:     testMaxVideoBytes,
		MaxThumbnailBytes: testMaxThumbnailBytes,
	})
	o.nowFunc = func() time.Time {
		return time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	}
	return o
}

func videoFile(name string, size int64) *File {
	return &File{Name: name, Size: size, Content: strings.NewReader("payload")}
}

func TestRunSuccessWithoutThumbnail(t *testing.T) {
	mem := storage.NewInMemoryStore("videos")
	store := &countingStore{base: mem}
	repo := &videoRepoStub{}
	o := newTestOrchestrator(store, repo)

	draft := Draft{
		Title:       "First ride",
		Description: "down the hill",
		Video:       videoFile("clip.MP4", 1024),
	}

	video, err := o.Run(context.Background(), "user-1", draft)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if video.ThumbnailURL != nil {
		t.Fatalf("expected nil thumbnail url, got %q", *video.ThumbnailURL)
	}
	if video.UserID != "user-1" || video.Title != "First ride" {
		t.Fatalf("unexpected video %+v", video)
	}
	if !strings.HasSuffix(video.VideoURL, ".mp4") {
		t.Fatalf("expected original extension preserved, got %q", video.VideoURL)
	}
	if store.saves != 1 || mem.Len() != 1 {
		t.Fatalf("expected exactly one stored blob, got saves=%d len=%d", store.saves, mem.Len())
	}
	if len(repo.created) != 1 || repo.created[0].ID != video.ID {
		t.Fatalf("expected one inserted record, got %+v", repo.created)
	}
}

func TestRunSuccessWithThumbnail(t *testing.T) {
	mem := storage.NewInMemoryStore("videos")
	store := &countingStore{base: mem}
	repo := &videoRepoStub{}
	o := newTestOrchestrator(store, repo)

	draft := Draft{
		Title:     "With cover",
		Video:     videoFile("clip.mp4", 1024),
		Thumbnail: videoFile("cover.jpg", 512),
	}

	video, err := o.Run(context.Background(), "user-1", draft)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if video.ThumbnailURL == nil {
		t.Fatal("expected thumbnail url")
	}
	if *video.ThumbnailURL == video.VideoURL {
		t.Fatal("expected thumbnail url distinct from video url")
	}
	if !strings.Contains(*video.ThumbnailURL, "thumbnails/") {
		t.Fatalf("expected thumbnail under thumbnails/ prefix, got %q", *video.ThumbnailURL)
	}
	if store.saves != 2 {
		t.Fatalf("expected two blob uploads, got %d", store.saves)
	}
}

func TestRunValidationFailuresMakeNoStorageCalls(t *testing.T) {
	cases := []struct {
		name    string
		draft   Draft
		wantErr error
	}{
		{
			name:    "missing title",
			draft:   Draft{Video: videoFile("clip.mp4", 1024)},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "blank title",
			draft:   Draft{Title: "   ", Video: videoFile("clip.mp4", 1024)},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "missing video",
			draft:   Draft{Title: "no file"},
			wantErr: ErrVideoRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &countingStore{base: storage.NewInMemoryStore("videos")}
			repo := &videoRepoStub{}
			o := newTestOrchestrator(store, repo)

			_, err := o.Run(context.Background(), "user-1", tc.draft)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v got %v", tc.wantErr, err)
			}

			var uploadErr *Error
			if !errors.As(err, &uploadErr) || uploadErr.State != StateValidating {
				t.Fatalf("expected failure at validating, got %v", err)
			}
			if store.saves != 0 {
				t.Fatalf("expected zero storage calls, got %d", store.saves)
			}
			if len(repo.created) != 0 {
				t.Fatalf("expected no inserts, got %d", len(repo.created))
			}
		})
	}
}

func TestRunRejectsOversizedFiles(t *testing.T) {
	store := &countingStore{base: storage.NewInMemoryStore("videos")}
	repo := &videoRepoStub{}
	o := newTestOrchestrator(store, repo)

	over := Draft{
		Title: "too big",
		Video: videoFile("clip.mp4", testMaxVideoBytes+1),
	}
	_, err := o.Run(context.Background(), "user-1", over)
	var sizeErr *SizeError
	if !errors.As(err, &sizeErr) || sizeErr.Field != "video" {
		t.Fatalf("expected video size error, got %v", err)
	}

	overThumb := Draft{
		Title:     "thumb too big",
		Video:     videoFile("clip.mp4", 1024),
		Thumbnail: videoFile("cover.jpg", testMaxThumbnailBytes+1),
	}
	_, err = o.Run(context.Background(), "user-1", overThumb)
	if !errors.As(err, &sizeErr) || sizeErr.Field != "thumbnail" {
		t.Fatalf("expected thumbnail size error, got %v", err)
	}

	if store.saves != 0 {
		t.Fatalf("expected zero storage calls, got %d", store.saves)
	}
}

func TestRunSizeLimitBoundaries(t *testing.T) {
	o := newTestOrchestrator(storage.NewInMemoryStore("videos"), &videoRepoStub{})

	if err := o.ValidateVideoSize(testMaxVideoBytes); err != nil {
		t.Fatalf("video at exactly the limit should pass, got %v", err)
	}
	if err := o.ValidateVideoSize(testMaxVideoBytes + 1); err == nil {
		t.Fatal("video one byte over the limit should fail")
	}
	if err := o.ValidateThumbnailSize(testMaxThumbnailBytes); err != nil {
		t.Fatalf("thumbnail at exactly the limit should pass, got %v", err)
	}
	if err := o.ValidateThumbnailSize(testMaxThumbnailBytes + 1); err == nil {
		t.Fatal("thumbnail one byte over the limit should fail")
	}
}

func TestRunThumbnailFailureLeavesVideoBlobOrphaned(t *testing.T) {
	mem := storage.NewInMemoryStore("videos")
	store := &countingStore{base: mem, failFrom: 2}
	repo := &videoRepoStub{}
	o := newTestOrchestrator(store, repo)

	draft := Draft{
		Title:     "half done",
		Video:     videoFile("clip.mp4", 1024),
		Thumbnail: videoFile("cover.jpg", 512),
	}

	_, err := o.Run(context.Background(), "user-1", draft)

	var uploadErr *Error
	if !errors.As(err, &uploadErr) || uploadErr.State != StateUploadingThumbnail {
		t.Fatalf("expected failure at uploading_thumbnail, got %v", err)
	}
	// The already-uploaded video blob stays; there is no rollback.
	if mem.Len() != 1 {
		t.Fatalf("expected orphaned video blob to remain, got %d objects", mem.Len())
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no record insert, got %d", len(repo.created))
	}
}

func TestRunInsertFailure(t *testing.T) {
	mem := storage.NewInMemoryStore("videos")
	repo := &videoRepoStub{createErr: fmt.Errorf("db down")}
	o := newTestOrchestrator(mem, repo)

	draft := Draft{
		Title: "doomed",
		Video: videoFile("clip.mp4", 1024),
	}

	_, err := o.Run(context.Background(), "user-1", draft)

	var uploadErr *Error
	if !errors.As(err, &uploadErr) || uploadErr.State != StateInsertingRecord {
		t.Fatalf("expected failure at inserting_record, got %v", err)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected uploaded blob to remain, got %d objects", mem.Len())
	}
}

func TestStoreFile(t *testing.T) {
	mem := storage.NewInMemoryStore("avatars")

	url, err := StoreFile(context.Background(), mem, File{
		Name:    "me.PNG",
		Size:    256,
		Content: strings.NewReader("avatar"),
	})
	if err != nil {
		t.Fatalf("store file: %v", err)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("expected lowered original extension, got %q", url)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected one stored object, got %d", mem.Len())
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ripple/backend/internal/feed"
	"github.com/ripple/backend/internal/logging"
	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/uploads"
)

// uploadFormMemory bounds how much of a video upload is buffered in memory
// before spilling to temp files.
const uploadFormMemory = 32 << 20

// defaultMaxUploadBytes caps a whole upload request body: the video and
// thumbnail limits plus headroom for the form fields themselves.
const defaultMaxUploadBytes = (50 + 5 + 1) << 20

// VideoHandler provides endpoints for sharing and browsing videos.
type VideoHandler struct {
	Sessions SessionManager
	Videos   VideoStore
	Uploads  UploadOrchestrator

	// MaxUploadBytes caps the request body accepted by Create. Zero means
	// defaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Create handles POST /api/v1/videos. The upload is accepted as multipart
// form data with a required video part and an optional thumbnail part.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.Sessions == nil || h.Uploads == nil {
		logger.Error("video dependencies unavailable", "hasSessions", h.Sessions != nil, "hasUploads", h.Uploads != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	session, ok := currentSession(r, h.Sessions)
	if !ok {
		respondSignInRedirect(r, w)
		return
	}

	// Stop reading once the body exceeds the combined size limits instead of
	// spooling an arbitrarily large upload to disk first.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())

	if err := r.ParseMultipartForm(uploadFormMemory); err != nil {
		logger.Warn("invalid upload form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	draft := uploads.Draft{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	video, header, err := r.FormFile("video")
	switch {
	case err == nil:
		defer video.Close()
		// Oversized files are rejected as they arrive, mirroring the size
		// check a picker applies before the upload ever starts.
		if err := h.Uploads.ValidateVideoSize(header.Size); err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		draft.Video = &uploads.File{Name: header.Filename, Size: header.Size, Content: video}
	case errors.Is(err, http.ErrMissingFile):
		// Leave draft.Video nil; the orchestrator reports the missing file.
	default:
		logger.Warn("invalid video field", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid video upload"})
		return
	}

	if thumb, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumb.Close()
		if err := h.Uploads.ValidateThumbnailSize(thumbHeader.Size); err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		draft.Thumbnail = &uploads.File{Name: thumbHeader.Filename, Size: thumbHeader.Size, Content: thumb}
	} else if !errors.Is(err, http.ErrMissingFile) {
		logger.Warn("invalid thumbnail field", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid thumbnail upload"})
		return
	}

	created, err := h.Uploads.Run(ctx, session.UserID, draft)
	if err != nil {
		var sizeErr *uploads.SizeError
		switch {
		case errors.Is(err, uploads.ErrTitleRequired),
			errors.Is(err, uploads.ErrVideoRequired),
			errors.As(err, &sizeErr):
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": underlying(err).Error()})
		default:
			logger.Error("video upload failed", "userId", session.UserID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "Failed to upload video. Please try again."})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, createVideoResponse{
		Video:   created,
		Message: "Video uploaded successfully!",
	})
}

// Feed handles GET /api/v1/videos/feed for signed-in viewers. The feed always
// opens on the newest video.
func (h VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.Sessions == nil || h.Videos == nil {
		logger.Error("video dependencies unavailable", "hasSessions", h.Sessions != nil, "hasVideos", h.Videos != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	if _, ok := currentSession(r, h.Sessions); !ok {
		respondSignInRedirect(r, w)
		return
	}

	entries, err := h.Videos.ListFeed(ctx)
	if err != nil {
		logger.Error("feed query failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Entries: entries, Index: 0})
}

// Navigate handles GET /api/v1/videos/feed/navigate. It applies one scroll
// step to a client-held position and clamps the result to the feed bounds.
func (h VideoHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.Sessions == nil || h.Videos == nil {
		logger.Error("video dependencies unavailable", "hasSessions", h.Sessions != nil, "hasVideos", h.Videos != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "video services unavailable"})
		return
	}

	if _, ok := currentSession(r, h.Sessions); !ok {
		respondSignInRedirect(r, w)
		return
	}

	direction, err := feed.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "direction must be \"up\" or \"down\""})
		return
	}

	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err = strconv.Atoi(raw)
		if err != nil {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "index must be an integer"})
			return
		}
	}

	entries, err := h.Videos.ListFeed(ctx)
	if err != nil {
		logger.Error("feed query failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	next := feed.Navigate(len(entries), index, direction)
	resp := navigateResponse{Index: next, Length: len(entries)}
	if next >= 0 && next < len(entries) {
		entry := entries[next]
		resp.Entry = &entry
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// landingSamples is the fixed teaser shown to anonymous visitors. The real
// feed stays behind the session gate; the landing page never queries it.
var landingSamples = []models.FeedEntry{
	{
		Video: models.Video{
			ID:          "sample-sunset",
			Title:       "Sunset ride",
			Description: "Evening skate along the pier",
			VideoURL:    "https://cdn.ripple.example/videos/sample-sunset.mp4",
			CreatedAt:   time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC),
		},
		Username: "maya",
	},
	{
		Video: models.Video{
			ID:          "sample-latte",
			Title:       "Latte art",
			Description: "Pouring a swan, third attempt",
			VideoURL:    "https://cdn.ripple.example/videos/sample-latte.mp4",
			CreatedAt:   time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC),
		},
		Username: "theo",
	},
	{
		Video: models.Video{
			ID:          "sample-drums",
			Title:       "Rooftop drums",
			Description: "Short loop from last night",
			VideoURL:    "https://cdn.ripple.example/videos/sample-drums.mp4",
			CreatedAt:   time.Date(2025, time.May, 31, 22, 15, 0, 0, time.UTC),
		},
		Username: "maya",
	},
}

// Landing handles GET / with the static sample feed for visitors who have
// not signed in.
func (h VideoHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	respondJSON(r.Context(), w, http.StatusOK, landingResponse{
		Entries:     landingSamples,
		SignInRoute: signInRoute,
	})
}

func (h VideoHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

// underlying strips the state wrapper so clients see the validation message
// itself rather than the phase it failed in.
func underlying(err error) error {
	var stage *uploads.Error
	if errors.As(err, &stage) && stage.Err != nil {
		return stage.Err
	}
	return err
}

type createVideoResponse struct {
	Video   models.Video `json:"video"`
	Message string       `json:"message"`
}

type feedResponse struct {
	Entries []models.FeedEntry `json:"entries"`
	Index   int                `json:"index"`
}

type navigateResponse struct {
	Index  int               `json:"index"`
	Length int               `json:"length"`
	Entry  *models.FeedEntry `json:"entry,omitempty"`
}

type landingResponse struct {
	Entries     []models.FeedEntry `json:"entries"`
	SignInRoute string             `json:"signInRoute"`
}

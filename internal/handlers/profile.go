package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ripple/backend/internal/logging"
	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/repositories"
	"github.com/ripple/backend/internal/storage"
	"github.com/ripple/backend/internal/uploads"
)

// avatarFormMemory bounds how much of an avatar upload is buffered in memory.
const avatarFormMemory = 8 << 20

// ProfileHandler implements the profile load-or-create and update endpoints.
type ProfileHandler struct {
	Sessions SessionManager
	Profiles ProfileStore
	Avatars  storage.ObjectStore
	NowFunc  func() time.Time
}

// Handle dispatches /api/v1/profile requests.
func (h ProfileHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.load(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// load implements the load-or-create flow: a missing row is a valid empty
// result that triggers exactly one seeded insert for the calling user.
func (h ProfileHandler) load(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil || h.Profiles == nil {
		logger.Error("profile dependencies unavailable", "hasSessions", h.Sessions != nil, "hasProfiles", h.Profiles != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile services unavailable"})
		return
	}

	session, ok := currentSession(r, h.Sessions)
	if !ok {
		respondSignInRedirect(r, w)
		return
	}

	profile, err := h.Profiles.FindByID(ctx, session.UserID)
	if err == nil {
		respondJSON(ctx, w, http.StatusOK, profileResponse{Profile: profile})
		return
	}

	if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("profile lookup failed", "userId", session.UserID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	seeded := models.Profile{
		ID:        session.UserID,
		Username:  "",
		FullName:  "",
		AvatarURL: nil,
		UpdatedAt: h.now(),
	}

	if err := h.Profiles.Create(ctx, seeded); err != nil {
		// Another request for the same user can win the race; the row it
		// created is the one to return.
		if errors.Is(err, repositories.ErrConflict) {
			profile, err = h.Profiles.FindByID(ctx, session.UserID)
			if err == nil {
				respondJSON(ctx, w, http.StatusOK, profileResponse{Profile: profile})
				return
			}
		}
		logger.Error("profile create failed", "userId", session.UserID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	logger.Info("profile created", "userId", session.UserID)

	respondJSON(ctx, w, http.StatusCreated, profileResponse{
		Profile: seeded,
		Created: true,
		Message: "Please update your profile information",
	})
}

// update merges a possibly-new avatar with the edited name fields and writes
// the row by identity. On failure nothing is committed and the client keeps
// its edits.
func (h ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Sessions == nil || h.Profiles == nil || h.Avatars == nil {
		logger.Error("profile dependencies unavailable", "hasSessions", h.Sessions != nil, "hasProfiles", h.Profiles != nil, "hasAvatars", h.Avatars != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile services unavailable"})
		return
	}

	session, ok := currentSession(r, h.Sessions)
	if !ok {
		respondSignInRedirect(r, w)
		return
	}

	if err := r.ParseMultipartForm(avatarFormMemory); err != nil {
		logger.Warn("invalid profile form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid form data"})
		return
	}

	profile, err := h.Profiles.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		logger.Error("profile lookup failed", "userId", session.UserID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	profile.Username = strings.TrimSpace(r.FormValue("username"))
	profile.FullName = strings.TrimSpace(r.FormValue("fullName"))

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		url, err := uploads.StoreFile(ctx, h.Avatars, uploads.File{
			Name:    header.Filename,
			Size:    header.Size,
			Content: file,
		})
		if err != nil {
			logger.Error("avatar upload failed", "userId", session.UserID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to upload avatar"})
			return
		}
		profile.AvatarURL = &url
	} else if !errors.Is(err, http.ErrMissingFile) {
		logger.Warn("invalid avatar field", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid avatar upload"})
		return
	}

	profile.UpdatedAt = h.now()

	if err := h.Profiles.Update(ctx, profile); err != nil {
		logger.Error("profile update failed", "userId", session.UserID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update profile"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, profileResponse{Profile: profile})
}

func (h ProfileHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

type profileResponse struct {
	Profile models.Profile `json:"profile"`
	Created bool           `json:"created,omitempty"`
	Message string         `json:"message,omitempty"`
}

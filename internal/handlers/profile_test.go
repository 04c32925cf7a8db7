package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ripple/backend/internal/models"
	"github.com/ripple/backend/internal/repositories"
	"github.com/ripple/backend/internal/storage"
)

type profileStoreStub struct {
	profiles      map[string]models.Profile
	createErr     error
	updateErr     error
	findErr       error
	missFirstFind bool
	creates       int
}

func newProfileStoreStub() *profileStoreStub {
	return &profileStoreStub{profiles: make(map[string]models.Profile)}
}

func (s *profileStoreStub) FindByID(_ context.Context, id string) (models.Profile, error) {
	if s.findErr != nil {
		return models.Profile{}, s.findErr
	}
	if s.missFirstFind {
		s.missFirstFind = false
		return models.Profile{}, repositories.ErrNotFound
	}
	profile, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	return profile, nil
}

func (s *profileStoreStub) Create(_ context.Context, profile models.Profile) error {
	s.creates++
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.profiles[profile.ID]; exists {
		return repositories.ErrConflict
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *profileStoreStub) Update(_ context.Context, profile models.Profile) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.profiles[profile.ID] = profile
	return nil
}

type profileFixture struct {
	handler ProfileHandler
	store   *profileStoreStub
	avatars *storage.InMemoryStore
	token   string
}

func newProfileFixture(t *testing.T) profileFixture {
	t.Helper()

	store := newProfileStoreStub()
	avatars := storage.NewInMemoryStore("avatars")
	manager := newTestManager(t)

	issued, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	return profileFixture{
		handler: ProfileHandler{Sessions: manager, Profiles: store, Avatars: avatars},
		store:   store,
		avatars: avatars,
		token:   issued.AccessToken,
	}
}

func TestProfileHandlerLoadCreatesMissingRow(t *testing.T) {
	fx := newProfileFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected the created flag on first load")
	}
	if resp.Profile.ID != "user-1" {
		t.Fatalf("expected profile for user-1 got %q", resp.Profile.ID)
	}
	if resp.Profile.Username != "" || resp.Profile.FullName != "" || resp.Profile.AvatarURL != nil {
		t.Fatalf("expected an empty seeded profile got %+v", resp.Profile)
	}

	// The second load returns the same row without inserting again.
	rec = httptest.NewRecorder()
	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	resp = profileResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Created {
		t.Fatal("second load must not report creation")
	}
	if fx.store.creates != 1 {
		t.Fatalf("expected exactly one insert got %d", fx.store.creates)
	}
}

func TestProfileHandlerLoadSurvivesCreateRace(t *testing.T) {
	fx := newProfileFixture(t)
	// A concurrent request wins the insert between the handler's find and
	// create: the first find misses, the create conflicts, and the retry
	// sees the winner's row.
	fx.store.profiles["user-1"] = models.Profile{ID: "user-1", Username: "raced"}
	fx.store.missFirstFind = true

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Profile.Username != "raced" {
		t.Fatalf("expected the winner's row got %+v", resp.Profile)
	}
	if fx.store.creates != 1 {
		t.Fatalf("expected a single conflicting insert got %d", fx.store.creates)
	}
}

func TestProfileHandlerLoadRequiresSession(t *testing.T) {
	fx := newProfileFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["redirect"] != signInRoute {
		t.Fatalf("expected redirect %q got %q", signInRoute, resp["redirect"])
	}
}

func profileForm(t *testing.T, username, fullName string, avatar string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("username", username); err != nil {
		t.Fatalf("write username: %v", err)
	}
	if err := writer.WriteField("fullName", fullName); err != nil {
		t.Fatalf("write fullName: %v", err)
	}
	if avatar != "" {
		part, err := writer.CreateFormFile("avatar", avatar)
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader("avatar-bytes")); err != nil {
			t.Fatalf("write avatar part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestProfileHandlerUpdate(t *testing.T) {
	fx := newProfileFixture(t)
	fx.store.profiles["user-1"] = models.Profile{ID: "user-1"}

	body, contentType := profileForm(t, "wavewatcher", "Alex Chen", "avatar.png")
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Profile.Username != "wavewatcher" || resp.Profile.FullName != "Alex Chen" {
		t.Fatalf("expected updated fields got %+v", resp.Profile)
	}
	if resp.Profile.AvatarURL == nil || !strings.Contains(*resp.Profile.AvatarURL, ".png") {
		t.Fatalf("expected avatar url with original extension got %v", resp.Profile.AvatarURL)
	}
	if fx.avatars.Len() != 1 {
		t.Fatalf("expected one stored avatar got %d", fx.avatars.Len())
	}
}

func TestProfileHandlerUpdateKeepsExistingAvatar(t *testing.T) {
	fx := newProfileFixture(t)
	existing := "memory://avatars/old.png"
	fx.store.profiles["user-1"] = models.Profile{ID: "user-1", AvatarURL: &existing}

	body, contentType := profileForm(t, "wavewatcher", "Alex Chen", "")
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp profileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Profile.AvatarURL == nil || *resp.Profile.AvatarURL != existing {
		t.Fatalf("expected avatar to survive an update without a new file, got %v", resp.Profile.AvatarURL)
	}
	if fx.avatars.Len() != 0 {
		t.Fatalf("expected no new avatar blobs got %d", fx.avatars.Len())
	}
}

func TestProfileHandlerUpdateFailureKeepsClientEdits(t *testing.T) {
	fx := newProfileFixture(t)
	fx.store.profiles["user-1"] = models.Profile{ID: "user-1", Username: "before"}
	fx.store.updateErr = errors.New("db down")

	body, contentType := profileForm(t, "after", "Someone", "")
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	if fx.store.profiles["user-1"].Username != "before" {
		t.Fatal("failed update must not change the stored row")
	}
}

func TestProfileHandlerMethodNotAllowed(t *testing.T) {
	fx := newProfileFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	rec := httptest.NewRecorder()

	fx.handler.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

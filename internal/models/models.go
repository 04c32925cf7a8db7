package models

import "time"

// Profile represents the editable identity of a Ripple user. Its ID is the
// user identity issued at signup; the row is created lazily on first profile
// access and never deleted.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	AvatarURL *string   `json:"avatarUrl"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is an account within Ripple. Password holds the bcrypt hash.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Video is a record created by the upload flow. Videos are never updated or
// deleted in-app.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FeedEntry surfaces a video joined with its uploader's public profile
// fields. Likes and Comments are always zero: Ripple does not track
// per-video aggregate counts.
type FeedEntry struct {
	Video
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	Likes     int     `json:"likes"`
	Comments  int     `json:"comments"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

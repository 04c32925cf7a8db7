package feed

import (
	"errors"

	"github.com/ripple/backend/internal/models"
)

// Direction is one cursor movement over the feed.
type Direction string

const (
	// DirectionUp moves toward newer entries (lower indices).
	DirectionUp Direction = "up"
	// DirectionDown moves toward older entries (higher indices).
	DirectionDown Direction = "down"
)

// ErrUnknownDirection indicates a navigation request with an unrecognised direction.
var ErrUnknownDirection = errors.New("unknown direction")

// ParseDirection converts a wire value into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", ErrUnknownDirection
	}
}

// View is the transient list/detail state over a loaded feed: an ordered
// sequence of entries (newest first) plus a single cursor clamped to
// [0, len-1]. Navigation is a pure function of prior state, so rapid
// repeated moves are safe.
type View struct {
	Entries []models.FeedEntry
	Index   int
}

// NewView builds a view over the entries with the cursor at the newest entry.
func NewView(entries []models.FeedEntry) View {
	return View{Entries: entries}
}

// Current returns the entry under the cursor, or false for an empty feed.
func (v View) Current() (models.FeedEntry, bool) {
	if len(v.Entries) == 0 {
		return models.FeedEntry{}, false
	}
	return v.Entries[v.clamp(v.Index)], true
}

// Move returns a copy of the view with the cursor moved one step in the
// provided direction, clamped to the feed bounds. Moving up at the first
// entry and down at the last are no-ops.
func (v View) Move(dir Direction) View {
	v.Index = Navigate(len(v.Entries), v.Index, dir)
	return v
}

// Navigate computes the cursor position after one movement over a feed of
// the provided length. Out-of-range inputs are clamped before moving.
func Navigate(length, index int, dir Direction) int {
	index = clampIndex(length, index)
	switch dir {
	case DirectionUp:
		if index > 0 {
			index--
		}
	case DirectionDown:
		if index < length-1 {
			index++
		}
	}
	return index
}

func (v View) clamp(i int) int {
	return clampIndex(len(v.Entries), i)
}

func clampIndex(length, i int) int {
	if length == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i > length-1 {
		return length - 1
	}
	return i
}

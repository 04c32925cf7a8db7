package feed

import (
	"errors"
	"testing"

	"github.com/ripple/backend/internal/models"
)

func entries(ids ...string) []models.FeedEntry {
	out := make([]models.FeedEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.FeedEntry{Video: models.Video{ID: id}})
	}
	return out
}

func TestNavigateClampsAtBounds(t *testing.T) {
	const n = 5
	for i := 0; i < n; i++ {
		up := Navigate(n, i, DirectionUp)
		want := i - 1
		if want < 0 {
			want = 0
		}
		if up != want {
			t.Fatalf("up from %d: got %d want %d", i, up, want)
		}

		down := Navigate(n, i, DirectionDown)
		want = i + 1
		if want > n-1 {
			want = n - 1
		}
		if down != want {
			t.Fatalf("down from %d: got %d want %d", i, down, want)
		}
	}
}

func TestNavigateScenarioNewestFirst(t *testing.T) {
	// Feed holds three videos newest-first: C, B, A.
	view := NewView(entries("C", "B", "A"))

	current, ok := view.Current()
	if !ok || current.ID != "C" {
		t.Fatalf("initial cursor should show C, got %+v ok=%v", current, ok)
	}

	view = view.Move(DirectionDown)
	if current, _ = view.Current(); current.ID != "B" {
		t.Fatalf("after one down expected B, got %s", current.ID)
	}

	view = view.Move(DirectionDown)
	if current, _ = view.Current(); current.ID != "A" {
		t.Fatalf("after two downs expected A, got %s", current.ID)
	}

	// A further down-press is clamped at the oldest entry.
	view = view.Move(DirectionDown)
	if current, _ = view.Current(); current.ID != "A" {
		t.Fatalf("down at the end should stay on A, got %s", current.ID)
	}

	// Up at the first entry is likewise a no-op.
	view = View{Entries: view.Entries}
	view = view.Move(DirectionUp)
	if current, _ = view.Current(); current.ID != "C" {
		t.Fatalf("up at the start should stay on C, got %s", current.ID)
	}
}

func TestNavigateOutOfRangeInputs(t *testing.T) {
	if got := Navigate(3, -5, DirectionDown); got != 1 {
		t.Fatalf("negative index should clamp to 0 before moving, got %d", got)
	}
	if got := Navigate(3, 99, DirectionUp); got != 1 {
		t.Fatalf("oversized index should clamp to 2 before moving, got %d", got)
	}
	if got := Navigate(0, 0, DirectionDown); got != 0 {
		t.Fatalf("empty feed always resolves to 0, got %d", got)
	}
}

func TestCurrentEmptyFeed(t *testing.T) {
	view := NewView(nil)
	if _, ok := view.Current(); ok {
		t.Fatal("expected no current entry for empty feed")
	}
}

func TestParseDirection(t *testing.T) {
	if dir, err := ParseDirection("up"); err != nil || dir != DirectionUp {
		t.Fatalf("parse up: %v %v", dir, err)
	}
	if dir, err := ParseDirection("down"); err != nil || dir != DirectionDown {
		t.Fatalf("parse down: %v %v", dir, err)
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
}

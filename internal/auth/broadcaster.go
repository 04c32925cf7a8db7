package auth

import "sync"

// EventType labels a session transition.
type EventType string

const (
	// EventSignedIn is emitted when a new session is issued.
	EventSignedIn EventType = "signed_in"
	// EventSignedOut is emitted when a session is revoked or its refresh token expires.
	EventSignedOut EventType = "signed_out"
)

// Event describes one session transition for one user.
type Event struct {
	Type   EventType
	UserID string
}

// Broadcaster fans session events out to subscribers. Subscriptions are
// scoped to a user and must be released by calling the returned cancel
// function; a slow subscriber drops events rather than blocking the
// publisher.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	userID string
	ch     chan Event
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]subscription)}
}

// Subscribe registers interest in session events for the provided user. The
// cancel function removes the subscription and closes the channel; it is safe
// to call more than once.
func (b *Broadcaster) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{userID: userID, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber registered for its user.
func (b *Broadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.userID != evt.UserID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// SubscriberCount reports the number of active subscriptions. Useful for tests.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

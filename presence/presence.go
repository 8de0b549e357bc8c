// Package presence tracks connectivity state for connected users. The state
// lives only in memory and only for the lifetime of one process; the durable
// UserStatus log is written separately by the gateway.
package presence

import (
	"sync"
	"time"

	"duochat/models"
)

type Entry struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
	IsTyping bool      `json:"isTyping,omitempty"`
	TypingTo string    `json:"typingTo,omitempty"`
}

type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// SetOnline records a fresh online transition for the user. Reconnects are
// indistinguishable from first connects.
func (t *Tracker) SetOnline(userID, username string) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := &Entry{
		ID:       userID,
		Username: username,
		Status:   models.StatusOnline,
		LastSeen: t.now(),
	}
	t.entries[userID] = e
	return *e
}

// SetOffline flips the user to offline and stamps lastSeen. The entry is kept
// so lastSeen can still be served to peers.
func (t *Tracker) SetOffline(userID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return Entry{}, false
	}
	e.Status = models.StatusOffline
	e.LastSeen = t.now()
	e.IsTyping = false
	e.TypingTo = ""
	return *e, true
}

// Touch refreshes lastSeen on user activity. The second return reports an
// away-to-online recovery, which the caller must broadcast.
func (t *Tracker) Touch(userID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return Entry{}, false
	}
	e.LastSeen = t.now()
	if e.Status == models.StatusAway {
		e.Status = models.StatusOnline
		return *e, true
	}
	return *e, false
}

func (t *Tracker) SetTyping(userID, to string, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return
	}
	e.IsTyping = isTyping
	if isTyping {
		e.TypingTo = to
	} else {
		e.TypingTo = ""
	}
}

func (t *Tracker) Get(userID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[userID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Online returns every online user except the excluded one.
func (t *Tracker) Online(exclude string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	online := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Status == models.StatusOnline && e.ID != exclude {
			online = append(online, *e)
		}
	}
	return online
}

// MarkIdle flips online users whose lastSeen is older than the idle window
// to away and returns the changed entries.
func (t *Tracker) MarkIdle(idle time.Duration) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-idle)
	var changed []Entry
	for _, e := range t.entries {
		if e.Status == models.StatusOnline && e.LastSeen.Before(cutoff) {
			e.Status = models.StatusAway
			changed = append(changed, *e)
		}
	}
	return changed
}

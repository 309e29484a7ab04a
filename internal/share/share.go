package share

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	appLog "coursecal/internal/log"
)

// DefaultQRSize is the edge length in pixels of rendered QR codes.
const DefaultQRSize = 256

// ErrNotFound is returned for unknown or expired references.
var ErrNotFound = errors.New("share not found")

// Entry is one stored calendar document.
type Entry struct {
	ID          string
	Body        []byte
	ContentType string
	Filename    string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry is no longer retrievable at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store keeps short-lived shared documents in memory. Entries are
// immutable once stored.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// NewStore creates a store whose entries live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// WithClock replaces the time source, mainly for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// TTL returns the lifetime given to new entries.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores body under a fresh random ID.
func (s *Store) Put(body []byte, contentType, filename string) Entry {
	now := s.now()
	e := Entry{
		ID:          uuid.NewString(),
		Body:        append([]byte(nil), body...),
		ContentType: contentType,
		Filename:    filename,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()

	appLog.Debug("share created", "id", e.ID, "bytes", len(body), "expires_at", e.ExpiresAt.Format(time.RFC3339))
	return e
}

// Get returns the live entry for id.
func (s *Store) Get(id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()

	if !ok || e.Expired(s.now()) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		appLog.Info("share sweep", "removed", removed, "remaining", remaining)
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// QRCode renders content as a PNG QR code of size x size pixels.
func QRCode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content is empty")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

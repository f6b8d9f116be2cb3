// Package itinerary keeps the user's saved itinerary items on local storage.
package itinerary

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/smileynet/tripdeck/internal/storage"
)

// Item is one saved itinerary entry.
type Item struct {
	ID       string    `json:"id"`
	TripID   string    `json:"tripId,omitempty"`
	Name     string    `json:"name"`
	Day      int       `json:"day,omitempty"`
	Category string    `json:"category,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// TripID derives a trip identifier from destination and start date:
// "destination-startDate", lowercased, spaces replaced with hyphens.
func TripID(destination, startDate string) string {
	id := strings.ToLower(destination + "-" + startDate)
	return strings.ReplaceAll(id, " ", "-")
}

// Store holds saved items. Safe for concurrent use.
type Store struct {
	persist storage.Store
	now     func() time.Time
	logger  *log.Logger

	mu    sync.Mutex
	items []Item
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store backed by persist (nil keeps items in memory only).
func New(persist storage.Store, opts ...Option) (*Store, error) {
	s := &Store{persist: persist, now: time.Now, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	if persist != nil {
		if _, err := storage.LoadJSON(persist, storage.KeyItinerary, &s.items); err != nil {
			return nil, fmt.Errorf("itinerary: %w", err)
		}
	}
	return s, nil
}

// Items returns a copy of all saved items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// ForTrip returns items tagged with tripID.
func (s *Store) ForTrip(tripID string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, it := range s.items {
		if it.TripID == tripID {
			out = append(out, it)
		}
	}
	return out
}

// Add saves an item, assigning an ID and timestamp when missing.
// Items whose ID already exists are rejected.
func (s *Store) Add(it Item) (Item, error) {
	if strings.TrimSpace(it.Name) == "" {
		return Item{}, fmt.Errorf("itinerary: item name is required")
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.AddedAt.IsZero() {
		it.AddedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(it.ID) >= 0 {
		return Item{}, fmt.Errorf("itinerary: item %q already saved", it.ID)
	}
	s.items = append(s.items, it)
	return it, s.saveLocked()
}

// Remove deletes the item with id. Returns false if it was not present.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true, s.saveLocked()
}

// Merge adds items not already present locally. Items with an empty TripID
// are tagged with tripID. Returns the number of items added.
func (s *Store) Merge(items []Item, tripID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, it := range items {
		if it.ID != "" && s.indexLocked(it.ID) >= 0 {
			continue
		}
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.TripID == "" {
			it.TripID = tripID
		}
		if it.AddedAt.IsZero() {
			it.AddedAt = s.now().UTC()
		}
		s.items = append(s.items, it)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	s.logger.Debug("merged itinerary items", "trip", tripID, "added", added)
	return added, s.saveLocked()
}

// Clear removes every saved item.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	if s.persist == nil {
		return nil
	}
	return s.persist.Delete(storage.KeyItinerary)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
}

func (s *Store) saveLocked() error {
	if s.persist == nil {
		return nil
	}
	if err := storage.SaveJSON(s.persist, storage.KeyItinerary, s.items); err != nil {
		return fmt.Errorf("itinerary: %w", err)
	}
	return nil
}

// Package dashboard implements the two-pane trip dashboard: recommended
// activities for a destination on the left, saved itinerary items on the
// right. Separate from internal/tui which handles single-request progress.
package dashboard

import (
	"context"
	"encoding/json"

	"github.com/smileynet/tripdeck/internal/itinerary"
	"github.com/smileynet/tripdeck/internal/recommend"
)

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Recommendations.
	PaneRight              // Saved itinerary.
)

// --- Consumer-side interfaces ---

// Recommender fetches recommendations and exposes the store state.
type Recommender interface {
	Fetch(ctx context.Context, p recommend.Params, opts recommend.FetchOptions) (json.RawMessage, error)
	Snapshot() recommend.Snapshot
}

// Saver stores itinerary items.
type Saver interface {
	Items() []itinerary.Item
	Add(it itinerary.Item) (itinerary.Item, error)
	Remove(id string) (bool, error)
}

// --- tea.Msg types ---

// RecommendationsMsg carries the store state after a fetch returns.
// A superseded fetch still delivers a message; its Snapshot reflects the
// newer fetch.
type RecommendationsMsg struct {
	Snapshot recommend.Snapshot
	Err      error
}

// SavedItemsMsg carries the current saved items.
type SavedItemsMsg struct {
	Items []itinerary.Item
}

// ItemSavedMsg reports the result of saving an activity.
type ItemSavedMsg struct {
	Item itinerary.Item
	Err  error
}

// ItemRemovedMsg reports the result of deleting a saved item.
type ItemRemovedMsg struct {
	ID  string
	Err error
}

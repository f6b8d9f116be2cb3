// Package recommend caches AI-generated itinerary recommendations per
// destination. It owns fetch deduplication, 24-hour staleness, and the
// last-issued-wins rule for overlapping fetches.
package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Params is the recommendation request built from the trip-planner form.
type Params struct {
	Destination string   `json:"destination"`
	Duration    int      `json:"duration"`
	Budget      int      `json:"budget"`
	GroupSize   int      `json:"groupSize"`
	Interests   []string `json:"interests"`
}

// Key returns the cache partition key for a destination.
func Key(destination string) string {
	return strings.ToLower(strings.TrimSpace(destination))
}

// SameRequest reports whether two requests ask for the same thing:
// destination (case-insensitive), duration, budget, group size, and the
// interest set regardless of order.
func SameRequest(a, b Params) bool {
	if Key(a.Destination) != Key(b.Destination) ||
		a.Duration != b.Duration ||
		a.Budget != b.Budget ||
		a.GroupSize != b.GroupSize {
		return false
	}
	return slices.Equal(sortedInterests(a.Interests), sortedInterests(b.Interests))
}

func sortedInterests(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

// String renders params for logs and status lines.
func (p Params) String() string {
	return fmt.Sprintf("%s, %d days, budget %d, group %d, interests [%s]",
		p.Destination, p.Duration, p.Budget, p.GroupSize, strings.Join(p.Interests, ", "))
}

// Plan is the recommendation payload shape produced by the backend.
type Plan struct {
	Destination    string    `json:"destination"`
	Summary        string    `json:"summary,omitempty"`
	Days           []DayPlan `json:"days"`
	EstimatedTotal int       `json:"estimatedTotal,omitempty"`
}

// DayPlan holds one day's activities.
type DayPlan struct {
	Day        int        `json:"day"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// Activity is a single recommended activity.
type Activity struct {
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Description   string `json:"description,omitempty"`
	EstimatedCost int    `json:"estimatedCost,omitempty"`
}

// DecodePlan decodes a recommendation payload into a Plan.
func DecodePlan(raw json.RawMessage) (Plan, error) {
	var p Plan
	if !hasContent(raw) {
		return p, fmt.Errorf("recommend: empty recommendations")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("recommend: decoding plan: %w", err)
	}
	return p, nil
}

// hasContent reports whether a payload carries anything worth showing.
func hasContent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	switch string(t) {
	case "", "null", "{}", "[]", `""`:
		return false
	}
	return true
}

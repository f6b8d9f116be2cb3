package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/smileynet/tripdeck/internal/recommend"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// activityRow is one selectable activity with its day.
type activityRow struct {
	Day int
	recommend.Activity
}

// recsState holds the recommendations pane: the decoded plan, a cursor over
// its activities, and loading/error state.
type recsState struct {
	plan       recommend.Plan
	hasPlan    bool
	activities []activityRow
	cursor     int
	loading    bool
	err        error
	fetchedAt  time.Time
}

func newRecsState() recsState {
	return recsState{loading: true}
}

// apply updates the pane from the store snapshot after a fetch for key
// returned. Snapshots for another destination are ignored.
func (rs recsState) apply(msg RecommendationsMsg, key string) recsState {
	snap := msg.Snapshot
	rs.loading = snap.Loading
	if rs.loading {
		// A newer fetch is in flight; its message will settle the pane.
		return rs
	}

	rs.err = msg.Err
	if rs.err == nil {
		rs.err = snap.Err
	}
	if rs.err != nil {
		return rs
	}
	if !snap.HasCurrent || recommend.Key(snap.Current.Destination) != key {
		return rs
	}

	plan, err := recommend.DecodePlan(snap.Recommendations)
	if err != nil {
		rs.err = err
		return rs
	}
	rs.plan = plan
	rs.hasPlan = true
	rs.fetchedAt = snap.FetchedAt
	rs.activities = nil
	for _, d := range plan.Days {
		for _, a := range d.Activities {
			rs.activities = append(rs.activities, activityRow{Day: d.Day, Activity: a})
		}
	}
	if rs.cursor >= len(rs.activities) {
		rs.cursor = max(len(rs.activities)-1, 0)
	}
	return rs
}

func (rs recsState) move(delta int) recsState {
	n := len(rs.activities)
	if n == 0 || rs.loading {
		return rs
	}
	rs.cursor = (rs.cursor + delta + n) % n
	return rs
}

// Selected returns the activity under the cursor.
func (rs recsState) Selected() (activityRow, bool) {
	if rs.loading || rs.cursor < 0 || rs.cursor >= len(rs.activities) {
		return activityRow{}, false
	}
	return rs.activities[rs.cursor], true
}

// View renders the pane for the given destination.
func (rs recsState) View(destination, spinnerView string, now time.Time) string {
	if rs.loading {
		return fmt.Sprintf("%s Planning %s...", spinnerView, destination)
	}
	if rs.err != nil {
		return errorText.Render("Error: "+rs.err.Error()) + "\n\nPress r to retry"
	}
	if !rs.hasPlan || len(rs.activities) == 0 {
		return fmt.Sprintf("No recommendations for %s yet. Press r to generate.", destination)
	}

	var b strings.Builder
	if rs.plan.Summary != "" {
		b.WriteString(mutedText.Render(rs.plan.Summary) + "\n")
	}
	if !rs.fetchedAt.IsZero() {
		b.WriteString(mutedText.Render("fetched "+age(now.Sub(rs.fetchedAt))) + "\n")
	}
	day := -1
	for i, a := range rs.activities {
		if a.Day != day {
			day = a.Day
			b.WriteString("\n" + dayHeader.Render(fmt.Sprintf("Day %d", day)) + "\n")
		}
		if i == rs.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		line := a.Name
		if badge := CategoryBadge(a.Category); badge != "" {
			line += " " + badge
		}
		if c := Cost(a.EstimatedCost); c != "" {
			line += " " + mutedText.Render(c)
		}
		b.WriteString(line + "\n")
	}
	if rs.plan.EstimatedTotal > 0 {
		b.WriteString("\n" + mutedText.Render(fmt.Sprintf("Estimated total %d", rs.plan.EstimatedTotal)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// age renders a duration as a coarse "Nm ago" label.
func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

package dashboard

import (
	"fmt"
	"strings"

	"github.com/smileynet/tripdeck/internal/itinerary"
)

// savedState holds the itinerary pane.
type savedState struct {
	items  []itinerary.Item
	cursor int
}

func (ss savedState) apply(items []itinerary.Item) savedState {
	ss.items = append([]itinerary.Item(nil), items...)
	if ss.cursor >= len(ss.items) {
		ss.cursor = max(len(ss.items)-1, 0)
	}
	return ss
}

func (ss savedState) move(delta int) savedState {
	n := len(ss.items)
	if n == 0 {
		return ss
	}
	ss.cursor = (ss.cursor + delta + n) % n
	return ss
}

// Selected returns the item under the cursor.
func (ss savedState) Selected() (itinerary.Item, bool) {
	if ss.cursor < 0 || ss.cursor >= len(ss.items) {
		return itinerary.Item{}, false
	}
	return ss.items[ss.cursor], true
}

// View renders one line per saved item.
func (ss savedState) View() string {
	if len(ss.items) == 0 {
		return mutedText.Render("Nothing saved yet. Select an activity and press enter.")
	}
	var b strings.Builder
	for i, it := range ss.items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == ss.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		line := it.Name
		if it.Day > 0 {
			line = fmt.Sprintf("Day %d  %s", it.Day, it.Name)
		}
		if badge := CategoryBadge(it.Category); badge != "" {
			line += " " + badge
		}
		if it.TripID != "" {
			line += " " + mutedText.Render(it.TripID)
		}
		b.WriteString(line)
	}
	return b.String()
}

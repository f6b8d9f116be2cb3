package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// MinLeftWidth is the minimum character width for the left pane.
const MinLeftWidth = 32

var (
	mutedText = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	errorText = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	dayHeader = lipgloss.NewStyle().Bold(true)
	okText    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "10"})
)

// Category badge colors. Unknown categories are gray.
var categoryColors = map[string]lipgloss.AdaptiveColor{
	"culture":   {Light: "5", Dark: "13"},
	"food":      {Light: "208", Dark: "208"},
	"nature":    {Light: "2", Dark: "10"},
	"adventure": {Light: "1", Dark: "9"},
	"beach":     {Light: "4", Dark: "12"},
	"shopping":  {Light: "3", Dark: "11"},
}

// CategoryBadge returns a styled category label like "[food]".
func CategoryBadge(category string) string {
	if category == "" {
		return ""
	}
	c, ok := categoryColors[category]
	if !ok {
		c = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	}
	return lipgloss.NewStyle().Foreground(c).Render("[" + category + "]")
}

// Cost formats an estimated cost, or "" when unknown.
func Cost(amount int) string {
	if amount <= 0 {
		return ""
	}
	return fmt.Sprintf("~%d", amount)
}

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// PaneWidths splits the total width: the left pane gets 1/2 (minimum
// MinLeftWidth), the right pane gets the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = max(totalWidth/2, MinLeftWidth)
	right = max(totalWidth-left, 0)
	return left, right
}

// Package planner validates the trip-planner form and turns it into a
// recommendation request.
package planner

import (
	"fmt"
	"strings"

	"github.com/smileynet/tripdeck/internal/recommend"
)

// Form limits.
const (
	MaxDuration  = 30
	MaxGroupSize = 20
	MaxInterests = 8
)

// Form is the raw trip-planner input.
type Form struct {
	Destination string
	Duration    int
	Budget      int
	GroupSize   int
	Interests   []string
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field in a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "planner: invalid form: " + strings.Join(parts, "; ")
}

// Validate checks the form and returns the normalized request.
func (f Form) Validate() (recommend.Params, error) {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	dest := strings.TrimSpace(f.Destination)
	if dest == "" {
		add("destination", "is required")
	}
	if f.Duration < 1 || f.Duration > MaxDuration {
		add("duration", "must be between 1 and %d days", MaxDuration)
	}
	if f.Budget < 0 {
		add("budget", "cannot be negative")
	}
	group := f.GroupSize
	if group == 0 {
		group = 1
	}
	if group < 1 || group > MaxGroupSize {
		add("groupSize", "must be between 1 and %d", MaxGroupSize)
	}
	interests := normalize(f.Interests)
	if len(interests) > MaxInterests {
		add("interests", "at most %d interests", MaxInterests)
	}

	if len(errs) > 0 {
		return recommend.Params{}, &ValidationError{Fields: errs}
	}
	return recommend.Params{
		Destination: dest,
		Duration:    f.Duration,
		Budget:      f.Budget,
		GroupSize:   group,
		Interests:   interests,
	}, nil
}

// ParseInterests splits a comma-separated tag list.
func ParseInterests(s string) []string {
	return normalize(strings.Split(s, ","))
}

// normalize trims, lowercases, and de-duplicates tags, keeping first-seen order.
func normalize(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

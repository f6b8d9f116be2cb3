// Package packing generates packing lists and keeps per-destination drafts
// in session storage while the user ticks items off.
package packing

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/storage"
)

// Generator produces a packing list, usually via api.Client.
type Generator interface {
	GeneratePackingList(ctx context.Context, req api.PackingRequest) (api.PackingList, error)
}

// Item is a packing-list entry with its checked state.
type Item struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Packed   bool   `json:"packed"`
}

// Draft is the working packing list for one destination.
type Draft struct {
	Destination string             `json:"destination"`
	Request     api.PackingRequest `json:"request"`
	Items       []Item             `json:"items"`
}

// Progress returns packed and total item counts.
func (d Draft) Progress() (packed, total int) {
	for _, it := range d.Items {
		if it.Packed {
			packed++
		}
	}
	return packed, len(d.Items)
}

// keyUnsafe matches characters not allowed in a storage key.
var keyUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

// draftKey returns the session-storage key for a destination.
func draftKey(destination string) string {
	k := strings.ToLower(strings.TrimSpace(destination))
	k = keyUnsafe.ReplaceAllString(k, "-")
	return storage.PackingKey(k)
}

// Planner generates packing lists and owns their drafts.
type Planner struct {
	gen     Generator
	session *storage.MemoryStore
	logger  *log.Logger

	mu sync.Mutex // serializes draft read-modify-write
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the planner's logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// NewPlanner creates a Planner that keeps drafts in session.
func NewPlanner(gen Generator, session *storage.MemoryStore, opts ...Option) *Planner {
	p := &Planner{gen: gen, session: session, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate requests a new list for req and stores it as the destination's draft,
// replacing any previous draft.
func (p *Planner) Generate(ctx context.Context, req api.PackingRequest) (Draft, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return Draft{}, fmt.Errorf("packing: destination is required")
	}
	if req.Duration < 1 {
		return Draft{}, fmt.Errorf("packing: duration must be at least 1 day, got %d", req.Duration)
	}

	list, err := p.gen.GeneratePackingList(ctx, req)
	if err != nil {
		return Draft{}, fmt.Errorf("packing: %w", err)
	}

	d := Draft{Destination: req.Destination, Request: req}
	for _, it := range list.Items {
		d.Items = append(d.Items, Item{Name: it.Name, Category: it.Category, Quantity: it.Quantity})
	}
	if err := storage.SaveJSON(p.session, draftKey(req.Destination), d); err != nil {
		return Draft{}, fmt.Errorf("packing: %w", err)
	}
	p.logger.Debug("packing list generated", "destination", req.Destination, "items", len(d.Items))
	return d, nil
}

// Draft returns the stored draft for destination.
func (p *Planner) Draft(destination string) (Draft, bool, error) {
	var d Draft
	ok, err := storage.LoadJSON(p.session, draftKey(destination), &d)
	if err != nil {
		return Draft{}, false, fmt.Errorf("packing: %w", err)
	}
	return d, ok, nil
}

// Toggle flips the packed state of the named item in destination's draft.
func (p *Planner) Toggle(destination, name string) (Draft, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var d Draft
	ok, err := storage.LoadJSON(p.session, draftKey(destination), &d)
	if err != nil {
		return Draft{}, fmt.Errorf("packing: %w", err)
	}
	if !ok {
		return Draft{}, fmt.Errorf("packing: no draft for %q", destination)
	}
	found := false
	for i := range d.Items {
		if strings.EqualFold(d.Items[i].Name, name) {
			d.Items[i].Packed = !d.Items[i].Packed
			found = true
			break
		}
	}
	if !found {
		return Draft{}, fmt.Errorf("packing: no item %q in draft for %q", name, destination)
	}
	if err := storage.SaveJSON(p.session, draftKey(destination), d); err != nil {
		return Draft{}, fmt.Errorf("packing: %w", err)
	}
	return d, nil
}

// Reset drops every packing draft.
func (p *Planner) Reset() error {
	for _, k := range p.session.Keys() {
		if !storage.IsPackingKey(k) {
			continue
		}
		if err := p.session.Delete(k); err != nil {
			return fmt.Errorf("packing: %w", err)
		}
	}
	return nil
}

package recommend

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/smileynet/tripdeck/internal/storage"
)

// TTL is how long a cached entry stays valid.
const TTL = 24 * time.Hour

// Entry is one cached recommendation result.
type Entry struct {
	Recommendations json.RawMessage `json:"recommendations"`
	RequestParams   Params          `json:"requestParams"`
	FetchedAt       int64           `json:"fetchedAt"` // epoch milliseconds
}

// expired reports whether the entry is older than TTL at now.
func (e Entry) expired(now time.Time) bool {
	return now.UnixMilli()-e.FetchedAt > TTL.Milliseconds()
}

// Generator produces recommendations for a request, usually over the network.
type Generator interface {
	Generate(ctx context.Context, p Params) (json.RawMessage, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, p Params) (json.RawMessage, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, p Params) (json.RawMessage, error) {
	return f(ctx, p)
}

// Token identifies one outgoing fetch. Tokens increase monotonically in
// issuance order; zero means no fetch is active.
type Token uint64

// FetchOptions controls a single Fetch call.
type FetchOptions struct {
	ForceRefresh bool
}

// Snapshot is a consistent copy of the store's visible state.
type Snapshot struct {
	Loading         bool
	Err             error
	Current         Params
	HasCurrent      bool
	Recommendations json.RawMessage
	FetchedAt       time.Time
	Entries         int
}

// Store is the recommendation cache. Methods are safe to call from
// Bubble Tea command goroutines; the generator is never called under lock.
type Store struct {
	gen     Generator
	persist storage.Store
	now     func() time.Time
	logger  *log.Logger

	mu      sync.Mutex
	entries map[string]Entry
	seq     uint64
	active  Token
	loading bool
	err     error
	current *Entry
	wanted  string // key of the last requested destination
}

// Option configures a Store.
type Option func(*Store)

// WithStorage persists the cache under storage.KeyRecommendations.
func WithStorage(s storage.Store) Option {
	return func(st *Store) { st.persist = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// New creates a Store and loads any persisted entries, dropping expired ones.
func New(gen Generator, opts ...Option) *Store {
	s := &Store{
		gen:     gen,
		now:     time.Now,
		logger:  log.New(io.Discard),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	if s.persist == nil {
		return
	}
	var saved map[string]Entry
	ok, err := storage.LoadJSON(s.persist, storage.KeyRecommendations, &saved)
	if err != nil {
		// Start empty on a corrupt cache.
		s.logger.Warn("discarding unreadable recommendation cache", "err", err)
		_ = s.persist.Delete(storage.KeyRecommendations)
		return
	}
	if !ok {
		return
	}
	now := s.now()
	dropped := 0
	for k, e := range saved {
		if e.expired(now) {
			dropped++
			continue
		}
		s.entries[k] = e
	}
	if dropped > 0 {
		s.saveLocked()
	}
}

// Fetch returns recommendations for p.
//
// Without ForceRefresh, a fresh cached entry with content for the same
// request is returned with no generator call. Otherwise a new token becomes
// the active fetch and the generator runs. The result (or error) is committed
// only if that token is still active when the generator returns; a superseded
// call returns (nil, nil) and leaves the store untouched.
func (s *Store) Fetch(ctx context.Context, p Params, opts FetchOptions) (json.RawMessage, error) {
	key := Key(p.Destination)

	s.mu.Lock()
	s.wanted = key
	if !opts.ForceRefresh {
		if e, ok := s.hitLocked(p); ok {
			s.err = nil
			s.current = &e
			s.mu.Unlock()
			s.logger.Debug("recommendation cache hit", "destination", key)
			return slices.Clone(e.Recommendations), nil
		}
	}
	s.seq++
	tok := Token(s.seq)
	s.active = tok
	s.loading = true
	s.err = nil
	s.mu.Unlock()

	s.logger.Debug("fetching recommendations", "destination", key, "token", tok, "force", opts.ForceRefresh)
	recs, err := s.gen.Generate(ctx, p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != tok {
		s.logger.Debug("discarding superseded fetch", "destination", key, "token", tok, "active", s.active)
		return nil, nil
	}
	s.active = 0
	s.loading = false

	if err != nil {
		s.err = err
		return nil, err
	}

	e := Entry{
		Recommendations: slices.Clone(recs),
		RequestParams:   p,
		FetchedAt:       s.now().UnixMilli(),
	}
	s.entries[key] = e
	// A cache hit for another destination may have moved the view on.
	if key == s.wanted {
		s.current = &e
	}
	s.saveLocked()
	return slices.Clone(recs), nil
}

// Cached returns the entry Fetch would serve for p without a network call.
func (s *Store) Cached(p Params) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hitLocked(p)
}

// Lookup returns the fresh cached entry with content for destination,
// without a network call. Expired entries are evicted.
func (s *Store) Lookup(destination string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(Key(destination))
	if !ok || !hasContent(e.Recommendations) {
		return Entry{}, false
	}
	return e, true
}

// hitLocked applies the cache-hit rule: fresh, non-empty, same request.
func (s *Store) hitLocked(p Params) (Entry, bool) {
	e, ok := s.lookupLocked(Key(p.Destination))
	if !ok || !hasContent(e.Recommendations) || !SameRequest(e.RequestParams, p) {
		return Entry{}, false
	}
	return e, true
}

func (s *Store) lookupLocked(key string) (Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		s.saveLocked()
		s.logger.Debug("evicted expired recommendations", "destination", key)
		return Entry{}, false
	}
	return e, true
}

// Active returns the token of the in-flight fetch, or zero.
func (s *Store) Active() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Snapshot returns a consistent copy of the store state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Loading: s.loading,
		Err:     s.err,
		Entries: len(s.entries),
	}
	if s.current != nil {
		snap.HasCurrent = true
		snap.Current = s.current.RequestParams
		snap.Current.Interests = slices.Clone(s.current.RequestParams.Interests)
		snap.Recommendations = slices.Clone(s.current.Recommendations)
		snap.FetchedAt = time.UnixMilli(s.current.FetchedAt)
	}
	return snap
}

// Reset drops every entry and any in-flight fetch, and clears persisted state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.active = 0
	s.loading = false
	s.err = nil
	s.current = nil
	s.wanted = ""
	if s.persist == nil {
		return nil
	}
	return s.persist.Delete(storage.KeyRecommendations)
}

// saveLocked writes entries to storage. Failures are logged; the in-memory
// cache stays authoritative for this process.
func (s *Store) saveLocked() {
	if s.persist == nil {
		return
	}
	if err := storage.SaveJSON(s.persist, storage.KeyRecommendations, s.entries); err != nil {
		s.logger.Warn("saving recommendation cache", "err", err)
	}
}

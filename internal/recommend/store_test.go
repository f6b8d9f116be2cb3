package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smileynet/tripdeck/internal/storage"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// countingGen returns a payload naming the destination and counts calls.
type countingGen struct {
	mu    sync.Mutex
	calls int
	err   error
	body  string
}

func (g *countingGen) Generate(_ context.Context, p Params) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.body != "" {
		return json.RawMessage(g.body), nil
	}
	return json.RawMessage(`{"destination":"` + p.Destination + `","days":[{"day":1,"title":"Day 1"}]}`), nil
}

func (g *countingGen) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func kandy() Params {
	return Params{Destination: "Kandy", Duration: 3, Budget: 50000, GroupSize: 2, Interests: []string{"culture", "food"}}
}

func TestFetch_IdenticalRequestHitsCache(t *testing.T) {
	// Given: a store with an empty cache
	gen := &countingGen{}
	s := New(gen)

	// When: the same Kandy request is fetched twice
	first, err := s.Fetch(context.Background(), kandy(), FetchOptions{})
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	second, err := s.Fetch(context.Background(), kandy(), FetchOptions{})
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}

	// Then: only one network call happened and both results match
	if gen.Calls() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.Calls())
	}
	if string(first) != string(second) {
		t.Errorf("cached result %s differs from first %s", second, first)
	}
}

func TestFetch_KeyIsCaseInsensitive(t *testing.T) {
	gen := &countingGen{}
	s := New(gen)

	p := kandy()
	_, _ = s.Fetch(context.Background(), p, FetchOptions{})
	p.Destination = "  KANDY "
	_, _ = s.Fetch(context.Background(), p, FetchOptions{})

	if gen.Calls() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.Calls())
	}
}

func TestFetch_ForceRefreshBypassesCache(t *testing.T) {
	gen := &countingGen{}
	s := New(gen)

	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})
	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{ForceRefresh: true})

	if gen.Calls() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Calls())
	}
}

func TestFetch_Expiry(t *testing.T) {
	tests := []struct {
		name      string
		advance   time.Duration
		wantCalls int
	}{
		{"just fetched", 0, 1},
		{"one hour later", time.Hour, 1},
		{"exactly 24h", TTL, 1},
		{"24h and 1ms", TTL + time.Millisecond, 2},
		{"two days", 48 * time.Hour, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			gen := &countingGen{}
			s := New(gen, WithClock(clock.Now))

			_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})
			clock.Advance(tt.advance)
			_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})

			if gen.Calls() != tt.wantCalls {
				t.Errorf("generator calls = %d, want %d", gen.Calls(), tt.wantCalls)
			}
		})
	}
}

func TestLookup_EvictsExpired(t *testing.T) {
	clock := newFakeClock()
	s := New(&countingGen{}, WithClock(clock.Now))
	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})

	if _, ok := s.Lookup("kandy"); !ok {
		t.Fatal("expected fresh entry")
	}

	clock.Advance(TTL + time.Second)
	if _, ok := s.Lookup("Kandy"); ok {
		t.Fatal("expired entry must never be returned")
	}
	if got := s.Snapshot().Entries; got != 0 {
		t.Errorf("entries after eviction = %d, want 0", got)
	}
}

func TestFetch_EmptyContentIsRefetched(t *testing.T) {
	for _, body := range []string{"null", "{}", "[]"} {
		t.Run(body, func(t *testing.T) {
			gen := &countingGen{body: body}
			s := New(gen)

			_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})
			_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})

			if gen.Calls() != 2 {
				t.Errorf("generator calls = %d, want 2 for empty payload %s", gen.Calls(), body)
			}
		})
	}
}

// gatedGen blocks each call until its destination's gate is released.
type gatedGen struct {
	started chan string
	gates   map[string]chan result
}

type result struct {
	data string
	err  error
}

func newGatedGen(dests ...string) *gatedGen {
	g := &gatedGen{started: make(chan string, len(dests)), gates: make(map[string]chan result)}
	for _, d := range dests {
		g.gates[Key(d)] = make(chan result, 1)
	}
	return g
}

func (g *gatedGen) Generate(ctx context.Context, p Params) (json.RawMessage, error) {
	g.started <- Key(p.Destination)
	select {
	case r := <-g.gates[Key(p.Destination)]:
		if r.err != nil {
			return nil, r.err
		}
		return json.RawMessage(r.data), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fetchOutcome struct {
	recs json.RawMessage
	err  error
}

func fetchAsync(s *Store, p Params) <-chan fetchOutcome {
	out := make(chan fetchOutcome, 1)
	go func() {
		recs, err := s.Fetch(context.Background(), p, FetchOptions{})
		out <- fetchOutcome{recs, err}
	}()
	return out
}

func TestFetch_LastIssuedWins(t *testing.T) {
	orders := []struct {
		name       string
		firstDone  string
		secondDone string
	}{
		{"newer resolves first", "b", "a"},
		{"older resolves first", "a", "b"},
	}
	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			// Given: fetch(A) is in flight and fetch(B) starts before A resolves
			gen := newGatedGen("Galle", "Ella")
			s := New(gen)
			a := Params{Destination: "Galle", Duration: 2}
			b := Params{Destination: "Ella", Duration: 4}

			aDone := fetchAsync(s, a)
			<-gen.started
			bDone := fetchAsync(s, b)
			<-gen.started

			payload := map[string]string{"a": `{"destination":"Galle"}`, "b": `{"destination":"Ella"}`}
			gate := map[string]string{"a": "galle", "b": "ella"}
			done := map[string]<-chan fetchOutcome{"a": aDone, "b": bDone}

			// When: both resolve in the given order
			gen.gates[gate[o.firstDone]] <- result{data: payload[o.firstDone]}
			first := <-done[o.firstDone]
			gen.gates[gate[o.secondDone]] <- result{data: payload[o.secondDone]}
			second := <-done[o.secondDone]

			outcomes := map[string]fetchOutcome{o.firstDone: first, o.secondDone: second}

			// Then: only B's result is committed; A's is discarded silently
			if outcomes["a"].recs != nil || outcomes["a"].err != nil {
				t.Errorf("superseded fetch returned (%s, %v), want (nil, nil)", outcomes["a"].recs, outcomes["a"].err)
			}
			if string(outcomes["b"].recs) != payload["b"] {
				t.Errorf("active fetch returned %s, want %s", outcomes["b"].recs, payload["b"])
			}
			snap := s.Snapshot()
			if snap.Current.Destination != "Ella" {
				t.Errorf("current destination = %q, want Ella", snap.Current.Destination)
			}
			if snap.Loading {
				t.Error("loading should be cleared after the active fetch resolves")
			}
			if _, ok := s.Lookup("Galle"); ok {
				t.Error("superseded result must not be cached")
			}
			if s.Active() != 0 {
				t.Errorf("active token = %d, want 0", s.Active())
			}
		})
	}
}

func TestFetch_SupersededErrorIsSwallowed(t *testing.T) {
	gen := newGatedGen("Galle", "Ella")
	s := New(gen)

	aDone := fetchAsync(s, Params{Destination: "Galle"})
	<-gen.started
	bDone := fetchAsync(s, Params{Destination: "Ella"})
	<-gen.started

	gen.gates["galle"] <- result{err: errors.New("gateway timeout")}
	a := <-aDone
	if a.err != nil {
		t.Errorf("superseded error surfaced: %v", a.err)
	}
	if snap := s.Snapshot(); snap.Err != nil || !snap.Loading {
		t.Errorf("snapshot = %+v, want no error and still loading for B", snap)
	}

	gen.gates["ella"] <- result{data: `{"destination":"Ella"}`}
	if b := <-bDone; b.err != nil || b.recs == nil {
		t.Errorf("active fetch = (%s, %v)", b.recs, b.err)
	}
}

func TestFetch_ActiveErrorIsRecorded(t *testing.T) {
	gen := &countingGen{err: errors.New("backend unavailable")}
	s := New(gen)

	recs, err := s.Fetch(context.Background(), kandy(), FetchOptions{})
	if err == nil || recs != nil {
		t.Fatalf("Fetch = (%s, %v), want error", recs, err)
	}

	snap := s.Snapshot()
	if snap.Err == nil || snap.Err.Error() != "backend unavailable" {
		t.Errorf("snapshot error = %v", snap.Err)
	}
	if snap.Loading {
		t.Error("loading should be cleared on error")
	}
	if snap.HasCurrent {
		t.Error("failed fetch must not set current recommendations")
	}
}

func TestFetch_CacheHitKeepsInFlightFetch(t *testing.T) {
	// Given: Kandy is cached and a fetch for Galle is in flight
	gen := newGatedGen("Kandy", "Galle")
	s := New(gen)
	kDone := fetchAsync(s, kandy())
	<-gen.started
	gen.gates["kandy"] <- result{data: `{"destination":"Kandy"}`}
	<-kDone

	galle := Params{Destination: "Galle", Duration: 2}
	gDone := fetchAsync(s, galle)
	<-gen.started

	// When: the user goes back to Kandy and the Galle fetch resolves afterwards
	if _, err := s.Fetch(context.Background(), kandy(), FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	gen.gates["galle"] <- result{data: `{"destination":"Galle"}`}
	out := <-gDone

	// Then: Galle is committed to the cache but Kandy stays current
	if out.err != nil || string(out.recs) != `{"destination":"Galle"}` {
		t.Errorf("Galle fetch = (%s, %v), want its payload", out.recs, out.err)
	}
	if _, ok := s.Lookup("Galle"); !ok {
		t.Error("Galle should be cached")
	}
	snap := s.Snapshot()
	if snap.Current.Destination != "Kandy" {
		t.Errorf("current = %q, want Kandy", snap.Current.Destination)
	}
	if snap.Loading || s.Active() != 0 {
		t.Errorf("loading = %v, active = %d after Galle resolved", snap.Loading, s.Active())
	}

	// And: requesting Galle again makes no network call
	if _, err := s.Fetch(context.Background(), galle, FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-gen.started:
		t.Errorf("unexpected generator call for %s", d)
	default:
	}
	if got := s.Snapshot().Current.Destination; got != "Galle" {
		t.Errorf("current = %q, want Galle", got)
	}
}

func TestFetch_ChangedParamsAreAMiss(t *testing.T) {
	tests := []struct {
		name      string
		second    func(p Params) Params
		wantCalls int
	}{
		{"identical", func(p Params) Params { return p }, 1},
		{"interests reordered", func(p Params) Params {
			p.Interests = []string{"food", "culture"}
			return p
		}, 1},
		{"longer trip", func(p Params) Params {
			p.Duration = 7
			return p
		}, 2},
		{"bigger budget", func(p Params) Params {
			p.Budget = 90000
			return p
		}, 2},
		{"larger group", func(p Params) Params {
			p.GroupSize = 4
			return p
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &countingGen{}
			s := New(gen)

			_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})
			second := tt.second(kandy())
			if _, err := s.Fetch(context.Background(), second, FetchOptions{}); err != nil {
				t.Fatal(err)
			}

			if gen.Calls() != tt.wantCalls {
				t.Errorf("generator calls = %d, want %d", gen.Calls(), tt.wantCalls)
			}
			if got := s.Snapshot().Current.Duration; got != second.Duration {
				t.Errorf("current duration = %d, want %d", got, second.Duration)
			}
			if _, ok := s.Cached(second); !ok {
				t.Error("second request should now be cached")
			}
		})
	}
}

func TestLookup_IgnoresEmptyContent(t *testing.T) {
	gen := &countingGen{body: "{}"}
	s := New(gen)
	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})

	if _, ok := s.Lookup("Kandy"); ok {
		t.Error("Lookup reported an empty payload as cached")
	}
	if _, ok := s.Cached(kandy()); ok {
		t.Error("Cached reported an empty payload as cached")
	}
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	clock := newFakeClock()
	mem := storage.NewMemoryStore()

	gen := &countingGen{}
	s1 := New(gen, WithStorage(mem), WithClock(clock.Now))
	if _, err := s1.Fetch(context.Background(), kandy(), FetchOptions{}); err != nil {
		t.Fatal(err)
	}

	// A new process reads the same storage.
	s2 := New(gen, WithStorage(mem), WithClock(clock.Now))
	if _, err := s2.Fetch(context.Background(), kandy(), FetchOptions{}); err != nil {
		t.Fatal(err)
	}
	if gen.Calls() != 1 {
		t.Errorf("generator calls = %d, want 1 (served from persisted cache)", gen.Calls())
	}

	// After expiry, a fresh instance drops the entry on load.
	clock.Advance(TTL + time.Minute)
	s3 := New(gen, WithStorage(mem), WithClock(clock.Now))
	if n := s3.Snapshot().Entries; n != 0 {
		t.Errorf("entries loaded after expiry = %d, want 0", n)
	}
}

func TestStore_CorruptStorageStartsEmpty(t *testing.T) {
	mem := storage.NewMemoryStore()
	_ = mem.Set(storage.KeyRecommendations, []byte("{broken"))

	s := New(&countingGen{}, WithStorage(mem))
	if n := s.Snapshot().Entries; n != 0 {
		t.Errorf("entries = %d, want 0", n)
	}
	if _, ok, _ := mem.Get(storage.KeyRecommendations); ok {
		t.Error("corrupt document should be removed")
	}
}

func TestStore_Reset(t *testing.T) {
	mem := storage.NewMemoryStore()
	gen := &countingGen{}
	s := New(gen, WithStorage(mem))
	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	snap := s.Snapshot()
	if snap.Entries != 0 || snap.HasCurrent || snap.Loading || snap.Err != nil {
		t.Errorf("snapshot after Reset = %+v", snap)
	}
	if _, ok, _ := mem.Get(storage.KeyRecommendations); ok {
		t.Error("persisted cache should be removed by Reset")
	}
	_, _ = s.Fetch(context.Background(), kandy(), FetchOptions{})
	if gen.Calls() != 2 {
		t.Errorf("generator calls after Reset = %d, want 2", gen.Calls())
	}
}

func TestStore_ResetDiscardsInFlight(t *testing.T) {
	gen := newGatedGen("Kandy")
	s := New(gen)
	done := fetchAsync(s, kandy())
	<-gen.started

	_ = s.Reset()
	gen.gates["kandy"] <- result{data: `{"destination":"Kandy"}`}
	out := <-done

	if out.recs != nil {
		t.Error("fetch issued before Reset must not commit")
	}
	if s.Snapshot().Entries != 0 {
		t.Error("cache should stay empty")
	}
}

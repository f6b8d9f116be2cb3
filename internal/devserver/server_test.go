package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/recommend"
)

type tokenHolder struct{ tok string }

func (h *tokenHolder) AccessToken() string { return h.tok }

func newTestServer(t *testing.T, opts Options) (*Server, *api.Client, *tokenHolder) {
	t.Helper()
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	h := &tokenHolder{}
	return s, api.New(ts.URL+"/api", api.WithTokenSource(h)), h
}

func TestServer_RegisterLoginFlow(t *testing.T) {
	_, c, h := newTestServer(t, Options{})
	ctx := context.Background()

	res, err := c.Register(ctx, api.Registration{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" || res.User.ID == "" {
		t.Fatalf("auth result = %+v", res)
	}

	// Duplicate email is a conflict.
	_, err = c.Register(ctx, api.Registration{Email: "ASHA@example.com", Password: "another-pass"})
	var he *api.HTTPError
	if !asHTTPError(err, &he) || he.Status != http.StatusConflict {
		t.Errorf("duplicate register err = %v", err)
	}

	h.tok = res.AccessToken
	me, err := c.Me(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if me.Email != "asha@example.com" {
		t.Errorf("me = %+v", me)
	}
}

func TestServer_RegisterValidation(t *testing.T) {
	_, c, _ := newTestServer(t, Options{})
	tests := []struct {
		name string
		reg  api.Registration
	}{
		{"bad email", api.Registration{Email: "not-an-email", Password: "long-enough"}},
		{"short password", api.Registration{Email: "a@b.co", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Register(context.Background(), tt.reg)
			var he *api.HTTPError
			if !asHTTPError(err, &he) || he.Status != http.StatusBadRequest {
				t.Errorf("err = %v, want 400", err)
			}
		})
	}
}

func TestServer_RequiresAuth(t *testing.T) {
	_, c, h := newTestServer(t, Options{})

	_, err := c.Favorites(context.Background())
	if !api.IsUnauthorized(err) {
		t.Errorf("no token: err = %v, want 401", err)
	}

	h.tok = "garbage"
	_, err = c.Favorites(context.Background())
	if !api.IsUnauthorized(err) {
		t.Errorf("bad token: err = %v, want 401", err)
	}
}

func TestServer_ExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: now}
	_, c, h := newTestServer(t, Options{TokenTTL: time.Minute, Now: clock.Now})
	ctx := context.Background()

	res, err := c.Register(ctx, api.Registration{Email: "a@b.co", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}
	h.tok = res.AccessToken
	if _, err := c.Profile(ctx); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	clock.Set(now.Add(2 * time.Minute))
	if _, err := c.Profile(ctx); !api.IsUnauthorized(err) {
		t.Errorf("expired token: err = %v, want 401", err)
	}

	// Refresh still works and rotates.
	res2, err := c.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(ctx, res.RefreshToken); !api.IsUnauthorized(err) {
		t.Errorf("reused refresh token: err = %v, want 401", err)
	}
	h.tok = res2.AccessToken
	if _, err := c.Profile(ctx); err != nil {
		t.Errorf("refreshed token rejected: %v", err)
	}
}

func TestServer_GenerateItinerary(t *testing.T) {
	s, c, h := newTestServer(t, Options{})
	ctx := context.Background()
	res, err := c.Register(ctx, api.Registration{Email: "a@b.co", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}
	h.tok = res.AccessToken

	raw, err := c.GenerateItinerary(ctx, api.ItineraryRequest{
		Destination: "Kandy", Duration: 3, Budget: 60000, GroupSize: 2, Interests: []string{"culture", "food"},
	})
	if err != nil {
		t.Fatal(err)
	}
	plan, err := recommend.DecodePlan(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(plan.Days))
	}
	if got := len(plan.Days[0].Activities); got != activitiesPerDay {
		t.Errorf("activities per day = %d", got)
	}
	if plan.EstimatedTotal != 60000 {
		t.Errorf("estimated total = %d, want 60000", plan.EstimatedTotal)
	}
	if s.Calls("/api/itinerary/generate") != 1 {
		t.Errorf("calls = %d, want 1", s.Calls("/api/itinerary/generate"))
	}

	_, err = c.GenerateItinerary(ctx, api.ItineraryRequest{Destination: "", Duration: 1})
	var he *api.HTTPError
	if !asHTTPError(err, &he) || he.Status != http.StatusBadRequest {
		t.Errorf("invalid request err = %v", err)
	}
}

func TestServer_ReviewOwnership(t *testing.T) {
	_, c, h := newTestServer(t, Options{})
	ctx := context.Background()

	alice, err := c.Register(ctx, api.Registration{Email: "alice@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}
	bob, err := c.Register(ctx, api.Registration{Email: "bob@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatal(err)
	}

	h.tok = alice.AccessToken
	rv, err := c.CreateReview(ctx, api.Review{Destination: "Galle", Rating: 4})
	if err != nil {
		t.Fatal(err)
	}

	h.tok = bob.AccessToken
	err = c.DeleteReview(ctx, rv.ID)
	var he *api.HTTPError
	if !asHTTPError(err, &he) || he.Status != http.StatusForbidden {
		t.Errorf("foreign delete err = %v, want 403", err)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Options{BcryptCost: bcrypt.MinCost})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func asHTTPError(err error, target **api.HTTPError) bool {
	return errors.As(err, target)
}

// fakeClock is a settable clock shared with server goroutines.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Package session owns the signed-in user, their tokens, and the
// server-backed collections (favorites, trips, reviews). It also decides
// which local caches survive an auth transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smileynet/tripdeck/internal/api"
	"github.com/smileynet/tripdeck/internal/itinerary"
	"github.com/smileynet/tripdeck/internal/storage"
)

// ErrNotAuthenticated is returned by calls that need a signed-in user.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// API is the subset of api.Client the session needs.
type API interface {
	Register(ctx context.Context, r api.Registration) (api.AuthResult, error)
	Login(ctx context.Context, c api.Credentials) (api.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (api.AuthResult, error)
	Me(ctx context.Context) (api.User, error)
	Profile(ctx context.Context) (api.User, error)
	UpdateProfile(ctx context.Context, u api.ProfileUpdate) (api.User, error)
	Favorites(ctx context.Context) ([]api.Favorite, error)
	AddFavorite(ctx context.Context, destination, note string) (api.Favorite, error)
	RemoveFavorite(ctx context.Context, id string) error
	Trips(ctx context.Context) ([]api.Trip, error)
	CreateTrip(ctx context.Context, t api.Trip) (api.Trip, error)
	DeleteTrip(ctx context.Context, id string) error
	Reviews(ctx context.Context, destination string) ([]api.Review, error)
	CreateReview(ctx context.Context, r api.Review) (api.Review, error)
	DeleteReview(ctx context.Context, id string) error
}

// Resetter is a local cache cleared on auth transitions, such as the
// recommendation store or the packing draft cache.
type Resetter interface {
	Reset() error
}

// Itinerary is the saved-items store. It survives login and register but is
// cleared on logout.
type Itinerary interface {
	Merge(items []itinerary.Item, tripID string) (int, error)
	Clear() error
}

// State is a snapshot of the session.
type State struct {
	User            *api.User
	IsAuthenticated bool
	Loading         bool
	Error           string
	Favorites       []api.Favorite
	Trips           []api.Trip
	Reviews         []api.Review
}

// identity is the minimal user record kept between runs.
type identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Store is the session store. Safe for concurrent use; the lock is never
// held across network calls.
type Store struct {
	client  API
	tokens  *TokenStore
	persist storage.Store
	recs    Resetter
	drafts  Resetter
	items   Itinerary
	logger  *log.Logger

	mu      sync.Mutex
	user    *api.User
	pending int
	errMsg  string
	favs    []api.Favorite
	trips   []api.Trip
	reviews []api.Review
}

// Option configures a Store.
type Option func(*Store)

// WithRecommendations registers the recommendation cache.
func WithRecommendations(r Resetter) Option {
	return func(s *Store) { s.recs = r }
}

// WithDrafts registers the packing draft cache.
func WithDrafts(r Resetter) Option {
	return func(s *Store) { s.drafts = r }
}

// WithItinerary registers the saved-items store.
func WithItinerary(it Itinerary) Option {
	return func(s *Store) { s.items = it }
}

// WithLogger sets the store's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store, restoring the persisted identity when tokens exist.
func New(client API, tokens *TokenStore, persist storage.Store, opts ...Option) (*Store, error) {
	s := &Store{
		client:  client,
		tokens:  tokens,
		persist: persist,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}

	var id identity
	ok, err := storage.LoadJSON(persist, storage.KeySession, &id)
	if err != nil {
		return nil, fmt.Errorf("session: loading identity: %w", err)
	}
	if ok && tokens.AccessToken() != "" {
		s.user = &api.User{ID: id.ID, Email: id.Email, Name: id.Name}
	}
	return s, nil
}

// Tokens returns the token store.
func (s *Store) Tokens() *TokenStore { return s.tokens }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		IsAuthenticated: s.user != nil,
		Loading:         s.pending > 0,
		Error:           s.errMsg,
		Favorites:       slices.Clone(s.favs),
		Trips:           slices.Clone(s.trips),
		Reviews:         slices.Clone(s.reviews),
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, email, password string) (api.User, error) {
	s.begin()
	res, err := s.client.Login(ctx, api.Credentials{Email: email, Password: password})
	s.end(err)
	if err != nil {
		return api.User{}, fmt.Errorf("session: login: %w", err)
	}
	return s.signIn(res)
}

// Register creates an account and signs in.
func (s *Store) Register(ctx context.Context, name, email, password string) (api.User, error) {
	s.begin()
	res, err := s.client.Register(ctx, api.Registration{Name: name, Email: email, Password: password})
	s.end(err)
	if err != nil {
		return api.User{}, fmt.Errorf("session: register: %w", err)
	}
	return s.signIn(res)
}

// signIn stores the new credentials and drops caches that belong to the
// previous session. Saved itinerary items are kept.
func (s *Store) signIn(res api.AuthResult) (api.User, error) {
	if err := s.tokens.Save(res.AccessToken, res.RefreshToken); err != nil {
		return api.User{}, err
	}
	if err := s.saveIdentity(res.User); err != nil {
		return api.User{}, err
	}
	err := errors.Join(reset(s.recs), reset(s.drafts))

	s.mu.Lock()
	u := res.User
	s.user = &u
	s.favs, s.trips, s.reviews = nil, nil, nil
	s.mu.Unlock()

	s.logger.Info("signed in", "user", res.User.Email)
	if err != nil {
		return res.User, fmt.Errorf("session: clearing caches: %w", err)
	}
	return res.User, nil
}

// Logout revokes the refresh token on the server (best effort) and clears
// all local state, including saved itinerary items.
func (s *Store) Logout(ctx context.Context) error {
	if rt := s.tokens.RefreshToken(); rt != "" && s.tokens.AccessToken() != "" {
		if err := s.client.Logout(ctx, rt); err != nil {
			s.logger.Warn("server logout failed", "err", err)
		}
	}
	if err := s.clearLocal(); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	s.logger.Info("signed out")
	return nil
}

// Expire performs the local half of Logout without contacting the server.
// Used when the stored token is found to be expired.
func (s *Store) Expire() {
	if err := s.clearLocal(); err != nil {
		s.logger.Error("clearing expired session", "err", err)
		return
	}
	s.logger.Info("session expired")
}

func (s *Store) clearLocal() error {
	err := errors.Join(
		s.tokens.Clear(),
		s.persist.Delete(storage.KeySession),
		reset(s.recs),
		reset(s.drafts),
	)
	if s.items != nil {
		err = errors.Join(err, s.items.Clear())
	}

	s.mu.Lock()
	s.user = nil
	s.errMsg = ""
	s.favs, s.trips, s.reviews = nil, nil, nil
	s.mu.Unlock()
	return err
}

// RefreshToken exchanges the refresh token for a new token pair.
func (s *Store) RefreshToken(ctx context.Context) error {
	rt := s.tokens.RefreshToken()
	if rt == "" {
		return ErrNotAuthenticated
	}
	s.begin()
	res, err := s.client.Refresh(ctx, rt)
	s.end(err)
	if err != nil {
		return fmt.Errorf("session: refresh: %w", err)
	}
	if err := s.tokens.Save(res.AccessToken, res.RefreshToken); err != nil {
		return err
	}
	s.setUser(res.User)
	return nil
}

// Me asks the backend who the stored access token belongs to.
func (s *Store) Me(ctx context.Context) (api.User, error) {
	if err := s.requireAuth(); err != nil {
		return api.User{}, err
	}
	s.begin()
	u, err := s.client.Me(ctx)
	s.end(err)
	if err != nil {
		return api.User{}, fmt.Errorf("session: me: %w", err)
	}
	s.setUser(u)
	return u, s.saveIdentity(u)
}

// FetchProfile loads the signed-in user's profile.
func (s *Store) FetchProfile(ctx context.Context) (api.User, error) {
	if err := s.requireAuth(); err != nil {
		return api.User{}, err
	}
	s.begin()
	u, err := s.client.Profile(ctx)
	s.end(err)
	if err != nil {
		return api.User{}, fmt.Errorf("session: fetching profile: %w", err)
	}
	s.setUser(u)
	return u, s.saveIdentity(u)
}

// UpdateProfile saves profile changes.
func (s *Store) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (api.User, error) {
	if err := s.requireAuth(); err != nil {
		return api.User{}, err
	}
	s.begin()
	u, err := s.client.UpdateProfile(ctx, upd)
	s.end(err)
	if err != nil {
		return api.User{}, fmt.Errorf("session: updating profile: %w", err)
	}
	s.setUser(u)
	return u, s.saveIdentity(u)
}

// Hydrate loads profile, favorites, and trips concurrently.
func (s *Store) Hydrate(ctx context.Context) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.FetchProfile(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchFavorites(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchTrips(gctx)
		return err
	})
	return g.Wait()
}

// --- favorites ---

// FetchFavorites replaces the favorites list from the server.
func (s *Store) FetchFavorites(ctx context.Context) ([]api.Favorite, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}
	s.begin()
	favs, err := s.client.Favorites(ctx)
	s.end(err)
	if err != nil {
		return nil, fmt.Errorf("session: fetching favorites: %w", err)
	}
	s.mu.Lock()
	s.favs = slices.Clone(favs)
	s.mu.Unlock()
	return favs, nil
}

// AddFavorite appends the destination immediately and rolls back if the
// server rejects it.
func (s *Store) AddFavorite(ctx context.Context, destination, note string) (api.Favorite, error) {
	if err := s.requireAuth(); err != nil {
		return api.Favorite{}, err
	}
	pending := api.Favorite{ID: "pending-" + uuid.NewString(), Destination: destination, Note: note}
	s.mu.Lock()
	s.favs = append(s.favs, pending)
	s.mu.Unlock()

	s.begin()
	fav, err := s.client.AddFavorite(ctx, destination, note)
	s.end(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.favs, func(f api.Favorite) bool { return f.ID == pending.ID })
	if err != nil {
		if i >= 0 {
			s.favs = slices.Delete(s.favs, i, i+1)
		}
		return api.Favorite{}, fmt.Errorf("session: adding favorite: %w", err)
	}
	if i >= 0 {
		s.favs[i] = fav
	} else {
		s.favs = append(s.favs, fav)
	}
	return fav, nil
}

// RemoveFavorite removes the favorite immediately and restores it if the
// server call fails.
func (s *Store) RemoveFavorite(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	s.mu.Lock()
	i := slices.IndexFunc(s.favs, func(f api.Favorite) bool { return f.ID == id })
	var removed api.Favorite
	if i >= 0 {
		removed = s.favs[i]
		s.favs = slices.Delete(s.favs, i, i+1)
	}
	s.mu.Unlock()

	s.begin()
	err := s.client.RemoveFavorite(ctx, id)
	s.end(err)
	if err != nil {
		if i >= 0 {
			s.mu.Lock()
			s.favs = slices.Insert(s.favs, min(i, len(s.favs)), removed)
			s.mu.Unlock()
		}
		return fmt.Errorf("session: removing favorite: %w", err)
	}
	return nil
}

// --- trips ---

// FetchTrips loads the user's trips and merges each trip's saved items into
// the local itinerary. Returns the number of items merged.
func (s *Store) FetchTrips(ctx context.Context) (int, error) {
	if err := s.requireAuth(); err != nil {
		return 0, err
	}
	s.begin()
	trips, err := s.client.Trips(ctx)
	s.end(err)
	if err != nil {
		return 0, fmt.Errorf("session: fetching trips: %w", err)
	}
	s.mu.Lock()
	s.trips = slices.Clone(trips)
	s.mu.Unlock()

	if s.items == nil {
		return 0, nil
	}
	merged := 0
	for _, t := range trips {
		if len(t.SavedItems) == 0 {
			continue
		}
		items := make([]itinerary.Item, len(t.SavedItems))
		for i, si := range t.SavedItems {
			items[i] = itinerary.Item{
				ID:       si.ID,
				TripID:   si.TripID,
				Name:     si.Name,
				Day:      si.Day,
				Category: si.Category,
				Notes:    si.Notes,
			}
		}
		n, err := s.items.Merge(items, itinerary.TripID(t.Destination, t.StartDate))
		if err != nil {
			return merged, fmt.Errorf("session: merging trip %s: %w", t.ID, err)
		}
		merged += n
	}
	if merged > 0 {
		s.logger.Info("reconciled saved items from trips", "added", merged)
	}
	return merged, nil
}

// CreateTrip saves a new trip.
func (s *Store) CreateTrip(ctx context.Context, t api.Trip) (api.Trip, error) {
	if err := s.requireAuth(); err != nil {
		return api.Trip{}, err
	}
	s.begin()
	created, err := s.client.CreateTrip(ctx, t)
	s.end(err)
	if err != nil {
		return api.Trip{}, fmt.Errorf("session: creating trip: %w", err)
	}
	s.mu.Lock()
	s.trips = append(s.trips, created)
	s.mu.Unlock()
	return created, nil
}

// DeleteTrip deletes a trip.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	s.begin()
	err := s.client.DeleteTrip(ctx, id)
	s.end(err)
	if err != nil {
		return fmt.Errorf("session: deleting trip: %w", err)
	}
	s.mu.Lock()
	s.trips = slices.DeleteFunc(s.trips, func(t api.Trip) bool { return t.ID == id })
	s.mu.Unlock()
	return nil
}

// --- reviews ---

// FetchReviews loads reviews for a destination ("" for all).
func (s *Store) FetchReviews(ctx context.Context, destination string) ([]api.Review, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}
	s.begin()
	reviews, err := s.client.Reviews(ctx, destination)
	s.end(err)
	if err != nil {
		return nil, fmt.Errorf("session: fetching reviews: %w", err)
	}
	s.mu.Lock()
	s.reviews = slices.Clone(reviews)
	s.mu.Unlock()
	return reviews, nil
}

// CreateReview posts a review.
func (s *Store) CreateReview(ctx context.Context, r api.Review) (api.Review, error) {
	if err := s.requireAuth(); err != nil {
		return api.Review{}, err
	}
	s.begin()
	created, err := s.client.CreateReview(ctx, r)
	s.end(err)
	if err != nil {
		return api.Review{}, fmt.Errorf("session: creating review: %w", err)
	}
	s.mu.Lock()
	s.reviews = append(s.reviews, created)
	s.mu.Unlock()
	return created, nil
}

// DeleteReview deletes one of the user's reviews.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	s.begin()
	err := s.client.DeleteReview(ctx, id)
	s.end(err)
	if err != nil {
		return fmt.Errorf("session: deleting review: %w", err)
	}
	s.mu.Lock()
	s.reviews = slices.DeleteFunc(s.reviews, func(r api.Review) bool { return r.ID == id })
	s.mu.Unlock()
	return nil
}

// --- helpers ---

func (s *Store) requireAuth() error {
	if s.tokens.AccessToken() == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *Store) begin() {
	s.mu.Lock()
	s.pending++
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if err != nil {
		s.errMsg = api.Message(err)
	}
}

func (s *Store) setUser(u api.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Store) saveIdentity(u api.User) error {
	if err := storage.SaveJSON(s.persist, storage.KeySession, identity{ID: u.ID, Email: u.Email, Name: u.Name}); err != nil {
		return fmt.Errorf("session: saving identity: %w", err)
	}
	return nil
}

func reset(r Resetter) error {
	if r == nil {
		return nil
	}
	return r.Reset()
}

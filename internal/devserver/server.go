// Package devserver implements an in-memory travel-planning backend for local
// development and integration tests. It speaks the same envelope and
// endpoints as the production API and produces deterministic generations.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/smileynet/tripdeck/internal/api"
)

// Options configures a Server.
type Options struct {
	Secret     []byte           // HS256 signing key for access tokens.
	TokenTTL   time.Duration    // Access token lifetime.
	BcryptCost int              // Password hashing cost (default bcrypt.DefaultCost).
	Now        func() time.Time // Clock (default time.Now).
	Logger     *log.Logger
}

type account struct {
	user api.User
	hash []byte
}

// Server is the in-memory backend.
type Server struct {
	opts Options

	mu        sync.Mutex
	accounts  map[string]*account // keyed by lowercased email
	refresh   map[string]string   // refresh token -> user ID
	favorites map[string][]api.Favorite
	trips     map[string][]api.Trip
	reviews   []api.Review
	calls     map[string]int
}

// New creates a Server with defaults applied.
func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("tripdeck-dev-secret")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Server{
		opts:      opts,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		favorites: make(map[string][]api.Favorite),
		trips:     make(map[string][]api.Trip),
		calls:     make(map[string]int),
	}
}

// Handler returns the routed HTTP handler. All routes live under /api.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.countCalls)
	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	a.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	p := a.NewRoute().Subrouter()
	p.Use(s.requireAuth)
	p.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	p.HandleFunc("/auth/me", s.handleProfile).Methods(http.MethodGet)
	p.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	p.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPut)
	p.HandleFunc("/favorites", s.handleListFavorites).Methods(http.MethodGet)
	p.HandleFunc("/favorites", s.handleAddFavorite).Methods(http.MethodPost)
	p.HandleFunc("/favorites/{id}", s.handleRemoveFavorite).Methods(http.MethodDelete)
	p.HandleFunc("/trips", s.handleListTrips).Methods(http.MethodGet)
	p.HandleFunc("/trips", s.handleCreateTrip).Methods(http.MethodPost)
	p.HandleFunc("/trips/{id}", s.handleDeleteTrip).Methods(http.MethodDelete)
	p.HandleFunc("/reviews", s.handleListReviews).Methods(http.MethodGet)
	p.HandleFunc("/reviews", s.handleCreateReview).Methods(http.MethodPost)
	p.HandleFunc("/reviews/{id}", s.handleDeleteReview).Methods(http.MethodDelete)
	p.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	p.HandleFunc("/packing-list", s.handlePackingList).Methods(http.MethodPost)
	p.HandleFunc("/itinerary/generate", s.handleGenerateItinerary).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Calls returns how many requests hit the given path (e.g. "/api/itinerary/generate").
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// SeedTrip stores a trip for the account with the given email. Used by tests
// and demos to simulate trips saved from another device.
func (s *Server) SeedTrip(email string, t api.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return errors.New("devserver: unknown account " + email)
	}
	if t.ID == "" {
		t.ID = newID()
	}
	s.trips[acc.user.ID] = append(s.trips[acc.user.ID], t)
	return nil
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.mu.Unlock()
		s.opts.Logger.Debug("devserver request", "method", r.Method, "path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth validates the bearer token's signature and expiry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.opts.Secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(s.opts.Now),
		)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		s.mu.Lock()
		_, known := s.userByID(claims.Subject)
		s.mu.Unlock()
		if !known {
			writeError(w, http.StatusForbidden, "account no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// issueTokens signs an access token and mints a refresh token. Caller holds s.mu.
func (s *Server) issueTokens(u api.User) (api.AuthResult, error) {
	now := s.opts.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
		ID:        newID(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
	if err != nil {
		return api.AuthResult{}, err
	}
	refresh := newID()
	s.refresh[refresh] = u.ID
	return api.AuthResult{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// userByID finds an account by user ID. Caller holds s.mu.
func (s *Server) userByID(id string) (*account, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc, true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := struct {
		Success bool `json:"success"`
		Data    any  `json:"data,omitempty"`
	}{Success: true, Data: data}
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.Envelope{Success: false, Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

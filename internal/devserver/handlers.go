package devserver

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/smileynet/tripdeck/internal/api"
)

// minPasswordLen mirrors the backend's registration rule.
const minPasswordLen = 8

func newID() string { return uuid.NewString() }

// --- auth ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.Registration
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not hash password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(req.Email)
	if _, exists := s.accounts[key]; exists {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	u := api.User{ID: newID(), Email: req.Email, Name: req.Name, CreatedAt: s.opts.Now().UTC()}
	s.accounts[key] = &account{user: u, hash: hash}

	res, err := s.issueTokens(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	res, err := s.issueTokens(acc.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.refresh[req.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	acc, ok := s.userByID(uid)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// Refresh tokens rotate on use.
	delete(s.refresh, req.RefreshToken)
	res, err := s.issueTokens(acc.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	delete(s.refresh, req.RefreshToken)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nil)
}

// --- profile ---

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _ := s.userByID(userIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _ := s.userByID(userIDFrom(r.Context()))
	if req.Name != "" {
		acc.user.Name = req.Name
	}
	if req.HomeCity != "" {
		acc.user.HomeCity = req.HomeCity
	}
	writeJSON(w, http.StatusOK, acc.user)
}

// --- favorites ---

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs := append([]api.Favorite{}, s.favorites[userIDFrom(r.Context())]...)
	writeJSON(w, http.StatusOK, favs)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var req api.Favorite
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userIDFrom(r.Context())
	for _, f := range s.favorites[uid] {
		if strings.EqualFold(f.Destination, req.Destination) {
			writeError(w, http.StatusConflict, "destination is already a favorite")
			return
		}
	}
	fav := api.Favorite{ID: newID(), Destination: req.Destination, Note: req.Note, CreatedAt: s.opts.Now().UTC()}
	s.favorites[uid] = append(s.favorites[uid], fav)
	writeJSON(w, http.StatusCreated, fav)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userIDFrom(r.Context())
	favs := s.favorites[uid]
	for i, f := range favs {
		if f.ID == id {
			s.favorites[uid] = append(favs[:i:i], favs[i+1:]...)
			writeJSON(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "favorite not found")
}

// --- trips ---

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trips := append([]api.Trip{}, s.trips[userIDFrom(r.Context())]...)
	writeJSON(w, http.StatusOK, trips)
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req api.Trip
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" || req.StartDate == "" {
		writeError(w, http.StatusBadRequest, "destination and startDate are required")
		return
	}
	req.ID = newID()
	for i := range req.SavedItems {
		if req.SavedItems[i].ID == "" {
			req.SavedItems[i].ID = newID()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userIDFrom(r.Context())
	s.trips[uid] = append(s.trips[uid], req)
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userIDFrom(r.Context())
	trips := s.trips[uid]
	for i, t := range trips {
		if t.ID == id {
			s.trips[uid] = append(trips[:i:i], trips[i+1:]...)
			writeJSON(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "trip not found")
}

// --- reviews ---

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("destination")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []api.Review{}
	for _, rv := range s.reviews {
		if dest == "" || strings.EqualFold(rv.Destination, dest) {
			out = append(out, rv)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req api.Review
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, "destination is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, _ := s.userByID(userIDFrom(r.Context()))
	rv := api.Review{
		ID:          newID(),
		Destination: req.Destination,
		Rating:      req.Rating,
		Comment:     req.Comment,
		Author:      acc.user.ID,
		CreatedAt:   s.opts.Now().UTC(),
	}
	s.reviews = append(s.reviews, rv)
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userIDFrom(r.Context())
	for i, rv := range s.reviews {
		if rv.ID != id {
			continue
		}
		if rv.Author != uid {
			writeError(w, http.StatusForbidden, "cannot delete another user's review")
			return
		}
		s.reviews = append(s.reviews[:i:i], s.reviews[i+1:]...)
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeError(w, http.StatusNotFound, "review not found")
}

// --- generation ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" || strings.TrimSpace(last.Content) == "" {
		writeError(w, http.StatusBadRequest, "last message must be a non-empty user message")
		return
	}
	writeJSON(w, http.StatusOK, api.ChatReply{Message: api.ChatMessage{
		Role:    "assistant",
		Content: chatReply(last.Content, len(req.Messages)),
	}})
}

func (s *Server) handlePackingList(w http.ResponseWriter, r *http.Request) {
	var req api.PackingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" || req.Duration < 1 {
		writeError(w, http.StatusBadRequest, "destination and a positive duration are required")
		return
	}
	writeJSON(w, http.StatusOK, packingList(req))
}

func (s *Server) handleGenerateItinerary(w http.ResponseWriter, r *http.Request) {
	var req api.ItineraryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Destination) == "" || req.Duration < 1 {
		writeError(w, http.StatusBadRequest, "destination and a positive duration are required")
		return
	}
	writeJSON(w, http.StatusOK, itinerary(req))
}

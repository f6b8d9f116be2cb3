package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// --- auth ---

// Register creates an account and returns issued tokens.
func (c *Client) Register(ctx context.Context, r Registration) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", r, &out)
	return out, err
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, cr Credentials) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", cr, &out)
	return out, err
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refreshToken}, &out)
	return out, err
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// --- profile ---

// Profile returns the user's profile.
func (c *Client) Profile(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/profile", nil, &out)
	return out, err
}

// UpdateProfile saves profile changes and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPut, "/profile", u, &out)
	return out, err
}

// --- favorites ---

// Favorites lists the user's favorites.
func (c *Client) Favorites(ctx context.Context) ([]Favorite, error) {
	var out []Favorite
	err := c.do(ctx, http.MethodGet, "/favorites", nil, &out)
	return out, err
}

// AddFavorite bookmarks a destination.
func (c *Client) AddFavorite(ctx context.Context, destination, note string) (Favorite, error) {
	var out Favorite
	err := c.do(ctx, http.MethodPost, "/favorites", Favorite{Destination: destination, Note: note}, &out)
	return out, err
}

// RemoveFavorite deletes a favorite by ID.
func (c *Client) RemoveFavorite(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/favorites/"+url.PathEscape(id), nil, nil)
}

// --- trips ---

// Trips lists the user's trips including their saved items.
func (c *Client) Trips(ctx context.Context) ([]Trip, error) {
	var out []Trip
	err := c.do(ctx, http.MethodGet, "/trips", nil, &out)
	return out, err
}

// CreateTrip saves a new trip.
func (c *Client) CreateTrip(ctx context.Context, t Trip) (Trip, error) {
	var out Trip
	err := c.do(ctx, http.MethodPost, "/trips", t, &out)
	return out, err
}

// DeleteTrip removes a trip by ID.
func (c *Client) DeleteTrip(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/trips/"+url.PathEscape(id), nil, nil)
}

// --- reviews ---

// Reviews lists reviews, filtered by destination when non-empty.
func (c *Client) Reviews(ctx context.Context, destination string) ([]Review, error) {
	path := "/reviews"
	if destination != "" {
		path += "?destination=" + url.QueryEscape(destination)
	}
	var out []Review
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreateReview posts a review.
func (c *Client) CreateReview(ctx context.Context, r Review) (Review, error) {
	var out Review
	err := c.do(ctx, http.MethodPost, "/reviews", r, &out)
	return out, err
}

// DeleteReview removes a review by ID.
func (c *Client) DeleteReview(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(id), nil, nil)
}

// --- generation ---

// Chat sends the conversation history and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var out ChatReply
	err := c.do(ctx, http.MethodPost, "/chat", req, &out)
	return out, err
}

// GeneratePackingList asks the backend for a packing list.
func (c *Client) GeneratePackingList(ctx context.Context, req PackingRequest) (PackingList, error) {
	var out PackingList
	err := c.do(ctx, http.MethodPost, "/packing-list", req, &out)
	return out, err
}

// GenerateItinerary asks the backend for itinerary recommendations.
// The payload is returned undecoded; its shape belongs to the backend.
func (c *Client) GenerateItinerary(ctx context.Context, req ItineraryRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/itinerary/generate", req, &out)
	return out, err
}

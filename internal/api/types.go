package api

import (
	"encoding/json"
	"time"
)

// Envelope is the response wrapper used by every backend endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// User is the authenticated user's profile.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	HomeCity  string    `json:"homeCity,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileUpdate carries editable profile fields.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	HomeCity string `json:"homeCity,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by login, register, and refresh.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Favorite is a destination the user bookmarked.
type Favorite struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SavedItem is an itinerary item attached to a trip on the server.
type SavedItem struct {
	ID       string `json:"id"`
	TripID   string `json:"tripId,omitempty"`
	Name     string `json:"name"`
	Day      int    `json:"day"`
	Category string `json:"category,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Trip is a planned trip.
type Trip struct {
	ID          string      `json:"id"`
	Destination string      `json:"destination"`
	StartDate   string      `json:"startDate"` // YYYY-MM-DD
	EndDate     string      `json:"endDate,omitempty"`
	Budget      int         `json:"budget,omitempty"`
	GroupSize   int         `json:"groupSize,omitempty"`
	SavedItems  []SavedItem `json:"savedItems,omitempty"`
}

// Review is a user review of a destination.
type Review struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// ChatRequest posts the conversation so far.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatReply is the assistant's answer.
type ChatReply struct {
	Message ChatMessage `json:"message"`
}

// PackingRequest asks the backend to generate a packing list.
type PackingRequest struct {
	Destination string   `json:"destination"`
	Duration    int      `json:"duration"`
	Season      string   `json:"season,omitempty"`
	Activities  []string `json:"activities,omitempty"`
	GroupSize   int      `json:"groupSize,omitempty"`
}

// PackingItem is one generated packing-list entry.
type PackingItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// PackingList is the packing-list generation response.
type PackingList struct {
	Items []PackingItem `json:"items"`
}

// ItineraryRequest asks the backend to generate itinerary recommendations.
type ItineraryRequest struct {
	Destination string   `json:"destination"`
	Duration    int      `json:"duration"`
	Budget      int      `json:"budget"`
	GroupSize   int      `json:"groupSize"`
	Interests   []string `json:"interests"`
}

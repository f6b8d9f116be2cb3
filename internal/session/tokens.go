package session

import (
	"fmt"
	"sync"

	"github.com/smileynet/tripdeck/internal/storage"
)

type authTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenStore holds the access and refresh tokens, persisted under
// storage.KeyAuth. It satisfies api.TokenSource and guard.TokenSource.
type TokenStore struct {
	persist storage.Store

	mu     sync.RWMutex
	tokens authTokens
}

// NewTokenStore restores any tokens previously saved in persist.
func NewTokenStore(persist storage.Store) (*TokenStore, error) {
	ts := &TokenStore{persist: persist}
	if _, err := storage.LoadJSON(persist, storage.KeyAuth, &ts.tokens); err != nil {
		return nil, fmt.Errorf("session: loading tokens: %w", err)
	}
	return ts, nil
}

// AccessToken returns the stored access token, or "".
func (t *TokenStore) AccessToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens.AccessToken
}

// RefreshToken returns the stored refresh token, or "".
func (t *TokenStore) RefreshToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens.RefreshToken
}

// Save replaces both tokens.
func (t *TokenStore) Save(access, refresh string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = authTokens{AccessToken: access, RefreshToken: refresh}
	if err := storage.SaveJSON(t.persist, storage.KeyAuth, t.tokens); err != nil {
		return fmt.Errorf("session: saving tokens: %w", err)
	}
	return nil
}

// Clear forgets both tokens.
func (t *TokenStore) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = authTokens{}
	if err := t.persist.Delete(storage.KeyAuth); err != nil {
		return fmt.Errorf("session: clearing tokens: %w", err)
	}
	return nil
}

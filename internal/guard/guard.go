// Package guard decides whether a protected screen may be shown based on
// the stored access token's expiry. The check is advisory: the token's
// signature is not verified on the client.
package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// State is the guard's validation state.
type State int

const (
	Validating State = iota // Token not yet inspected.
	Valid                   // Protected content may render.
	Invalid                 // Redirect to login.
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoginTarget is where invalid sessions are sent.
const LoginTarget = "login"

// Redirect sends the user to login and remembers where they were going.
type Redirect struct {
	To   string
	From string
}

// Result is the outcome of a check.
type Result struct {
	State    State
	Redirect *Redirect
	Reason   string
}

// TokenSource supplies the stored access token, or "" when none.
type TokenSource interface {
	AccessToken() string
}

// Guard validates the stored session before protected content renders.
type Guard struct {
	tokens    TokenSource
	onExpired func()
	now       func() time.Time
	state     State
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// OnExpired registers the side effect run when the stored token has expired
// (typically a local logout).
func OnExpired(fn func()) Option {
	return func(g *Guard) { g.onExpired = fn }
}

// New creates a Guard in the Validating state.
func New(tokens TokenSource, opts ...Option) *Guard {
	g := &Guard{tokens: tokens, now: time.Now, state: Validating}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the state reached by the last Check.
func (g *Guard) State() State { return g.state }

// Check validates the stored token for a request to requested.
func (g *Guard) Check(requested string) Result {
	g.state = Validating

	tok := g.tokens.AccessToken()
	if tok == "" {
		return g.invalid(requested, "not signed in")
	}

	exp, err := Expiry(tok)
	if err != nil {
		// Undecodable tokens fail closed and are treated as expired.
		g.expire()
		return g.invalid(requested, "session token is unreadable")
	}
	if g.now().UnixMilli() >= exp.UnixMilli() {
		g.expire()
		return g.invalid(requested, "session expired")
	}

	g.state = Valid
	return Result{State: Valid}
}

func (g *Guard) expire() {
	if g.onExpired != nil {
		g.onExpired()
	}
}

func (g *Guard) invalid(requested, reason string) Result {
	g.state = Invalid
	return Result{
		State:    Invalid,
		Redirect: &Redirect{To: LoginTarget, From: requested},
		Reason:   reason,
	}
}

// ErrNoExpiry indicates a token carries no exp claim.
var ErrNoExpiry = errors.New("guard: token has no expiry")

// Expiry decodes a JWT's exp claim without verifying its signature.
// Fractional seconds are kept.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser(jwt.WithJSONNumber()).ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("guard: decoding token: %w", err)
	}
	raw, ok := claims["exp"]
	if !ok {
		return time.Time{}, ErrNoExpiry
	}
	n, ok := raw.(json.Number)
	if !ok {
		return time.Time{}, fmt.Errorf("guard: exp claim is %T, not a number", raw)
	}
	secs, err := n.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("guard: exp claim: %w", err)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond)), nil
}

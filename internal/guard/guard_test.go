package guard

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestGuard_Check(t *testing.T) {
	tests := []struct {
		name        string
		token       func(t *testing.T) string
		wantState   State
		wantExpired bool
	}{
		{
			name:      "no token",
			token:     func(*testing.T) string { return "" },
			wantState: Invalid,
		},
		{
			name: "valid token",
			token: func(t *testing.T) string {
				return signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
			},
			wantState: Valid,
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))})
			},
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name: "expiry equal to now",
			token: func(t *testing.T) string {
				return signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now)})
			},
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name: "missing exp claim",
			token: func(t *testing.T) string {
				return signed(t, jwt.RegisteredClaims{Subject: "u1"})
			},
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name: "half a second left",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"exp": float64(now.Unix()) + 0.5})
			},
			wantState: Valid,
		},
		{
			name: "half a second past",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"exp": float64(now.Unix()) - 0.5})
			},
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name: "non-numeric exp",
			token: func(t *testing.T) string {
				return signed(t, jwt.MapClaims{"exp": "tomorrow"})
			},
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name:        "malformed token",
			token:       func(*testing.T) string { return "not-a-jwt" },
			wantState:   Invalid,
			wantExpired: true,
		},
		{
			name: "bad signature still decodes",
			token: func(t *testing.T) string {
				return signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}) + "tampered"
			},
			wantState: Valid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a guard over the stored token
			expired := false
			g := New(staticToken(tt.token(t)),
				WithClock(func() time.Time { return now }),
				OnExpired(func() { expired = true }))

			// When: a protected screen is requested
			res := g.Check("itinerary")

			// Then: the state and side effect match
			if res.State != tt.wantState {
				t.Errorf("state = %v, want %v (reason %q)", res.State, tt.wantState, res.Reason)
			}
			if g.State() != tt.wantState {
				t.Errorf("g.State() = %v, want %v", g.State(), tt.wantState)
			}
			if expired != tt.wantExpired {
				t.Errorf("onExpired called = %v, want %v", expired, tt.wantExpired)
			}
			if tt.wantState == Invalid {
				if res.Redirect == nil || res.Redirect.To != LoginTarget || res.Redirect.From != "itinerary" {
					t.Errorf("redirect = %+v, want login from itinerary", res.Redirect)
				}
			} else if res.Redirect != nil {
				t.Errorf("redirect = %+v, want nil", res.Redirect)
			}
		})
	}
}

func TestGuard_InitialState(t *testing.T) {
	g := New(staticToken(""))
	if g.State() != Validating {
		t.Errorf("initial state = %v, want validating", g.State())
	}
}

func TestExpiry(t *testing.T) {
	exp := now.Add(90 * time.Minute).Truncate(time.Second)
	got, err := Expiry(signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(exp) {
		t.Errorf("Expiry() = %v, want %v", got, exp)
	}
}

func TestExpiry_KeepsMilliseconds(t *testing.T) {
	got, err := Expiry(signed(t, jwt.MapClaims{"exp": 1772366400.25}))
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(1772366400250); got.UnixMilli() != want {
		t.Errorf("Expiry().UnixMilli() = %d, want %d", got.UnixMilli(), want)
	}
}

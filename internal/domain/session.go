package domain

import (
	"fmt"
	"strings"
	"time"
)

// DemoTokenPrefix marks tokens minted locally while the backend is unreachable.
const DemoTokenPrefix = "demo_token_"

// AuthState is the state of the client-side session state machine.
type AuthState string

const (
	StateUnauthenticated   AuthState = "unauthenticated"
	StateAuthenticating    AuthState = "authenticating"
	StateAuthenticatedReal AuthState = "authenticated_real"
	StateAuthenticatedDemo AuthState = "authenticated_demo"
	StateLoggingOut        AuthState = "logging_out"
)

// Session is the authentication state of the running client.
// An empty Token means unauthenticated; User is non-nil exactly when Token
// is non-empty.
type Session struct {
	Token    string       `json:"token"`
	User     *UserProfile `json:"user"`
	DemoMode bool         `json:"demoMode"`
	Loading  bool         `json:"-"`
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Valid checks the token/user pairing invariant.
func (s Session) Valid() error {
	if (s.Token == "") != (s.User == nil) {
		return fmt.Errorf("session token and user must be set together")
	}
	return nil
}

// State derives the steady state for the session.
func (s Session) State() AuthState {
	switch {
	case !s.Authenticated():
		return StateUnauthenticated
	case s.DemoMode:
		return StateAuthenticatedDemo
	default:
		return StateAuthenticatedReal
	}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	return s
}

// NewDemoToken mints a local token for a demo session.
func NewDemoToken(now time.Time) string {
	return fmt.Sprintf("%s%d", DemoTokenPrefix, now.UnixMilli())
}

// IsDemoToken reports whether the token was minted locally.
func IsDemoToken(token string) bool {
	return strings.HasPrefix(token, DemoTokenPrefix)
}

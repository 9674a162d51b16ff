package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSession_State(t *testing.T) {
	user := &UserProfile{ID: "1"}
	tests := []struct {
		name     string
		session  Session
		expected AuthState
	}{
		{"empty", Session{}, StateUnauthenticated},
		{"real", Session{Token: "t", User: user}, StateAuthenticatedReal},
		{"demo", Session{Token: "demo_token_1", User: user, DemoMode: true}, StateAuthenticatedDemo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.State(); got != tt.expected {
				t.Errorf("State() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSession_Valid(t *testing.T) {
	if err := (Session{}).Valid(); err != nil {
		t.Errorf("empty session should be valid: %v", err)
	}
	if err := (Session{Token: "t"}).Valid(); err == nil {
		t.Error("token without user should be invalid")
	}
	if err := (Session{User: &UserProfile{}}).Valid(); err == nil {
		t.Error("user without token should be invalid")
	}
}

func TestNewDemoToken(t *testing.T) {
	token := NewDemoToken(time.UnixMilli(1234))
	if token != "demo_token_1234" {
		t.Errorf("NewDemoToken() = %q", token)
	}
	if !IsDemoToken(token) || IsDemoToken("eyJhbGciOi") {
		t.Error("IsDemoToken() misclassified")
	}
}

func TestErrorHelpers(t *testing.T) {
	transport := fmt.Errorf("login: %w", &TransportError{Kind: TransportTimeout, Err: errors.New("deadline")})
	server := &ServerError{Status: 503}
	cred := &CredentialError{Reason: CredentialUnauthorized, Status: 401}

	if !IsFallback(transport) || !IsFallback(server) || IsFallback(cred) {
		t.Error("IsFallback() misclassified")
	}
	if !IsTransport(transport) || IsTransport(server) {
		t.Error("IsTransport() misclassified")
	}
	if !IsCredential(cred) {
		t.Error("IsCredential() misclassified")
	}
	if ResponseStatus(transport) != 0 || ResponseStatus(server) != 503 || ResponseStatus(&NotFoundError{}) != 404 {
		t.Error("ResponseStatus() returned wrong status")
	}
}

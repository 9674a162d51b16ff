package domain

import (
	"errors"
	"fmt"
)

// Transport failure kinds.
const (
	TransportTimeout = "timeout"
	TransportNetwork = "network"
)

// Credential failure reasons.
const (
	CredentialUnauthorized = "unauthorized"
	CredentialInvalidInput = "invalid-input"
)

// ValidationError reports missing or malformed client-side input.
// It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CredentialError is returned for 400/401/422 responses.
type CredentialError struct {
	Reason  string
	Status  int
	Message string
}

func (e *CredentialError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("credential error (%s)", e.Reason)
}

// TransportError is returned when no HTTP response was received.
type TransportError struct {
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is returned for responses with status >= 500.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// NotFoundError is returned for 404 responses.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("not found: %s", e.Path)
}

// HTTPError covers any other non-2xx status.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// IsFallback reports whether err should be absorbed by the offline
// fallback policy (transport and server failures).
func IsFallback(err error) bool {
	var te *TransportError
	var se *ServerError
	return errors.As(err, &te) || errors.As(err, &se)
}

// IsTransport reports whether err means no HTTP response was received.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsCredential reports whether err is a credential rejection.
func IsCredential(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}

// ResponseStatus returns the HTTP status carried by err, or 0 when no
// response was received.
func ResponseStatus(err error) int {
	var (
		ce *CredentialError
		se *ServerError
		he *HTTPError
		nf *NotFoundError
	)
	switch {
	case errors.As(err, &ce):
		return ce.Status
	case errors.As(err, &se):
		return se.Status
	case errors.As(err, &he):
		return he.Status
	case errors.As(err, &nf):
		return 404
	}
	return 0
}

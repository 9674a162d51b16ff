package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

// ClassifyTransport maps a failed round trip (no HTTP response) to a
// TransportError. Caller cancellation is returned unchanged.
func ClassifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.TransportError{Kind: domain.TransportTimeout, Err: err}
	}
	return &domain.TransportError{Kind: domain.TransportNetwork, Err: err}
}

// ClassifyStatus maps an HTTP status to the error taxonomy. It returns nil
// for non-error statuses.
func ClassifyStatus(status int, body []byte, path string) error {
	if status < http.StatusBadRequest {
		return nil
	}

	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			msg = "Invalid email or password"
		}
		return &domain.CredentialError{Reason: domain.CredentialUnauthorized, Status: status, Message: msg}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "Invalid input"
		}
		return &domain.CredentialError{Reason: domain.CredentialInvalidInput, Status: status, Message: msg}
	case status == http.StatusNotFound:
		return &domain.NotFoundError{Path: trimPath(path), Message: msg}
	case status >= http.StatusInternalServerError:
		return &domain.ServerError{Status: status, Message: msg}
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &domain.HTTPError{Status: status, Message: msg}
	}
}

// errorMessage extracts a human readable message from common error bodies:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"message": "..."} and
// {"error": "..."}.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
)

const applicationKeyPrefix = "applications:"

// Application is a service request filed by a citizen.
type Application struct {
	ID          string    `json:"id"`
	ServiceType string    `json:"service_type"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ApplicationStore keeps each user's applications as one JSON list.
type ApplicationStore struct {
	kv storage.KV
	mu sync.Mutex
}

// NewApplicationStore creates an ApplicationStore.
func NewApplicationStore(kv storage.KV) *ApplicationStore {
	return &ApplicationStore{kv: kv}
}

// List returns the applications of owner, newest first.
func (s *ApplicationStore) List(ctx context.Context, owner string) ([]Application, error) {
	data, err := s.kv.Get(ctx, applicationKeyPrefix+owner)
	if errors.Is(err, storage.ErrNotFound) {
		return []Application{}, nil
	}
	if err != nil {
		return nil, err
	}

	var apps []Application
	if err := json.Unmarshal([]byte(data), &apps); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return apps, nil
}

// Create files a new application for owner.
func (s *ApplicationStore) Create(ctx context.Context, owner, serviceType, title string) (*Application, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	app := Application{
		ID:          id.String(),
		ServiceType: serviceType,
		Title:       title,
		Status:      "submitted",
		SubmittedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	apps = append([]Application{app}, apps...)

	data, err := json.Marshal(apps)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, applicationKeyPrefix+owner, string(data)); err != nil {
		return nil, fmt.Errorf("failed to save applications: %w", err)
	}
	return &app, nil
}

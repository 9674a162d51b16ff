package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
)

const (
	userKeyPrefix = "users:"
	userSeqKey    = "users:seq"
)

// ErrUserExists is returned when registering an email twice.
var ErrUserExists = errors.New("user already exists")

// User is an account held by the development backend.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Mobile       string    `json:"mobile"`
	City         string    `json:"city"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore keeps accounts in a key/value backend, one JSON document per
// email.
type UserStore struct {
	kv storage.KV
	mu sync.Mutex
}

// NewUserStore creates a UserStore.
func NewUserStore(kv storage.KV) *UserStore {
	return &UserStore{kv: kv}
}

// Create assigns an ID and stores the user.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.kv.Get(ctx, userKeyPrefix+user.Email); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to check user: %w", err)
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return err
	}
	user.ID = id

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.kv.Set(ctx, userKeyPrefix+user.Email, string(data)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetByEmail returns the user registered under email, or storage.ErrNotFound.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	data, err := s.kv.Get(ctx, userKeyPrefix+email)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) nextID(ctx context.Context) (int64, error) {
	var current int64
	raw, err := s.kv.Get(ctx, userSeqKey)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt user sequence: %w", err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("failed to read user sequence: %w", err)
	}

	next := current + 1
	if err := s.kv.Set(ctx, userSeqKey, strconv.FormatInt(next, 10)); err != nil {
		return 0, fmt.Errorf("failed to update user sequence: %w", err)
	}
	return next, nil
}

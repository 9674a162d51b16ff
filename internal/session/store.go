// Package session persists the client session (token, profile and demo
// flag) in a string key/value backend.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
	"github.com/sirosfoundation/go-citizen-client/internal/storage"
)

// Storage keys
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyDemoMode = "demoMode"
)

// Store saves and restores the session.
type Store struct {
	kv       storage.KV
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStore creates a session store on top of kv.
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Store{
		kv:       kv,
		validate: v,
		logger:   logger.Named("session_store"),
	}
}

// Save writes token, user and demo flag in that order. An unauthenticated
// session clears the store.
func (s *Store) Save(ctx context.Context, sess domain.Session) error {
	if err := sess.Valid(); err != nil {
		return err
	}
	if !sess.Authenticated() {
		return s.Clear(ctx)
	}
	if err := s.validate.Struct(sess.User); err != nil {
		return fmt.Errorf("invalid user profile: %w", err)
	}

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := s.kv.Set(ctx, KeyToken, sess.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, string(userJSON)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if err := s.kv.Set(ctx, KeyDemoMode, strconv.FormatBool(sess.DemoMode)); err != nil {
		return fmt.Errorf("failed to save demo flag: %w", err)
	}
	return nil
}

// Load restores the persisted session. ok is false when no usable session
// is stored; a corrupt or schema-invalid profile counts as no session. The
// error is only set when the backend itself fails.
func (s *Store) Load(ctx context.Context) (sess domain.Session, ok bool, err error) {
	token, err := s.get(ctx, KeyToken)
	if err != nil || token == "" {
		return domain.Session{}, false, err
	}

	userJSON, err := s.get(ctx, KeyUser)
	if err != nil || userJSON == "" {
		if err == nil {
			s.logger.Warn("Persisted token without user, ignoring session")
		}
		return domain.Session{}, false, err
	}

	user, err := s.decodeUser(userJSON)
	if err != nil {
		s.logger.Warn("Discarding unreadable persisted user", zap.Error(err))
		return domain.Session{}, false, nil
	}

	demoFlag, err := s.get(ctx, KeyDemoMode)
	if err != nil {
		return domain.Session{}, false, err
	}

	return domain.Session{
		Token:    token,
		User:     user,
		DemoMode: demoFlag == "true" || domain.IsDemoToken(token),
	}, true, nil
}

// Clear removes all session keys.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken, KeyUser, KeyDemoMode); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// get returns "" for missing keys.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) decodeUser(raw string) (*domain.UserProfile, error) {
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

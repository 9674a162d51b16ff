package mockapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
	"github.com/sirosfoundation/go-citizen-client/pkg/middleware"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService registers accounts and issues access tokens.
type AuthService struct {
	users  *UserStore
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// GenerateSecret returns a random signing key for the access tokens.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewAuthService creates an AuthService.
func NewAuthService(users *UserStore, cfg *config.MockAPIConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.TokenExpiryMin) * time.Minute,
		logger: logger.Named("auth-service"),
	}
}

// Secret returns the token signing key.
func (s *AuthService) Secret() []byte {
	return s.secret
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:        domain.NormalizeEmail(req.Email),
		FullName:     req.FullName,
		Mobile:       req.Mobile,
		City:         req.City,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies the password and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return middleware.IssueToken(s.secret, user.Email, s.ttl)
}

// Profile returns the account for a token subject.
func (s *AuthService) Profile(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, email)
}

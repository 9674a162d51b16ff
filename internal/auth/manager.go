// Package auth implements the client-side session state machine: login
// with an offline demo fallback, registration, logout and profile updates.
package auth

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
)

// Messages returned to callers.
const (
	MsgRegistered        = "Registration successful. Please sign in."
	MsgRegisteredOffline = "Server is unreachable. Your details were not submitted, but you can still sign in using demo mode."
	MsgDemoMode          = "Server is unreachable. Signed in using demo mode."
	MsgStorageFailed     = "Could not save the session on this device."
)

// Gateway is the subset of the HTTP gateway the manager depends on.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
	Me(ctx context.Context) (*domain.UserProfile, error)
	Register(ctx context.Context, req *domain.RegisterRequest) error
	Health(ctx context.Context) error
	SetAuthToken(token string)
}

// SessionStore persists the session between runs.
type SessionStore interface {
	Save(ctx context.Context, sess domain.Session) error
	Load(ctx context.Context) (domain.Session, bool, error)
	Clear(ctx context.Context) error
}

// Result is the outcome of a login or registration attempt.
type Result struct {
	Success  bool   `json:"success"`
	DemoMode bool   `json:"demoMode,omitempty"`
	Message  string `json:"message,omitempty"`
	Err      error  `json:"-"`
}

func failure(err error) Result {
	return Result{Message: err.Error(), Err: err}
}

// Snapshot is a consistent view of the manager state.
type Snapshot struct {
	Session domain.Session
	State   domain.AuthState
}

// Manager owns the in-memory session. Callers are expected to issue one
// operation at a time; overlapping logins are not serialised and the last
// store write wins.
type Manager struct {
	gateway  Gateway
	store    SessionStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	session   domain.Session
	state     domain.AuthState
	listeners map[int]func(Snapshot)
	nextID    int
}

// NewManager creates a Manager in the Unauthenticated state.
func NewManager(gw Gateway, store SessionStore, logger *zap.Logger) *Manager {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return &Manager{
		gateway:   gw,
		store:     store,
		validate:  v,
		logger:    logger.Named("auth"),
		now:       time.Now,
		state:     domain.StateUnauthenticated,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Session: m.session.Clone(), State: m.state}
}

// State returns the current state machine state.
func (m *Manager) State() domain.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// update applies fn under the lock and notifies subscribers outside it.
func (m *Manager) update(fn func(sess *domain.Session) domain.AuthState) {
	m.mu.Lock()
	m.state = fn(&m.session)
	snap := Snapshot{Session: m.session.Clone(), State: m.state}
	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (m *Manager) setSession(sess domain.Session) {
	m.update(func(s *domain.Session) domain.AuthState {
		*s = sess
		return sess.State()
	})
}

func (m *Manager) setState(state domain.AuthState) {
	m.update(func(*domain.Session) domain.AuthState { return state })
}

// Restore loads the persisted session. Storage failures and unreadable
// data leave the manager unauthenticated. Real tokens that are JWTs past
// their expiry are discarded.
func (m *Manager) Restore(ctx context.Context) Snapshot {
	m.update(func(s *domain.Session) domain.AuthState {
		s.Loading = true
		return m.state
	})

	sess, ok, err := m.store.Load(ctx)
	switch {
	case err != nil:
		m.logger.Warn("Failed to load persisted session", zap.Error(err))
		ok = false
	case ok && !sess.DemoMode && tokenExpired(sess.Token, m.now()):
		m.logger.Info("Persisted token has expired, discarding session")
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("Failed to clear expired session", zap.Error(err))
		}
		ok = false
	}

	if !ok {
		m.gateway.SetAuthToken("")
		m.setSession(domain.Session{})
		return m.Snapshot()
	}

	if sess.DemoMode {
		m.gateway.SetAuthToken("")
	} else {
		m.gateway.SetAuthToken(sess.Token)
	}
	m.setSession(sess)

	m.logger.Debug("Session restored", zap.String("state", string(sess.State())))
	return m.Snapshot()
}

// tokenExpired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}

// Login authenticates against the backend. Transport and server failures
// fall back to a local demo session; credential failures never do.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	req := domain.LoginRequest{Email: domain.NormalizeEmail(email), Password: password}
	if err := m.validateInput(&req); err != nil {
		return failure(err)
	}

	m.setState(domain.StateAuthenticating)

	user, token, err := m.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return m.loginFailed(ctx, req.Email, err)
	}

	sess := domain.Session{Token: token, User: user}
	if err := m.store.Save(ctx, sess); err != nil {
		m.logger.Error("Failed to persist session", zap.Error(err))
		m.gateway.SetAuthToken("")
		m.setSession(domain.Session{})
		return Result{Message: MsgStorageFailed, Err: err}
	}

	m.setSession(sess)
	m.logger.Info("Login successful", zap.String("user_id", user.ID))
	return Result{Success: true}
}

func (m *Manager) authenticate(ctx context.Context, email, password string) (*domain.UserProfile, string, error) {
	resp, err := m.gateway.Login(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	m.gateway.SetAuthToken(resp.AccessToken)

	user, err := m.gateway.Me(ctx)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		m.logger.Warn("Profile endpoint returned no body, using derived profile")
		user = domain.NewDemoUser(email, m.now())
	}
	if user.ID == "" && user.Email == "" {
		m.logger.Warn("Profile has no id or email, using login email")
		user.Email = email
	}
	return user, resp.AccessToken, nil
}

func (m *Manager) loginFailed(ctx context.Context, email string, err error) Result {
	m.gateway.SetAuthToken("")

	if !domain.IsFallback(err) {
		m.logger.Info("Login rejected", zap.Error(err))
		m.setSession(domain.Session{})
		return failure(err)
	}

	m.logger.Warn("Backend unavailable, falling back to demo mode", zap.Error(err))
	now := m.now()
	sess := domain.Session{
		Token:    domain.NewDemoToken(now),
		User:     domain.NewDemoUser(email, now),
		DemoMode: true,
	}
	if serr := m.store.Save(ctx, sess); serr != nil {
		m.logger.Error("Failed to persist demo session", zap.Error(serr))
		m.setSession(domain.Session{})
		return Result{Message: MsgStorageFailed, Err: serr}
	}

	m.setSession(sess)
	return Result{Success: true, DemoMode: true, Message: MsgDemoMode}
}

// Register submits a new account. When no response is received at all the
// registration is reported as successful so the citizen can continue in
// demo mode.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) Result {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := m.validateInput(&req); err != nil {
		return failure(err)
	}

	err := m.gateway.Register(ctx, &req)
	switch {
	case err == nil:
		m.logger.Info("Registration successful")
		return Result{Success: true, Message: MsgRegistered}
	case domain.IsTransport(err):
		m.logger.Warn("Registration could not reach the backend", zap.Error(err))
		return Result{Success: true, Message: MsgRegisteredOffline}
	default:
		m.logger.Info("Registration rejected", zap.Error(err))
		return failure(err)
	}
}

// Logout resets the in-memory session and auth header before touching
// storage. Storage errors are logged only.
func (m *Manager) Logout(ctx context.Context) {
	m.update(func(s *domain.Session) domain.AuthState {
		*s = domain.Session{}
		return domain.StateLoggingOut
	})
	m.gateway.SetAuthToken("")

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("Failed to clear persisted session", zap.Error(err))
	}
	m.setState(domain.StateUnauthenticated)
}

// UpdateUser merges patch into the current profile. The in-memory profile
// is updated even if persisting it fails; that failure is only logged.
func (m *Manager) UpdateUser(ctx context.Context, patch domain.UserPatch) error {
	var (
		sess    domain.Session
		present bool
	)
	m.update(func(s *domain.Session) domain.AuthState {
		if !s.Authenticated() {
			return m.state
		}
		present = true
		s.User = patch.Apply(s.User)
		sess = s.Clone()
		return s.State()
	})
	if !present {
		return &domain.ValidationError{Field: "user", Message: "not signed in"}
	}

	if err := m.store.Save(ctx, sess); err != nil {
		m.logger.Error("Failed to persist updated profile", zap.Error(err))
	}
	return nil
}

// CheckHealth probes the backend health endpoint.
func (m *Manager) CheckHealth(ctx context.Context) bool {
	if err := m.gateway.Health(ctx); err != nil {
		m.logger.Debug("Health check failed", zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) validateInput(v any) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return &domain.ValidationError{
			Field:   strings.Join(fields, ", "),
			Message: "required",
		}
	}
	return &domain.ValidationError{Message: err.Error()}
}

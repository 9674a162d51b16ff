package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
	"github.com/sirosfoundation/go-citizen-client/internal/endpoint"
	"github.com/sirosfoundation/go-citizen-client/internal/gateway"
	"github.com/sirosfoundation/go-citizen-client/internal/session"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/memory"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

var testNow = time.UnixMilli(1700000000000)

type mockGateway struct {
	loginFn    func(email, password string) (*domain.LoginResponse, error)
	meFn       func() (*domain.UserProfile, error)
	registerFn func(req *domain.RegisterRequest) error
	healthErr  error

	token      string
	tokenCalls []string
	calls      int
}

func (g *mockGateway) Login(_ context.Context, email, password string) (*domain.LoginResponse, error) {
	g.calls++
	return g.loginFn(email, password)
}

func (g *mockGateway) Me(context.Context) (*domain.UserProfile, error) {
	g.calls++
	return g.meFn()
}

func (g *mockGateway) Register(_ context.Context, req *domain.RegisterRequest) error {
	g.calls++
	return g.registerFn(req)
}

func (g *mockGateway) Health(context.Context) error {
	g.calls++
	return g.healthErr
}

func (g *mockGateway) SetAuthToken(token string) {
	g.token = token
	g.tokenCalls = append(g.tokenCalls, token)
}

type mockStore struct {
	saved    []domain.Session
	loadSess domain.Session
	loadOK   bool
	loadErr  error
	saveErr  error
	clearErr error
	cleared  int
}

func (s *mockStore) Save(_ context.Context, sess domain.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, sess.Clone())
	return nil
}

func (s *mockStore) Load(context.Context) (domain.Session, bool, error) {
	return s.loadSess, s.loadOK, s.loadErr
}

func (s *mockStore) Clear(context.Context) error {
	s.cleared++
	return s.clearErr
}

func newTestManager(gw Gateway, store SessionStore) *Manager {
	m := NewManager(gw, store, zap.NewNop())
	m.now = func() time.Time { return testNow }
	return m
}

func unreachable(string, string) (*domain.LoginResponse, error) {
	return nil, &domain.TransportError{Kind: domain.TransportNetwork, Err: errors.New("connection refused")}
}

func TestLogin_Success(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(email, password string) (*domain.LoginResponse, error) {
			assert.Equal(t, "jane@x.com", email)
			assert.Equal(t, "secret", password)
			return &domain.LoginResponse{AccessToken: "real-token"}, nil
		},
		meFn: func() (*domain.UserProfile, error) {
			return &domain.UserProfile{ID: "7", Email: "jane@x.com", FullName: "Jane"}, nil
		},
	}
	store := &mockStore{}
	m := newTestManager(gw, store)

	res := m.Login(context.Background(), "  Jane@X.com ", "secret")

	assert.True(t, res.Success)
	assert.False(t, res.DemoMode)
	assert.Equal(t, "real-token", gw.token)

	snap := m.Snapshot()
	assert.Equal(t, domain.StateAuthenticatedReal, snap.State)
	assert.Equal(t, "real-token", snap.Session.Token)
	assert.Equal(t, "Jane", snap.Session.User.FullName)
	assert.False(t, snap.Session.DemoMode)

	require.Len(t, store.saved, 1)
	assert.False(t, store.saved[0].DemoMode)
}

func TestLogin_EmptyProfileFallsBackToDerivedUser(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(string, string) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{AccessToken: "real-token"}, nil
		},
		meFn: func() (*domain.UserProfile, error) { return nil, nil },
	}
	m := newTestManager(gw, &mockStore{})

	res := m.Login(context.Background(), "ravi.kumar@x.in", "pw")

	require.True(t, res.Success)
	snap := m.Snapshot()
	assert.Equal(t, "Ravi Kumar", snap.Session.User.FullName)
	assert.False(t, snap.Session.DemoMode)
	assert.Equal(t, domain.StateAuthenticatedReal, snap.State)
}

func TestLogin_ValidationNeverReachesNetwork(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"missing email", "", "pw"},
		{"blank email", "   ", "pw"},
		{"missing password", "a@b.c", ""},
		{"both missing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			m := newTestManager(gw, &mockStore{})

			res := m.Login(context.Background(), tt.email, tt.password)

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
			var verr *domain.ValidationError
			assert.ErrorAs(t, res.Err, &verr)
			assert.Zero(t, gw.calls)
			assert.Equal(t, domain.StateUnauthenticated, m.State())
		})
	}
}

func TestLogin_CredentialFailureNeverTriggersDemo(t *testing.T) {
	for _, status := range []int{400, 401, 422} {
		gw := &mockGateway{
			loginFn: func(string, string) (*domain.LoginResponse, error) {
				return nil, &domain.CredentialError{Reason: domain.CredentialUnauthorized, Status: status, Message: "Invalid email or password"}
			},
		}
		store := &mockStore{}
		m := newTestManager(gw, store)

		res := m.Login(context.Background(), "jane@x.com", "bad")

		assert.False(t, res.Success)
		assert.False(t, res.DemoMode)
		assert.Equal(t, "Invalid email or password", res.Message)

		snap := m.Snapshot()
		assert.Empty(t, snap.Session.Token)
		assert.Nil(t, snap.Session.User)
		assert.False(t, snap.Session.DemoMode)
		assert.Equal(t, domain.StateUnauthenticated, snap.State)
		assert.Empty(t, gw.token)
		assert.Empty(t, store.saved)
	}
}

func TestLogin_CredentialFailureOnProfileClearsHeader(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(string, string) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{AccessToken: "real-token"}, nil
		},
		meFn: func() (*domain.UserProfile, error) {
			return nil, &domain.CredentialError{Reason: domain.CredentialUnauthorized, Status: 401}
		},
	}
	m := newTestManager(gw, &mockStore{})

	res := m.Login(context.Background(), "jane@x.com", "pw")

	assert.False(t, res.Success)
	assert.Equal(t, []string{"real-token", ""}, gw.tokenCalls)
}

func TestLogin_FallbackToDemo(t *testing.T) {
	failures := map[string]error{
		"network": &domain.TransportError{Kind: domain.TransportNetwork, Err: errors.New("connection refused")},
		"timeout": &domain.TransportError{Kind: domain.TransportTimeout, Err: context.DeadlineExceeded},
		"server":  &domain.ServerError{Status: 503},
	}

	for name, failErr := range failures {
		t.Run(name, func(t *testing.T) {
			gw := &mockGateway{
				loginFn: func(string, string) (*domain.LoginResponse, error) { return nil, failErr },
			}
			store := &mockStore{}
			m := newTestManager(gw, store)

			res := m.Login(context.Background(), "Jane.Doe@Example.com", "pw")

			assert.True(t, res.Success)
			assert.True(t, res.DemoMode)

			snap := m.Snapshot()
			assert.Equal(t, domain.StateAuthenticatedDemo, snap.State)
			assert.Equal(t, "demo_token_1700000000000", snap.Session.Token)
			assert.Equal(t, "Jane Doe", snap.Session.User.FullName)
			assert.Equal(t, "jane.doe@example.com", snap.Session.User.Email)
			assert.Equal(t, domain.DemoMobile, snap.Session.User.Mobile)
			assert.Equal(t, domain.DemoCity, snap.Session.User.City)
			assert.Empty(t, gw.token)

			require.Len(t, store.saved, 1)
			assert.True(t, store.saved[0].DemoMode)
		})
	}
}

func TestLogin_DemoPersistFailure(t *testing.T) {
	gw := &mockGateway{loginFn: unreachable}
	m := newTestManager(gw, &mockStore{saveErr: errors.New("disk full")})

	res := m.Login(context.Background(), "jane@x.com", "pw")

	assert.False(t, res.Success)
	assert.False(t, res.DemoMode)
	assert.Equal(t, domain.StateUnauthenticated, m.State())
	assert.Empty(t, m.Snapshot().Session.Token)
}

func TestLogin_NotFoundIsSurfaced(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(string, string) (*domain.LoginResponse, error) {
			return nil, &domain.NotFoundError{Path: "/api/auth/login"}
		},
	}
	m := newTestManager(gw, &mockStore{})

	res := m.Login(context.Background(), "jane@x.com", "pw")

	assert.False(t, res.Success)
	assert.False(t, res.DemoMode)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, res.Err, &nf)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantSuccess bool
		wantMessage string
	}{
		{"created", nil, true, MsgRegistered},
		{"network", &domain.TransportError{Kind: domain.TransportNetwork, Err: errors.New("dial")}, true, MsgRegisteredOffline},
		{"timeout", &domain.TransportError{Kind: domain.TransportTimeout, Err: context.DeadlineExceeded}, true, MsgRegisteredOffline},
		{"conflict", &domain.CredentialError{Reason: domain.CredentialInvalidInput, Status: 400, Message: "Email already registered"}, false, "Email already registered"},
		{"server error", &domain.ServerError{Status: 500, Message: "boom"}, false, "server error (500): boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.RegisterRequest
			gw := &mockGateway{registerFn: func(req *domain.RegisterRequest) error {
				got = req
				return tt.err
			}}
			m := newTestManager(gw, &mockStore{})

			res := m.Register(context.Background(), domain.RegisterRequest{
				FullName: "Jane Doe",
				Email:    " Jane@X.com",
				Password: "pw",
			})

			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantMessage, res.Message)
			require.NotNil(t, got)
			assert.Equal(t, "jane@x.com", got.Email)
			assert.Equal(t, domain.StateUnauthenticated, m.State())
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	gw := &mockGateway{}
	m := newTestManager(gw, &mockStore{})

	res := m.Register(context.Background(), domain.RegisterRequest{FullName: "Jane"})

	assert.False(t, res.Success)
	var verr *domain.ValidationError
	require.ErrorAs(t, res.Err, &verr)
	assert.Contains(t, verr.Field, "email")
	assert.Contains(t, verr.Field, "password")
	assert.Zero(t, gw.calls)
}

func TestLogout_InMemoryFirst(t *testing.T) {
	gw := &mockGateway{loginFn: unreachable}
	store := &mockStore{clearErr: errors.New("storage unavailable")}
	m := newTestManager(gw, store)
	require.True(t, m.Login(context.Background(), "jane@x.com", "pw").Success)

	var states []domain.AuthState
	var tokens []string
	m.Subscribe(func(s Snapshot) {
		states = append(states, s.State)
		tokens = append(tokens, s.Session.Token)
	})

	m.Logout(context.Background())

	snap := m.Snapshot()
	assert.Empty(t, snap.Session.Token)
	assert.Nil(t, snap.Session.User)
	assert.False(t, snap.Session.DemoMode)
	assert.Equal(t, domain.StateUnauthenticated, snap.State)
	assert.Empty(t, gw.token)
	assert.Equal(t, 1, store.cleared)

	assert.Equal(t, []domain.AuthState{domain.StateLoggingOut, domain.StateUnauthenticated}, states)
	assert.Equal(t, []string{"", ""}, tokens)
}

func TestUpdateUser(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(string, string) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{AccessToken: "tok"}, nil
		},
		meFn: func() (*domain.UserProfile, error) {
			return &domain.UserProfile{ID: "1", Email: "a@b.c", City: "Surat"}, nil
		},
	}
	store := &mockStore{}
	m := newTestManager(gw, store)
	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

	city := "Vadodara"
	require.NoError(t, m.UpdateUser(context.Background(), domain.UserPatch{City: &city}))

	assert.Equal(t, "Vadodara", m.Snapshot().Session.User.City)
	require.Len(t, store.saved, 2)
	assert.Equal(t, "Vadodara", store.saved[1].User.City)
	assert.Equal(t, "tok", store.saved[1].Token)
}

func TestUpdateUser_PersistFailureLeavesMemoryUpdated(t *testing.T) {
	gw := &mockGateway{loginFn: unreachable}
	store := &mockStore{}
	m := newTestManager(gw, store)
	require.True(t, m.Login(context.Background(), "a@b.c", "pw").Success)

	store.saveErr = errors.New("disk full")
	mobile := "9123456789"
	require.NoError(t, m.UpdateUser(context.Background(), domain.UserPatch{Mobile: &mobile}))

	// memory and storage now disagree
	assert.Equal(t, "9123456789", m.Snapshot().Session.User.Mobile)
	require.Len(t, store.saved, 1)
	assert.Equal(t, domain.DemoMobile, store.saved[0].User.Mobile)
}

func TestUpdateUser_Unauthenticated(t *testing.T) {
	m := newTestManager(&mockGateway{}, &mockStore{})

	city := "Surat"
	err := m.UpdateUser(context.Background(), domain.UserPatch{City: &city})

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Nil(t, m.Snapshot().Session.User)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestRestore(t *testing.T) {
	user := &domain.UserProfile{ID: "1", Email: "a@b.c"}

	tests := []struct {
		name      string
		store     *mockStore
		wantState domain.AuthState
		wantToken string
		wantClear bool
	}{
		{
			name:      "nothing stored",
			store:     &mockStore{},
			wantState: domain.StateUnauthenticated,
		},
		{
			name:      "storage failure",
			store:     &mockStore{loadErr: errors.New("io")},
			wantState: domain.StateUnauthenticated,
		},
		{
			name:      "real session",
			store:     &mockStore{loadOK: true, loadSess: domain.Session{Token: "opaque", User: user}},
			wantState: domain.StateAuthenticatedReal,
			wantToken: "opaque",
		},
		{
			name:      "demo session",
			store:     &mockStore{loadOK: true, loadSess: domain.Session{Token: "demo_token_1", User: user, DemoMode: true}},
			wantState: domain.StateAuthenticatedDemo,
		},
		{
			name:      "expired jwt",
			store:     &mockStore{loadOK: true, loadSess: domain.Session{Token: signedToken(t, testNow.Add(-time.Hour)), User: user}},
			wantState: domain.StateUnauthenticated,
			wantClear: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			m := newTestManager(gw, tt.store)

			var loading []bool
			m.Subscribe(func(s Snapshot) { loading = append(loading, s.Session.Loading) })

			snap := m.Restore(context.Background())

			assert.Equal(t, tt.wantState, snap.State)
			assert.False(t, snap.Session.Loading)
			assert.Equal(t, tt.wantToken, gw.token)
			assert.Equal(t, tt.wantClear, tt.store.cleared > 0)
			assert.Equal(t, []bool{true, false}, loading)
		})
	}
}

func TestRestore_ValidJWTIsReattached(t *testing.T) {
	token := signedToken(t, testNow.Add(time.Hour))
	gw := &mockGateway{}
	store := &mockStore{loadOK: true, loadSess: domain.Session{Token: token, User: &domain.UserProfile{ID: "1"}}}
	m := newTestManager(gw, store)

	snap := m.Restore(context.Background())

	assert.Equal(t, domain.StateAuthenticatedReal, snap.State)
	assert.Equal(t, token, gw.token)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	gw := &mockGateway{loginFn: unreachable}
	m := newTestManager(gw, &mockStore{})

	count := 0
	unsubscribe := m.Subscribe(func(Snapshot) { count++ })
	m.Login(context.Background(), "a@b.c", "pw")
	assert.Equal(t, 2, count)

	unsubscribe()
	m.Logout(context.Background())
	assert.Equal(t, 2, count)
}

func TestCheckHealth(t *testing.T) {
	assert.True(t, newTestManager(&mockGateway{}, &mockStore{}).CheckHealth(context.Background()))
	assert.False(t, newTestManager(&mockGateway{healthErr: &domain.ServerError{Status: 502}}, &mockStore{}).CheckHealth(context.Background()))
}

// TestManager_EndToEnd drives the manager through the real gateway and a
// memory-backed session store.
func TestManager_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case gateway.PathLogin:
			_, _ = w.Write([]byte(`{"access_token":"server-token","token_type":"bearer"}`))
		case gateway.PathMe:
			if r.Header.Get("Authorization") != "Bearer server-token" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":3,"email":"jane@x.com","full_name":"Jane","ward":"7"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.API.URL = srv.URL
	gw := gateway.New(endpoint.NewResolver(cfg, zap.NewNop()), cfg, zap.NewNop())
	kv := memory.NewStore()
	m := newTestManager(gw, session.NewStore(kv, zap.NewNop()))

	res := m.Login(context.Background(), "jane@x.com", "pw")
	require.True(t, res.Success, res.Message)
	assert.True(t, gw.HasAuthToken())

	// a fresh manager over the same storage restores the session
	gw2 := gateway.New(endpoint.NewResolver(cfg, zap.NewNop()), cfg, zap.NewNop())
	m2 := newTestManager(gw2, session.NewStore(kv, zap.NewNop()))
	snap := m2.Restore(context.Background())
	assert.Equal(t, domain.StateAuthenticatedReal, snap.State)
	assert.Equal(t, "3", snap.Session.User.ID)
	assert.Equal(t, "7", snap.Session.User.Extra["ward"])
	assert.True(t, gw2.HasAuthToken())

	m2.Logout(context.Background())
	assert.False(t, gw2.HasAuthToken())
	assert.Equal(t, 0, kv.Len())
}

func TestLogin_AnonymousProfileSurvivesRestore(t *testing.T) {
	gw := &mockGateway{
		loginFn: func(string, string) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{AccessToken: "real-token"}, nil
		},
		meFn: func() (*domain.UserProfile, error) {
			return &domain.UserProfile{FullName: "X"}, nil
		},
	}
	kv := memory.NewStore()
	m := newTestManager(gw, session.NewStore(kv, zap.NewNop()))

	res := m.Login(context.Background(), "Jane@X.com", "pw")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "jane@x.com", m.Snapshot().Session.User.Email)

	m2 := newTestManager(&mockGateway{}, session.NewStore(kv, zap.NewNop()))
	snap := m2.Restore(context.Background())
	assert.Equal(t, domain.StateAuthenticatedReal, snap.State)
	assert.Equal(t, "X", snap.Session.User.FullName)
	assert.Equal(t, "jane@x.com", snap.Session.User.Email)
}

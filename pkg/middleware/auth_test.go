package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret-key-for-testing-only")

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc ", "abc", false},
		{"Bearer", "", true},
		{"Bearer   ", "", true},
		{"Basic abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMissingToken, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, "jane@x.com", time.Hour)
	require.NoError(t, err)

	subject, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", subject)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)

	expired, err := IssueToken(testSecret, "jane@x.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)
}

func TestBearerAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, "jane@x.com", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", BearerAuth(testSecret, zap.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeySubject))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "jane@x.com"},
		{"missing", "", http.StatusUnauthorized, `{"detail":"Not authenticated"}`},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

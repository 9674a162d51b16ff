package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

const anonymousKey = "_anonymous"

// LoginRateLimiter throttles authentication attempts per account and locks
// an account out for a while once its budget is spent.
type LoginRateLimiter struct {
	cfg    config.AuthRateLimitConfig
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*loginBucket
	swept   time.Time
}

type loginBucket struct {
	limiter     *rate.Limiter
	lastSeen    time.Time
	lockedUntil time.Time
}

// NewLoginRateLimiter creates a limiter. Zero values in cfg take defaults.
func NewLoginRateLimiter(cfg config.AuthRateLimitConfig, logger *zap.Logger) *LoginRateLimiter {
	cfg.SetDefaults()
	return &LoginRateLimiter{
		cfg:     cfg,
		logger:  logger.Named("login-ratelimit"),
		now:     time.Now,
		buckets: make(map[string]*loginBucket),
		swept:   time.Now(),
	}
}

// bucket returns the bucket for key. Callers hold mu.
func (l *LoginRateLimiter) bucket(key string, now time.Time) *loginBucket {
	if now.Sub(l.swept) > 10*time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > 30*time.Minute {
				delete(l.buckets, k)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[key]
	if !ok {
		every := rate.Limit(float64(l.cfg.MaxAttempts) / float64(l.cfg.WindowSeconds))
		burst := max(int(math.Ceil(float64(l.cfg.MaxAttempts)/2)), 1)
		b = &loginBucket{limiter: rate.NewLimiter(every, burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Allow reports whether an attempt for key may proceed.
func (l *LoginRateLimiter) Allow(key string) bool {
	if !l.cfg.Enabled {
		return true
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucket(key, now)
	if now.Before(b.lockedUntil) {
		return false
	}
	if b.limiter.AllowN(now, 1) {
		return true
	}

	lockout := time.Duration(l.cfg.LockoutSeconds) * time.Second
	b.lockedUntil = now.Add(lockout)
	l.logger.Warn("Login attempts exceeded, locking out", zap.Duration("lockout", lockout))
	return false
}

// RecordFailure charges an extra attempt for a failed login.
func (l *LoginRateLimiter) RecordFailure(key string) {
	if !l.cfg.Enabled {
		return
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bucket(key, now).limiter.AllowN(now, 1)
}

// LoginKey peeks at the JSON request body for an email and restores the
// body for the handler. Requests without one share an anonymous bucket.
func LoginKey(c *gin.Context) string {
	if c.Request.Body == nil {
		return anonymousKey
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return anonymousKey
	}

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(data, &body) != nil {
		return anonymousKey
	}
	if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
		return email
	}
	return anonymousKey
}

// RateLimitLogin returns a middleware that rejects throttled login attempts
// with 429 and records a failure when the handler answers 401.
func RateLimitLogin(l *LoginRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.cfg.Enabled {
			c.Next()
			return
		}

		key := LoginKey(c)
		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "Too many login attempts. Please try again later.",
			})
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusUnauthorized {
			l.RecordFailure(key)
		}
	}
}

package mockapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/domain"
	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/pkg/middleware"
)

// Handlers serves the endpoints consumed by the citizen client.
type Handlers struct {
	auth   *AuthService
	apps   *ApplicationStore
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(auth *AuthService, apps *ApplicationStore, logger *zap.Logger) *Handlers {
	return &Handlers{
		auth:   auth,
		apps:   apps,
		logger: logger.Named("handlers"),
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile"`
	City     string `json:"city"`
	Password string `json:"password" binding:"required,min=6"`
}

type applicationRequest struct {
	ServiceType string `json:"service_type" binding:"required"`
	Title       string `json:"title" binding:"required"`
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
	City     string `json:"city"`
}

func newProfileResponse(u *User) profileResponse {
	return profileResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Mobile:   u.Mobile,
		City:     u.City,
	}
}

// bindError answers 422 with a detail list of the failed fields.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "Invalid request body"})
		return
	}

	detail := make([]gin.H, 0, len(verrs))
	for _, fe := range verrs {
		detail = append(detail, gin.H{
			"loc":  []string{"body", fe.Field()},
			"msg":  fe.Field() + " failed " + fe.Tag() + " validation",
			"type": fe.Tag(),
		})
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
}

// Health handles GET /api/health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid email or password"})
		return
	}
	if err != nil {
		h.logger.Error("Login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, domain.LoginResponse{AccessToken: token, TokenType: "bearer"})
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &domain.RegisterRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Mobile:   req.Mobile,
		City:     req.City,
		Password: req.Password,
	})
	if errors.Is(err, ErrUserExists) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Email already registered"})
		return
	}
	if err != nil {
		h.logger.Error("Registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, newProfileResponse(user))
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.auth.Profile(c.Request.Context(), c.GetString(middleware.ContextKeySubject))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(user))
}

// ListApplications handles GET /applications/
func (h *Handlers) ListApplications(c *gin.Context) {
	apps, err := h.apps.List(c.Request.Context(), c.GetString(middleware.ContextKeySubject))
	if err != nil {
		h.logger.Error("Failed to list applications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CreateApplication handles POST /applications/
func (h *Handlers) CreateApplication(c *gin.Context) {
	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	app, err := h.apps.Create(c.Request.Context(), c.GetString(middleware.ContextKeySubject), req.ServiceType, req.Title)
	if err != nil {
		h.logger.Error("Failed to create application", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Package mockapi is a development backend implementing the endpoints the
// citizen client consumes, so the client can run end to end offline.
package mockapi

import (
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
	"github.com/sirosfoundation/go-citizen-client/pkg/middleware"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		})
	}
}

// NewRouter wires the development backend over kv. cfg.JWTSecret must be
// set.
func NewRouter(cfg *config.MockAPIConfig, kv storage.KV, logger *zap.Logger) *gin.Engine {
	auth := NewAuthService(NewUserStore(kv), cfg, logger)
	handlers := NewHandlers(auth, NewApplicationStore(kv), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/api/health", handlers.Health)

	authGroup := router.Group("/api/auth")
	{
		limiter := middleware.NewLoginRateLimiter(cfg.RateLimit, logger)
		authGroup.POST("/login", middleware.RateLimitLogin(limiter), handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.GET("/me", middleware.BearerAuth(auth.Secret(), logger), handlers.Me)
	}

	apps := router.Group("/applications")
	apps.Use(middleware.BearerAuth(auth.Secret(), logger))
	{
		apps.GET("/", handlers.ListApplications)
		apps.POST("/", handlers.CreateApplication)
	}

	return router
}

package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/file"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/memory"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/mongodb"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/redisx"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

// Type defines the type of storage backend
type Type string

const (
	// TypeMemory keeps the session for the process lifetime only (testing)
	TypeMemory Type = "memory"
	// TypeFile persists the session in a local JSON file
	TypeFile Type = "file"
	// TypeRedis persists the session in Redis
	TypeRedis Type = "redis"
	// TypeMongoDB persists the session in MongoDB
	TypeMongoDB Type = "mongodb"
)

// New creates a session key/value backend based on the configuration
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.KV, error) {
	storageType := Type(cfg.Storage.Type)

	switch storageType {
	case TypeMemory, "":
		return memory.NewStore(), nil

	case TypeFile:
		store, err := file.NewStore(cfg.Storage.File.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create file backend: %w", err)
		}
		return store, nil

	case TypeRedis:
		store, err := redisx.NewStore(ctx, &cfg.Storage.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis backend: %w", err)
		}
		return store, nil

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB backend: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

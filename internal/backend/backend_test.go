package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/storage/file"
	"github.com/sirosfoundation/go-citizen-client/internal/storage/memory"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
)

func TestNew_MemoryBackend(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type: "memory",
		},
	}

	kv, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = kv.Close() }()

	if _, ok := kv.(*memory.Store); !ok {
		t.Errorf("expected *memory.Store, got %T", kv)
	}
}

func TestNew_DefaultToMemory(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type: "", // Empty should default to memory
		},
	}

	kv, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error for empty type, got %v", err)
	}
	defer func() { _ = kv.Close() }()

	if err := kv.Set(context.Background(), "token", "abc"); err != nil {
		t.Errorf("expected Set() to succeed, got %v", err)
	}
}

func TestNew_FileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type: "file",
			File: config.FileConfig{Path: path},
		},
	}

	kv, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fs, ok := kv.(*file.Store)
	if !ok {
		t.Fatalf("expected *file.Store, got %T", kv)
	}
	if fs.Path() != path {
		t.Errorf("Path() = %q, want %q", fs.Path(), path)
	}
}

func TestNew_UnsupportedType(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type: "sqlite",
		},
	}

	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Type:  "redis",
			Redis: config.RedisConfig{Address: "127.0.0.1:1"},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := New(ctx, cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unreachable Redis")
	}
}

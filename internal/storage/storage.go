// Package storage provides the key-value store the widget persists carts to.
package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"storefront-cart/internal/config"
)

// KV is a string key-value store. Get returns domain.ErrNotFound for absent keys.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is a KV that owns a connection.
type Backend interface {
	KV
	io.Closer
}

// Open builds the backend selected in cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.StorageMemory:
		b = NewMemory()
	case config.StorageSQLite:
		b, err = OpenSQLite(ctx, cfg.Path)
	case config.StoragePostgres:
		b, err = OpenPostgres(ctx, cfg.PostgresDSN)
	case config.StorageMongo:
		b, err = OpenMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Backend, err)
	}
	logger.Info("storage opened", zap.String("backend", cfg.Backend))
	if cfg.KeyNamespace != "" {
		return namespacedBackend{Namespaced: Namespaced{kv: b, prefix: cfg.KeyNamespace}, closer: b}, nil
	}
	return b, nil
}

// Namespaced prefixes every key so several visitors can share one backend.
type Namespaced struct {
	kv     KV
	prefix string
}

// WithNamespace scopes kv under prefix.
func WithNamespace(kv KV, prefix string) Namespaced {
	return Namespaced{kv: kv, prefix: prefix}
}

func (n Namespaced) key(k string) string {
	return n.prefix + ":" + k
}

func (n Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.kv.Get(ctx, n.key(key))
}

func (n Namespaced) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.key(key), value)
}

func (n Namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.key(key))
}

type namespacedBackend struct {
	Namespaced
	closer io.Closer
}

func (n namespacedBackend) Close() error {
	return n.closer.Close()
}

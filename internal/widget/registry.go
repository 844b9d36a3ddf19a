package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

// Factory builds a session for a visitor. The registry starts it.
type Factory func(visitorID string) (*Session, error)

// Registry keeps one live session per visitor and closes sessions that have
// been idle longer than the TTL.
type Registry struct {
	factory Factory
	logger  *zap.Logger

	mu       sync.Mutex
	sessions *ttlcache.Cache[string, *Session]
	running  bool
}

func NewRegistry(factory Factory, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := ttlcache.New[string, *Session](ttlcache.WithTTL[string, *Session](ttl))
	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		logger.Debug("closing widget session", zap.String("visitor_id", item.Key()), zap.Int("reason", int(reason)))
		item.Value().Close()
	})
	return &Registry{factory: factory, logger: logger, sessions: cache}
}

// NewVisitorID returns a fresh random visitor id.
func NewVisitorID() string {
	return uuid.NewString()
}

// ValidVisitorID reports whether id looks like one NewVisitorID produced.
func ValidVisitorID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Start runs expiry until Close.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	go r.sessions.Start()
}

// Session returns the visitor's session, creating and starting it on first
// use. Each call extends the session's idle deadline.
func (r *Registry) Session(ctx context.Context, visitorID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.sessions.Get(visitorID); item != nil {
		return item.Value(), nil
	}
	r.sessions.DeleteExpired()
	s, err := r.factory(visitorID)
	if err != nil {
		return nil, fmt.Errorf("widget: new session: %w", err)
	}
	s.Start(ctx)
	r.sessions.Set(visitorID, s, ttlcache.DefaultTTL)
	r.logger.Info("widget session started", zap.String("visitor_id", visitorID))
	return s, nil
}

// Each calls fn for every live session.
func (r *Registry) Each(fn func(visitorID string, s *Session)) {
	for key, item := range r.sessions.Items() {
		fn(key, item.Value())
	}
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close stops expiry and closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.sessions.Stop()
		r.running = false
	}
	for _, item := range r.sessions.Items() {
		item.Value().Close()
	}
	r.sessions.DeleteAll()
}

// Package catalog keeps the last fetched stock snapshot.
package catalog

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront-cart/internal/domain"
)

const defaultRefreshTimeout = 15 * time.Second

// Fetcher loads the full product list from the storefront.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]domain.StockEntry, error)
}

// Service is the catalog cache. Reads never block on a refresh in flight.
type Service struct {
	fetcher Fetcher
	logger  *zap.Logger
	timeout time.Duration

	group singleflight.Group
	wg    sync.WaitGroup

	mu        sync.RWMutex
	entries   map[domain.ProductID]domain.StockEntry
	loaded    bool
	started   uint64
	applied   uint64
	onRefresh []func()
	closed    bool
}

func New(fetcher Fetcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		logger:  logger,
		timeout: defaultRefreshTimeout,
		entries: map[domain.ProductID]domain.StockEntry{},
	}
}

// OnRefresh registers fn to run after each applied refresh.
func (s *Service) OnRefresh(fn func()) {
	s.mu.Lock()
	s.onRefresh = append(s.onRefresh, fn)
	s.mu.Unlock()
}

// Refresh fetches the catalog and replaces the snapshot wholesale. On failure
// the old snapshot is kept; the error is returned for logging only.
// Concurrent calls share one fetch.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *Service) refresh(ctx context.Context) error {
	s.mu.Lock()
	s.started++
	gen := s.started
	s.mu.Unlock()

	entries, err := s.fetcher.FetchCatalog(ctx)
	if err != nil {
		s.logger.Warn("catalog refresh failed, keeping previous snapshot", zap.Error(err))
		return &domain.TransportError{Op: "refresh catalog", Err: err}
	}

	next := make(map[domain.ProductID]domain.StockEntry, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		next[e.ID] = e
	}

	s.mu.Lock()
	if gen < s.applied {
		s.mu.Unlock()
		s.logger.Debug("discarding stale catalog response", zap.Uint64("generation", gen))
		return nil
	}
	s.entries = next
	s.loaded = true
	s.applied = gen
	hooks := append([]func(){}, s.onRefresh...)
	s.mu.Unlock()

	s.logger.Info("catalog refreshed", zap.Int("products", len(next)), zap.Uint64("generation", gen))
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// RequestRefresh starts a background refresh and returns immediately.
func (s *Service) RequestRefresh() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.Refresh(ctx)
	}()
}

// Close stops accepting background refreshes and waits for those in flight.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// Get looks up id in the current snapshot.
func (s *Service) Get(id domain.ProductID) (domain.StockEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// IsInStock reports stock > 0; unknown products are out of stock.
func (s *Service) IsInStock(id domain.ProductID) bool {
	e, ok := s.Get(id)
	return ok && e.Stock > 0
}

// Loaded reports whether any refresh has succeeded.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Entries returns the snapshot ordered by id, numeric ids numerically.
func (s *Service) Entries() []domain.StockEntry {
	s.mu.RLock()
	out := make([]domain.StockEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

func lessID(a, b domain.ProductID) bool {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

// Package widget ties one visitor's cart, catalog snapshot, shipping quote and
// product indicators together behind a single owner.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/cart"
	"storefront-cart/internal/service/catalog"
	"storefront-cart/internal/service/checkout"
	"storefront-cart/internal/service/indicator"
	"storefront-cart/internal/service/shipping"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("widget: session closed")

// Store is the key-value store the cart is persisted to.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Upstream is the storefront the session talks to.
type Upstream interface {
	catalog.Fetcher
	shipping.Quoter
}

// Options tunes a session.
type Options struct {
	JustAddedFor time.Duration
}

// Session is safe for concurrent use. Mutations are serialized by mu; network
// calls run without it.
type Session struct {
	logger *zap.Logger

	mu         sync.Mutex
	cart       *cart.Service
	catalog    *catalog.Service
	quote      *shipping.Flow
	indicators *indicator.Tracker
	started    bool
	closed     bool
}

func NewSession(store Store, upstream Upstream, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := catalog.New(upstream, logger.Named("catalog"))
	s := &Session{
		logger:     logger,
		catalog:    cat,
		quote:      shipping.NewFlow(upstream, logger.Named("shipping")),
		indicators: indicator.NewTracker(cat, opts.JustAddedFor),
	}
	s.cart = cart.New(store, cat, logger.Named("cart"))
	s.cart.Subscribe(s.onCartEvent)
	return s
}

func (s *Session) onCartEvent(ev cart.Event) {
	if ev.Kind == cart.EventItemAdded {
		s.indicators.MarkAdded(ev.ProductID)
	}
	s.logger.Debug("cart changed",
		zap.Stringer("kind", ev.Kind),
		zap.String("product_id", ev.ProductID.String()),
		zap.Int("lines", len(ev.Items)),
	)
}

// Start restores the stored cart and fires the first catalog refresh without
// waiting for it.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.cart.Restore(ctx)
	s.indicators.Start()
	s.catalog.RequestRefresh()
}

// Close waits for a background refresh in flight and releases the session.
// It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	s.quote.Reset()
	s.catalog.Close()
	if started {
		s.indicators.Stop()
	}
}

// AddItem adds qty units of a product to the cart.
func (s *Session) AddItem(ctx context.Context, id domain.ProductID, name string, unitPrice float64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.cart.AddItem(ctx, id, name, unitPrice, qty)
}

// RemoveItem deletes the cart line at index.
func (s *Session) RemoveItem(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.cart.RemoveItem(ctx, index)
}

// RefreshCatalog refreshes the stock snapshot and waits for the result.
func (s *Session) RefreshCatalog(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.catalog.Refresh(ctx)
}

// RequestRefresh refreshes the stock snapshot in the background.
func (s *Session) RequestRefresh() {
	s.catalog.RequestRefresh()
}

// RequestQuote asks for shipping rates for the current cart.
func (s *Session) RequestQuote(ctx context.Context, postalCode string) (shipping.Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shipping.Snapshot{}, ErrClosed
	}
	items := s.cart.Items()
	s.mu.Unlock()
	return s.quote.RequestQuote(ctx, postalCode, items)
}

// SelectShipping selects option index of the current quote and returns the
// new grand total.
func (s *Session) SelectShipping(index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	sel, err := s.quote.SelectIndex(index)
	if err != nil {
		return 0, err
	}
	return s.cart.TotalWithShipping(sel.Price), nil
}

// Handoff is the cart plus the selected shipping for checkout.
func (s *Session) Handoff() checkout.Handoff {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sel *domain.ShippingSelection
	if cur, ok := s.quote.Selection(); ok {
		sel = &cur
	}
	return checkout.New(s.cart.Items(), sel)
}

// ReadModel builds everything a view needs to draw the widget.
func (s *Session) ReadModel() ReadModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildReadModel(s.cart, s.catalog, s.indicators, s.quote.Snapshot())
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

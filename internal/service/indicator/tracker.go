// Package indicator tracks the transient per-product state shown on "add"
// buttons, kept apart from the cart itself.
package indicator

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"storefront-cart/internal/domain"
)

// DefaultJustAddedFor is how long the "added" feedback lasts.
const DefaultJustAddedFor = time.Second

// State of a product's add affordance.
type State int

const (
	Normal State = iota
	OutOfStock
	JustAdded
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case OutOfStock:
		return "out_of_stock"
	case JustAdded:
		return "just_added"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Normal, OutOfStock, JustAdded} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("indicator: unknown state %q", b)
}

// Disabled reports whether the add affordance should be disabled.
func (s State) Disabled() bool {
	return s == OutOfStock
}

type stockLookup interface {
	Get(id domain.ProductID) (domain.StockEntry, bool)
}

// Tracker derives a product's state on read: a live JustAdded mark wins,
// otherwise the catalog decides. A catalog refresh therefore never overrides
// the feedback while it lasts.
type Tracker struct {
	stock     stockLookup
	justAdded *ttlcache.Cache[domain.ProductID, struct{}]
}

// NewTracker builds a tracker whose marks expire after ttl.
func NewTracker(stock stockLookup, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultJustAddedFor
	}
	cache := ttlcache.New[domain.ProductID, struct{}](
		ttlcache.WithTTL[domain.ProductID, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[domain.ProductID, struct{}](),
	)
	return &Tracker{stock: stock, justAdded: cache}
}

// Start runs expired-mark cleanup until Stop.
func (t *Tracker) Start() {
	go t.justAdded.Start()
}

func (t *Tracker) Stop() {
	t.justAdded.Stop()
}

// MarkAdded starts (or restarts) the JustAdded window for id.
func (t *Tracker) MarkAdded(id domain.ProductID) {
	t.justAdded.Set(id, struct{}{}, ttlcache.DefaultTTL)
}

// State returns the current state for id.
func (t *Tracker) State(id domain.ProductID) State {
	if item := t.justAdded.Get(id); item != nil && !item.IsExpired() {
		return JustAdded
	}
	if entry, ok := t.stock.Get(id); ok && entry.Stock <= 0 {
		return OutOfStock
	}
	return Normal
}

// States returns the state of each given product.
func (t *Tracker) States(ids []domain.ProductID) map[domain.ProductID]State {
	out := make(map[domain.ProductID]State, len(ids))
	for _, id := range ids {
		out[id] = t.State(id)
	}
	return out
}

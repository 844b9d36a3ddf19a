package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront-cart/internal/domain"
)

// StorageKey is the key the cart snapshot is stored under.
const StorageKey = "carrito"

// EventKind tells listeners what changed.
type EventKind int

const (
	EventRestored EventKind = iota
	EventItemAdded
	EventItemRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventRestored:
		return "restored"
	case EventItemAdded:
		return "item_added"
	case EventItemRemoved:
		return "item_removed"
	default:
		return "unknown"
	}
}

// Event is emitted after every successful mutation, once it is persisted.
type Event struct {
	Kind      EventKind
	ProductID domain.ProductID
	Index     int
	Quantity  int
	Items     []domain.LineItem
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type catalog interface {
	Get(id domain.ProductID) (domain.StockEntry, bool)
	RequestRefresh()
}

// Service is the cart store: an ordered list of line items validated against
// the catalog snapshot and persisted on every change. It is not safe for
// concurrent use; the owning session serializes access.
type Service struct {
	kv        kvStore
	catalog   catalog
	logger    *zap.Logger
	items     []domain.LineItem
	listeners []func(Event)
}

func New(kv kvStore, catalog catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{kv: kv, catalog: catalog, logger: logger, items: []domain.LineItem{}}
}

// Subscribe registers fn for every future event.
func (s *Service) Subscribe(fn func(Event)) {
	s.listeners = append(s.listeners, fn)
}

// Restore loads the stored snapshot. A missing, unreadable or malformed value
// yields an empty cart.
func (s *Service) Restore(ctx context.Context) {
	s.items = s.load(ctx)
	s.emit(Event{Kind: EventRestored, Index: -1})
}

func (s *Service) load(ctx context.Context) []domain.LineItem {
	raw, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("read stored cart failed, starting empty", zap.Error(err))
		}
		return []domain.LineItem{}
	}
	items, err := Decode([]byte(raw))
	if err != nil {
		s.logger.Warn("stored cart is malformed, starting empty", zap.Error(err))
		return []domain.LineItem{}
	}
	return items
}

// AddItem adds requestedQty units of a product, merging with an existing line.
func (s *Service) AddItem(ctx context.Context, id domain.ProductID, name string, unitPrice float64, requestedQty int) error {
	id = domain.ProductID(strings.TrimSpace(string(id)))
	if id == "" {
		return domain.NewValidationError("id", "product id required")
	}
	if requestedQty < 1 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	if unitPrice < 0 {
		return domain.NewValidationError("unitPrice", "price must not be negative")
	}

	entry, ok := s.catalog.Get(id)
	if !ok {
		s.catalog.RequestRefresh()
		return &domain.StaleCatalogError{ProductID: id}
	}
	if entry.Stock <= 0 {
		return domain.NewValidationError("quantity", "product is out of stock")
	}

	idx := s.indexOf(id)
	existing := 0
	if idx >= 0 {
		existing = s.items[idx].Quantity
	}
	if existing+requestedQty > entry.Stock {
		return domain.NewValidationError("quantity",
			fmt.Sprintf("only %d available, %d already in cart", entry.Stock, existing))
	}

	prev := s.snapshot()
	if idx >= 0 {
		s.items[idx].Quantity += requestedQty
	} else {
		s.items = append(s.items, domain.LineItem{ID: id, Name: name, UnitPrice: unitPrice, Quantity: requestedQty})
		idx = len(s.items) - 1
	}
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return err
	}
	s.emit(Event{Kind: EventItemAdded, ProductID: id, Index: idx, Quantity: s.items[idx].Quantity})
	return nil
}

// RemoveItem deletes the line at index. Out-of-range indexes are ignored.
// Later lines shift down by one, so callers must re-read indexes afterwards.
func (s *Service) RemoveItem(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.items) {
		return nil
	}
	prev := s.snapshot()
	removed := s.items[index]
	s.items = append(s.items[:index], s.items[index+1:]...)
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return err
	}
	s.emit(Event{Kind: EventItemRemoved, ProductID: removed.ID, Index: index})
	return nil
}

// Items returns a copy of the lines in insertion order.
func (s *Service) Items() []domain.LineItem {
	return s.snapshot()
}

// Len is the number of lines.
func (s *Service) Len() int {
	return len(s.items)
}

// QuantityOf is the quantity in cart for id, 0 when absent.
func (s *Service) QuantityOf(id domain.ProductID) int {
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx].Quantity
	}
	return 0
}

// TotalItemCount is the sum of quantities, shown on the badge.
func (s *Service) TotalItemCount() int {
	return domain.CartQuantity(s.items)
}

// Subtotal is the sum of unit price times quantity.
func (s *Service) Subtotal() float64 {
	return domain.CartSubtotal(s.items)
}

// TotalWithShipping adds a shipping cost to the subtotal.
func (s *Service) TotalWithShipping(shippingCost float64) float64 {
	return s.Subtotal() + shippingCost
}

// Serialize encodes the cart as stored.
func (s *Service) Serialize() ([]byte, error) {
	return Encode(s.items)
}

func (s *Service) persist(ctx context.Context) error {
	raw, err := s.Serialize()
	if err != nil {
		return &domain.TransportError{Op: "encode cart", Err: err}
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		s.logger.Error("persist cart failed", zap.Error(err))
		return &domain.TransportError{Op: "persist cart", Err: err}
	}
	return nil
}

func (s *Service) emit(ev Event) {
	ev.Items = s.snapshot()
	for _, fn := range s.listeners {
		fn(ev)
	}
}

func (s *Service) indexOf(id domain.ProductID) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) snapshot() []domain.LineItem {
	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Encode serializes lines; an empty cart encodes as [] rather than null.
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}

// Decode parses a stored cart. Lines without an id or with a quantity below
// one are dropped and repeated ids are merged into the first occurrence.
func Decode(raw []byte) ([]domain.LineItem, error) {
	var decoded []domain.LineItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, 0, len(decoded))
	pos := make(map[domain.ProductID]int, len(decoded))
	for _, item := range decoded {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if i, ok := pos[item.ID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		pos[item.ID] = len(items)
		items = append(items, item)
	}
	return items, nil
}

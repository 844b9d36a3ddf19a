// Package shipping runs the shipping quote flow: one current quote request,
// its options, and the selected option folded into the order total.
package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/domain"
)

// MinPostalCodeLen is the shortest postal code accepted before calling out.
const MinPostalCodeLen = 4

const (
	MsgConnection = "could not reach the shipping service, please try again"
	MsgRejected   = "shipping could not be quoted for this postal code"
	MsgNoOptions  = "no shipping options for this postal code"
	DefaultETA    = "to be confirmed"
)

// State of the flow.
type State int

const (
	Idle State = iota
	Quoting
	Quoted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Quoting:
		return "quoting"
	case Quoted:
		return "quoted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Idle, Quoting, Quoted, Failed} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("shipping: unknown state %q", b)
}

// Quoter asks the carrier for rates.
type Quoter interface {
	Rates(ctx context.Context, in storefront.RatesRequest) (*storefront.RatesResponse, error)
}

// Snapshot is a copy of the flow state for rendering.
type Snapshot struct {
	State      State                     `json:"state"`
	PostalCode string                    `json:"postalCode,omitempty"`
	Message    string                    `json:"message,omitempty"`
	Options    []domain.ShippingOption   `json:"options"`
	Selection  *domain.ShippingSelection `json:"selection,omitempty"`
}

// Flow is safe for concurrent use. Each request bumps a generation; a
// response is applied only if its generation is still current.
type Flow struct {
	quoter Quoter
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	postalCode string
	message    string
	options    []domain.ShippingOption
	selection  *domain.ShippingSelection
}

func NewFlow(quoter Quoter, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{quoter: quoter, logger: logger}
}

// RequestQuote validates the postal code, then asks for rates for items.
// It returns domain.ErrSuperseded when a newer request started meanwhile.
func (f *Flow) RequestQuote(ctx context.Context, postalCode string, items []domain.LineItem) (Snapshot, error) {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode == "" {
		return f.Snapshot(), domain.NewValidationError("postalCode", "postal code required")
	}
	if len([]rune(postalCode)) < MinPostalCodeLen {
		return f.Snapshot(), domain.NewValidationError("postalCode",
			fmt.Sprintf("postal code must have at least %d characters", MinPostalCodeLen))
	}

	f.mu.Lock()
	f.generation++
	gen := f.generation
	f.state = Quoting
	f.postalCode = postalCode
	f.message = ""
	f.options = nil
	f.selection = nil
	f.mu.Unlock()

	cart := make([]domain.LineItem, len(items))
	copy(cart, items)
	resp, err := f.quoter.Rates(ctx, storefront.RatesRequest{PostalCode: postalCode, Cart: cart})

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		f.logger.Debug("discarding superseded quote", zap.Uint64("generation", gen), zap.Uint64("current", f.generation))
		return f.snapshotLocked(), domain.ErrSuperseded
	}

	switch {
	case err != nil:
		f.logger.Warn("shipping quote failed", zap.String("postal_code", postalCode), zap.Error(err))
		f.state = Failed
		f.message = MsgConnection
		return f.snapshotLocked(), &domain.TransportError{Op: "quote shipping", Err: err}
	case resp == nil || !resp.OK:
		f.state = Failed
		f.message = MsgRejected
		if resp != nil && strings.TrimSpace(resp.Error) != "" {
			f.message = resp.Error
		}
		f.logger.Info("shipping quote rejected", zap.String("postal_code", postalCode), zap.String("reason", f.message))
		return f.snapshotLocked(), nil
	}

	f.options = make([]domain.ShippingOption, 0, len(resp.Rates))
	for _, raw := range resp.Rates {
		f.options = append(f.options, NormalizeRate(raw))
	}
	f.state = Quoted
	if len(f.options) == 0 {
		f.message = MsgNoOptions
	}
	f.logger.Info("shipping quoted", zap.String("postal_code", postalCode), zap.Int("options", len(f.options)))
	return f.snapshotLocked(), nil
}

// SelectOption records opt as the only active selection.
func (f *Flow) SelectOption(opt domain.ShippingOption) (domain.ShippingSelection, error) {
	if opt.Price < 0 {
		return domain.ShippingSelection{}, domain.NewValidationError("price", "shipping price must not be negative")
	}
	sel := opt.Selection()
	f.mu.Lock()
	f.selection = &sel
	f.mu.Unlock()
	return sel, nil
}

// SelectIndex selects one of the current quote's options.
func (f *Flow) SelectIndex(index int) (domain.ShippingSelection, error) {
	f.mu.Lock()
	if f.state != Quoted {
		f.mu.Unlock()
		return domain.ShippingSelection{}, domain.NewValidationError("option", "no shipping quote to choose from")
	}
	if index < 0 || index >= len(f.options) {
		f.mu.Unlock()
		return domain.ShippingSelection{}, domain.NewValidationError("option", "unknown shipping option")
	}
	opt := f.options[index]
	f.mu.Unlock()
	return f.SelectOption(opt)
}

// ClearSelection drops the active selection.
func (f *Flow) ClearSelection() {
	f.mu.Lock()
	f.selection = nil
	f.mu.Unlock()
}

// Selection returns the active selection, if any.
func (f *Flow) Selection() (domain.ShippingSelection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selection == nil {
		return domain.ShippingSelection{}, false
	}
	return *f.selection, true
}

// SelectedPrice is the selected option's price, 0 without a selection.
func (f *Flow) SelectedPrice() float64 {
	sel, ok := f.Selection()
	if !ok {
		return 0
	}
	return sel.Price
}

// Reset returns the flow to Idle and invalidates any request in flight.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.generation++
	f.state = Idle
	f.postalCode = ""
	f.message = ""
	f.options = nil
	f.selection = nil
	f.mu.Unlock()
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      f.state,
		PostalCode: f.postalCode,
		Message:    f.message,
		Options:    append([]domain.ShippingOption{}, f.options...),
	}
	if f.selection != nil {
		sel := *f.selection
		snap.Selection = &sel
	}
	return snap
}

// NormalizeRate turns one loosely typed carrier rate into an option.
// Price comes from totalPrice, then price, then 0.
func NormalizeRate(raw map[string]any) domain.ShippingOption {
	serviceType := stringField(raw, "serviceType")
	price, ok := numberField(raw, "totalPrice")
	if !ok {
		price, _ = numberField(raw, "price")
	}
	if price < 0 {
		price = 0
	}
	eta := stringField(raw, "deliveryTime")
	if eta == "" {
		eta = DefaultETA
	}
	return domain.ShippingOption{
		ServiceType: serviceType,
		Label:       ServiceLabel(serviceType),
		Price:       price,
		ETA:         eta,
	}
}

// ServiceLabel names a carrier service type.
func ServiceLabel(serviceType string) string {
	switch strings.ToUpper(serviceType) {
	case "D":
		return "Home delivery"
	case "S":
		return "Branch pickup"
	case "":
		return "Shipping"
	default:
		return serviceType
	}
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// numberField reads a finite number; NaN and infinities count as absent.
func numberField(raw map[string]any, key string) (float64, bool) {
	var (
		f  float64
		ok bool
	)
	switch v := raw[key].(type) {
	case float64:
		f, ok = v, true
	case int:
		f, ok = float64(v), true
	case int64:
		f, ok = float64(v), true
	case json.Number:
		n, err := v.Float64()
		f, ok = n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		f, ok = n, err == nil
	}
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsSuperseded reports whether err marks a discarded response.
func IsSuperseded(err error) bool {
	return errors.Is(err, domain.ErrSuperseded)
}

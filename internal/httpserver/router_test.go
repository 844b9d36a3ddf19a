package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/domain"
	"storefront-cart/internal/service/checkout"
	ordersvc "storefront-cart/internal/service/order"
	"storefront-cart/internal/widget"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubProducts struct {
	products []domain.Product
	err      error
}

func (s stubProducts) ListActive(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

type stubShippingTypes struct {
	types []domain.ShippingType
}

func (s stubShippingTypes) ListActive(context.Context) ([]domain.ShippingType, error) {
	return s.types, nil
}

type stubRates struct {
	resp storefront.RatesResponse
	err  error
	got  storefront.RatesRequest
}

func (s *stubRates) Quote(_ context.Context, in storefront.RatesRequest) (storefront.RatesResponse, error) {
	s.got = in
	return s.resp, s.err
}

type stubOrders struct {
	customer ordersvc.Customer
	handoff  checkout.Handoff
	err      error
}

func (s *stubOrders) Checkout(_ context.Context, c ordersvc.Customer, h checkout.Handoff) (*domain.Order, error) {
	s.customer, s.handoff = c, h
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Order{ID: 42, CustomerName: c.Name, Total: h.Total()}, nil
}

func (s *stubOrders) Get(_ context.Context, id int64) (*domain.Order, error) {
	if id != 42 {
		return nil, domain.ErrNotFound
	}
	return &domain.Order{ID: 42}, nil
}

func testRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if deps.Products == nil {
		deps.Products = stubProducts{}
	}
	if deps.ShippingTypes == nil {
		deps.ShippingTypes = stubShippingTypes{}
	}
	if deps.Rates == nil {
		deps.Rates = &stubRates{}
	}
	if deps.Orders == nil {
		deps.Orders = &stubOrders{}
	}
	return BuildRouter(nil, deps)
}

func TestHealthAndReady(t *testing.T) {
	router := testRouter(Deps{DB: stubPinger{}})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	router = testRouter(Deps{DB: stubPinger{err: errors.New("down")}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when db is down, got %d", rec.Code)
	}
}

func TestListProducts(t *testing.T) {
	router := testRouter(Deps{Products: stubProducts{products: []domain.Product{
		{ID: 1, Name: "Gorra", Stock: 3, Price: 1500, Photos: []string{}},
	}}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var entries []domain.StockEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("catalog payload should decode as stock entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "1" || entries[0].Stock != 3 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !strings.Contains(rec.Body.String(), `"id":1`) {
		t.Fatalf("ids should be numbers: %s", rec.Body.String())
	}
}

func TestListProductsError(t *testing.T) {
	router := testRouter(Deps{Products: stubProducts{err: errors.New("db down")}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/productos", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal errors must not leak: %s", rec.Body.String())
	}
}

func TestRatesHandler(t *testing.T) {
	rates := &stubRates{resp: storefront.RatesResponse{OK: true, Rates: []map[string]any{{"totalPrice": 500.0}}}}
	router := testRouter(Deps{Rates: rates})

	body := `{"postalCodeDestination":"1000","carrito":[{"id":1,"nombre":"Gorra","precio":10,"cantidad":2}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/micorreo/rates", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if rates.got.PostalCode != "1000" || len(rates.got.Cart) != 1 || rates.got.Cart[0].Quantity != 2 {
		t.Fatalf("unexpected request %+v", rates.got)
	}

	rates.resp = storefront.RatesResponse{OK: false, Error: "invalid postal code"}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/micorreo/rates", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"ok":false`) {
		t.Fatalf("expected 400 envelope, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/micorreo/rates", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestCheckoutHandler(t *testing.T) {
	orders := &stubOrders{}
	router := testRouter(Deps{Orders: orders})

	form := url.Values{}
	form.Set("nombre", "Ana")
	form.Set("email", "ana@example.com")
	form.Set(checkout.FieldCart, `[{"id":1,"nombre":"Gorra","precio":100,"cantidad":2}]`)
	form.Set(checkout.FieldShippingType, "D")
	form.Set(checkout.FieldShippingName, "Home delivery")
	form.Set(checkout.FieldShippingPrice, "50")
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if orders.customer.Name != "Ana" || orders.handoff.Total() != 250 {
		t.Fatalf("unexpected checkout input %+v %+v", orders.customer, orders.handoff)
	}
}

func TestCheckoutHandlerValidation(t *testing.T) {
	orders := &stubOrders{err: domain.NewValidationError("cantidad", "insufficient stock")}
	router := testRouter(Deps{Orders: orders})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader("nombre=Ana"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"cantidad"`) {
		t.Fatalf("expected field in body: %s", rec.Body.String())
	}
}

func TestGetOrder(t *testing.T) {
	router := testRouter(Deps{})
	for path, want := range map[string]int{
		"/api/pedidos/42":  http.StatusOK,
		"/api/pedidos/7":   http.StatusNotFound,
		"/api/pedidos/abc": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rec.Code)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("q", "bad"), http.StatusUnprocessableEntity},
		{&domain.StaleCatalogError{ProductID: "1"}, http.StatusConflict},
		{domain.ErrSuperseded, http.StatusConflict},
		{&domain.TransportError{Op: "x", Err: errors.New("y")}, http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{widget.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

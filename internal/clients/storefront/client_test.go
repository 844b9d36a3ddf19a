package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"storefront-cart/internal/config"
	"storefront-cart/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.UpstreamConfig{BaseURL: srv.URL + "/"})
}

func TestFetchCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/productos" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1,"nombre":"Gorra","stock":3,"precio":1500,"extra":"ignored"},{"id":"p2","stock":0}]`)
	})

	entries, err := c.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "1" || entries[0].Stock != 3 || entries[0].Name != "Gorra" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ID != "p2" || entries[1].Stock != 0 {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestFetchCatalogErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{not json`)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			if _, err := c.FetchCatalog(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRatesSendsCartAndPostalCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/micorreo/rates" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if string(body["postalCodeDestination"]) != `"1000"` {
			t.Errorf("unexpected postal code %s", body["postalCodeDestination"])
		}
		if string(body["carrito"]) != `[{"id":1,"nombre":"Gorra","precio":100,"cantidad":2}]` {
			t.Errorf("unexpected cart %s", body["carrito"])
		}
		_, _ = io.WriteString(w, `{"ok":true,"rates":[{"totalPrice":500,"serviceType":"D","deliveryTime":"3 days"}]}`)
	})

	resp, err := c.Rates(context.Background(), RatesRequest{
		PostalCode: "1000",
		Cart:       []domain.LineItem{{ID: "1", Name: "Gorra", UnitPrice: 100, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if !resp.OK || len(resp.Rates) != 1 || resp.Rates[0]["serviceType"] != "D" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRatesErrorPayloadOnBadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error":"zone"}`)
	})
	resp, err := c.Rates(context.Background(), RatesRequest{PostalCode: "1000"})
	if err != nil {
		t.Fatalf("expected error payload as response, got %v", err)
	}
	if resp.OK || resp.Error != "zone" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRatesRejectionWithoutMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false}`)
	})
	resp, err := c.Rates(context.Background(), RatesRequest{PostalCode: "1000"})
	if err != nil {
		t.Fatalf("expected rejection as response, got %v", err)
	}
	if resp.OK || resp.Error != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRatesServerErrorWithoutPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway", http.StatusBadGateway)
	})
	if _, err := c.Rates(context.Background(), RatesRequest{PostalCode: "1000"}); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestSubmitCheckout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/checkout" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("carrito_data") != `[{"id":1}]` || r.PostForm.Get("email") != "ana@example.com" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":42,"estado":"Pendiente","total":700}`)
	})
	form := url.Values{"carrito_data": {`[{"id":1}]`}, "email": {"ana@example.com"}}
	placed, err := c.SubmitCheckout(context.Background(), form)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if placed.ID != 42 || placed.Status != "Pendiente" || placed.Total != 700 {
		t.Fatalf("unexpected order %+v", placed)
	}
}

func TestSubmitCheckoutValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"invalid email","field":"email"}`)
	})
	_, err := c.SubmitCheckout(context.Background(), url.Values{})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Fatalf("expected validation error on email, got %v", err)
	}
}

func TestSubmitCheckoutServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"stock changed"}`)
	})
	_, err := c.SubmitCheckout(context.Background(), url.Values{})
	if err == nil || domain.IsValidation(err) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

// Package storefront is the HTTP client for the storefront API the widget
// talks to: the product catalog, shipping rates and checkout.
package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"storefront-cart/internal/config"
	"storefront-cart/internal/domain"
)

const (
	catalogPath  = "/api/productos"
	ratesPath    = "/api/micorreo/rates"
	checkoutPath = "/api/checkout"
)

// ratesError is a rates error payload; OK is a pointer so an explicit
// {"ok":false} is told apart from an unrelated body.
type ratesError struct {
	OK    *bool  `json:"ok"`
	Error string `json:"error"`
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// RatesRequest is the body of a shipping quote request.
type RatesRequest struct {
	PostalCode string            `json:"postalCodeDestination"`
	Cart       []domain.LineItem `json:"carrito"`
}

// RatesResponse is decoded loosely: the carrier schema is not stable, so each
// rate is kept as a generic map and normalized by the caller.
type RatesResponse struct {
	OK    bool             `json:"ok"`
	Rates []map[string]any `json:"rates,omitempty"`
	Error string           `json:"error,omitempty"`
}

// Client is a resty-backed storefront API client.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a client against cfg.BaseURL.
func NewClient(cfg config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Client{httpClient: rc}
}

// FetchCatalog returns the full product list. Non-2xx statuses and malformed
// bodies are errors.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.StockEntry, error) {
	var entries []domain.StockEntry
	resp, err := c.httpClient.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&entries).
		Get(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode())
	}
	if !json200(resp) {
		return nil, fmt.Errorf("fetch catalog: empty body")
	}
	return entries, nil
}

// Rates requests shipping options for a cart. An error payload such as
// {"ok":false,"error":"..."} is returned as a response even on 4xx/5xx.
func (c *Client) Rates(ctx context.Context, in RatesRequest) (*RatesResponse, error) {
	if in.Cart == nil {
		in.Cart = []domain.LineItem{}
	}
	result := new(RatesResponse)
	apiErr := new(ratesError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		ForceContentType("application/json").
		SetBody(in).
		SetResult(result).
		SetError(apiErr).
		Post(ratesPath)
	if err != nil {
		return nil, fmt.Errorf("request rates: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		if apiErr.OK != nil || apiErr.Error != "" {
			return &RatesResponse{OK: false, Error: apiErr.Error}, nil
		}
		return nil, fmt.Errorf("request rates: unexpected status %d", resp.StatusCode())
	}
	if !json200(resp) {
		return nil, fmt.Errorf("request rates: empty body")
	}
	return result, nil
}

// SubmitCheckout posts a checkout form and returns the placed order. A 422
// answer comes back as a domain.ValidationError.
func (c *Client) SubmitCheckout(ctx context.Context, form url.Values) (*domain.Order, error) {
	placed := new(domain.Order)
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		ForceContentType("application/json").
		SetResult(placed).
		SetError(apiErr).
		Post(checkoutPath)
	if err != nil {
		return nil, &domain.TransportError{Op: "submit checkout", Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusUnprocessableEntity:
		return nil, domain.NewValidationError(apiErr.Field, apiErr.Error)
	case resp.IsError():
		msg := apiErr.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, fmt.Errorf("submit checkout: status %d: %s", resp.StatusCode(), msg)
	}
	return placed, nil
}

func json200(resp *resty.Response) bool {
	return len(strings.TrimSpace(string(resp.Body()))) > 0
}

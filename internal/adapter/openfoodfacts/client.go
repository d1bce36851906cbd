// Package openfoodfacts queries the Open Food Facts product search for
// products sold in a given country.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"foodtracker/internal/domain"
	"foodtracker/internal/metrics"
)

// Errors returned by Search.
var (
	ErrUnexpectedStatus = errors.New("openfoodfacts: unexpected status")
	ErrRateLimited      = errors.New("openfoodfacts: rate limit wait exceeded deadline")
)

// Defaults applied to empty Config fields.
const (
	DefaultBaseURL   = "https://no.openfoodfacts.org/cgi/search.pl"
	DefaultCountry   = "norway"
	DefaultUserAgent = "FoodNutrientApp - Python - Version 1.0 - https://example.com"
	DefaultTimeout   = 10 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Country   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerMinute paces outgoing searches; 0 disables pacing.
	RequestsPerMinute int
}

// Client implements domain.FoodDatabase.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *zap.Logger
}

var _ domain.FoodDatabase = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records lookup outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l.Named("openfoodfacts") }
}

// New creates a Client. Empty config fields take the package defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  zap.NewNop(),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), cfg.RequestsPerMinute)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Products []productJSON `json:"products"`
}

type productJSON struct {
	ProductName     any        `json:"product_name"`
	ProductQuantity any        `json:"product_quantity"`
	ImageURL        any        `json:"image_url"`
	Nutriments      nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal100g    any `json:"energy-kcal_100g"`
	Proteins100g      any `json:"proteins_100g"`
	Fat100g           any `json:"fat_100g"`
	Carbohydrates100g any `json:"carbohydrates_100g"`
}

// SearchURL builds the request URL for query.
func (c *Client) SearchURL(query string, pageSize int) string {
	q := url.Values{}
	q.Set("action", "process")
	q.Set("tagtype_0", "countries")
	q.Set("tag_contains_0", "contains")
	q.Set("tag_0", c.cfg.Country)
	q.Set("search_terms", query)
	q.Set("json", "true")
	q.Set("page_size", strconv.Itoa(pageSize))
	return c.cfg.BaseURL + "?" + q.Encode()
}

// Search runs one product search. Any non-200 response is an error wrapping
// ErrUnexpectedStatus.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]domain.ExternalProduct, error) {
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.ObserveLookup(metrics.OutcomeRateLimited, time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	products, err := c.search(ctx, query, pageSize)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, ErrUnexpectedStatus):
		c.metrics.ObserveLookup(metrics.OutcomeBadStatus, elapsed)
	case err != nil:
		c.metrics.ObserveLookup(metrics.OutcomeError, elapsed)
	default:
		c.metrics.ObserveLookup(metrics.OutcomeOK, elapsed)
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug("search done",
		zap.String("query", query),
		zap.Int("products", len(products)),
		zap.Duration("elapsed", elapsed),
	)
	return products, nil
}

func (c *Client) search(ctx context.Context, query string, pageSize int) ([]domain.ExternalProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(query, pageSize), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body searchResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("openfoodfacts: decode: %w", err)
	}

	out := make([]domain.ExternalProduct, 0, len(body.Products))
	for _, p := range body.Products {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (p productJSON) toDomain() domain.ExternalProduct {
	return domain.ExternalProduct{
		Name:              textOr(p.ProductName, domain.NotAvailable),
		Quantity:          p.ProductQuantity,
		ImageURL:          textOr(p.ImageURL, ""),
		EnergyKcal100g:    p.Nutriments.EnergyKcal100g,
		Proteins100g:      p.Nutriments.Proteins100g,
		Fat100g:           p.Nutriments.Fat100g,
		Carbohydrates100g: p.Nutriments.Carbohydrates100g,
	}
}

func textOr(v any, fallback string) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fallback
	}
}

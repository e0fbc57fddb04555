// Package wordpress publishes articles and product updates over the
// WordPress and WooCommerce REST APIs, authenticated with an application
// password.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/pipeline"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/resilience"
)

// Recorder logs outbound calls; the audit store satisfies it.
type Recorder interface {
	RecordAPICall(ctx context.Context, call audit.APICall) error
}

// Client talks to a WordPress site. It satisfies pipeline.Publisher and
// keywords.ProductSource.
type Client struct {
	http     *http.Client
	cfg      config.WordPressConfig
	breaker  *resilience.CircuitBreaker
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Client for the configured site.
func New(cfg config.WordPressConfig, recorder Recorder) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		breaker:  resilience.NewCircuitBreaker("wordpress", resilience.CircuitBreakerConfig{}),
		recorder: recorder,
		logger:   slog.Default().With("component", "wordpress"),
	}
}

// PublishArticle creates a published post and tags it with the generating
// keyword and product for later attribution.
func (c *Client) PublishArticle(ctx context.Context, article pipeline.Article) (pipeline.PublishedPost, error) {
	payload := map[string]any{
		"title":   article.Title,
		"content": article.Body,
		"status":  "publish",
		"meta": map[string]any{
			"seo_generated":  true,
			"seo_keyword":    article.Keyword,
			"seo_product_id": article.ProductID,
		},
	}
	if c.cfg.CategoryID > 0 {
		payload["categories"] = []int{c.cfg.CategoryID}
	}

	var created struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := c.do(ctx, http.MethodPost, "/wp-json/wp/v2/posts", payload, &created); err != nil {
		return pipeline.PublishedPost{}, fmt.Errorf("create post: %w", err)
	}

	c.logger.Info("post published", "post_id", created.ID, "keyword", article.Keyword)
	return pipeline.PublishedPost{ID: created.ID, URL: created.Link}, nil
}

// DeletePost removes an article, bypassing trash. Used by retention cleanup.
func (c *Client) DeletePost(ctx context.Context, postID int64) error {
	path := fmt.Sprintf("/wp-json/wp/v2/posts/%d?force=true", postID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	return nil
}

// wooProduct is the WooCommerce product shape the client reads.
type wooProduct struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Price            string `json:"price"`
	Permalink        string `json:"permalink"`
	ShortDescription string `json:"short_description"`
}

// Product resolves one product's details.
func (c *Client) Product(ctx context.Context, productID int64) (pipeline.Product, error) {
	var p wooProduct
	path := fmt.Sprintf("/wp-json/wc/v3/products/%d", productID)
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return pipeline.Product{}, fmt.Errorf("%w: product %d: %v", apperrors.ErrProductNotFound, productID, err)
	}
	return pipeline.Product{ID: p.ID, Name: p.Name, Price: p.Price, URL: p.Permalink}, nil
}

// UpdateProductSummary prepends the generated overview to the product's
// short description.
func (c *Client) UpdateProductSummary(ctx context.Context, productID int64, summary string) error {
	path := fmt.Sprintf("/wp-json/wc/v3/products/%d", productID)
	payload := map[string]any{"short_description": summary}
	if err := c.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return fmt.Errorf("update product %d summary: %w", productID, err)
	}
	return nil
}

// ListProducts pages through published products; it satisfies the catalog
// side of keyword import.
func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]keywords.Product, error) {
	var products []wooProduct
	path := fmt.Sprintf("/wp-json/wc/v3/products?status=publish&page=%d&per_page=%d", page, perPage)
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		// Past the last page WooCommerce answers 400; treat it as the end.
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusBadRequest {
			return nil, nil
		}
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make([]keywords.Product, 0, len(products))
	for _, p := range products {
		out = append(out, keywords.Product{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

// statusError carries the HTTP status of a non-2xx response so callers can
// branch on it.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("site returned status %d", e.code)
}

// do performs one authenticated request against the site, with the breaker
// and timeout wrapper shared by every endpoint. Transport failures and 5xx
// answers count against the breaker; 4xx answers are request problems, not
// site health, and come back as a statusError without tripping it.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c.cfg.Username == "" || c.cfg.AppPassword == "" {
		return fmt.Errorf("wordpress: %w", apperrors.ErrMissingCredential)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	start := time.Now()
	statusCode := 0
	var clientErr error
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "wordpress", func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
			if err != nil {
				return err
			}
			req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			res, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
			}
			defer res.Body.Close()
			statusCode = res.StatusCode

			raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			if res.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("%w: site returned status %d", apperrors.ErrUnavailable, res.StatusCode)
			}
			if res.StatusCode < 200 || res.StatusCode > 299 {
				clientErr = &statusError{code: res.StatusCode}
				return nil
			}
			if out != nil {
				if err := json.Unmarshal(raw, out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		})
	})
	if err == nil {
		err = clientErr
	}

	c.record(ctx, method+" "+path, statusCode, time.Since(start), err)
	return err
}

func (c *Client) record(ctx context.Context, endpoint string, status int, elapsed time.Duration, callErr error) {
	if c.recorder == nil {
		return
	}
	call := audit.APICall{
		APIName:    "wordpress",
		Endpoint:   endpoint,
		StatusCode: status,
		Duration:   elapsed.Milliseconds(),
		Success:    callErr == nil,
	}
	if callErr != nil {
		call.Detail = callErr.Error()
	}
	if err := c.recorder.RecordAPICall(ctx, call); err != nil {
		c.logger.Warn("api call not recorded", "error", err)
	}
}

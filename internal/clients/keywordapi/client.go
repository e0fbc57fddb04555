// Package keywordapi talks to the keyword-suggestion service that supplies
// monthly search volumes. Responses are cached in Redis for the rest of the
// day; only a cache miss costs a budgeted call.
package keywordapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/redis"
	"github.com/MikohMick/SEO-MACHINE/pkg/resilience"
)

// Recorder logs outbound calls; the audit store satisfies it.
type Recorder interface {
	RecordAPICall(ctx context.Context, call audit.APICall) error
}

// Client queries search volumes over the RapidAPI suggestion endpoint.
type Client struct {
	http     *http.Client
	cfg      config.KeywordAPIConfig
	cache    *redis.Client
	breaker  *resilience.CircuitBreaker
	group    singleflight.Group
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Client. The cache is optional; without it every Fetch hits
// the network.
func New(cfg config.KeywordAPIConfig, cache *redis.Client, recorder Recorder) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		cache:    cache,
		breaker:  resilience.NewCircuitBreaker("keyword-api", resilience.CircuitBreakerConfig{}),
		recorder: recorder,
		logger:   slog.Default().With("component", "keyword_api"),
	}
}

// suggestResponse is the shape of a suggestion payload. Volumes arrive
// keyed by phrase under the quirky "search volume" field.
type suggestResponse struct {
	Keywords   map[string]suggestEntry `json:"keywords"`
	ResultCode string                  `json:"result_code"`
}

type suggestEntry struct {
	SearchVolume int `json:"search volume"`
}

// Cached returns the volume cached earlier today for the phrase, if any.
func (c *Client) Cached(ctx context.Context, phrase string) (int, bool) {
	if c.cache == nil {
		return 0, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(phrase))
	if err != nil {
		if !redis.IsNilError(err) {
			c.logger.Warn("volume cache read failed", "error", err)
		}
		return 0, false
	}
	var vol int
	if err := json.Unmarshal([]byte(raw), &vol); err != nil {
		return 0, false
	}
	return vol, true
}

// Fetch resolves the phrase's volume from the API. Concurrent fetches for
// the same phrase collapse into one request.
func (c *Client) Fetch(ctx context.Context, phrase string) (int, error) {
	v, err, _ := c.group.Do(strings.ToLower(phrase), func() (any, error) {
		return c.fetch(ctx, phrase)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *Client) fetch(ctx context.Context, phrase string) (int, error) {
	if c.cfg.APIKey == "" {
		return 0, fmt.Errorf("keyword api: %w", apperrors.ErrMissingCredential)
	}

	reqURL := fmt.Sprintf("%s?phrase=%s&lang=%s&loc=%s",
		c.cfg.BaseURL, url.QueryEscape(phrase), c.cfg.Language, c.cfg.Locale)

	var resp suggestResponse
	start := time.Now()
	statusCode := 0

	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "keyword-api", func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return err
			}
			req.Header.Set("x-rapidapi-host", c.cfg.Host)
			req.Header.Set("x-rapidapi-key", c.cfg.APIKey)

			res, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
			}
			defer res.Body.Close()
			statusCode = res.StatusCode

			body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
			if err != nil {
				return fmt.Errorf("read suggestion response: %w", err)
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: suggestion api status %d", apperrors.ErrUnavailable, res.StatusCode)
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("decode suggestion response: %w", err)
			}
			if resp.ResultCode != "200" {
				return fmt.Errorf("%w: suggestion result code %q", apperrors.ErrUnavailable, resp.ResultCode)
			}
			return nil
		})
	})

	c.record(ctx, phrase, statusCode, time.Since(start), err)
	if err != nil {
		return 0, err
	}

	volume := extractVolume(resp, phrase)
	c.cacheVolume(ctx, phrase, volume)
	return volume, nil
}

// extractVolume prefers the exact phrase's volume and otherwise takes the
// largest volume among the suggestions.
func extractVolume(resp suggestResponse, phrase string) int {
	want := strings.ToLower(strings.TrimSpace(phrase))
	maxVolume := 0
	for kw, entry := range resp.Keywords {
		if strings.ToLower(strings.TrimSpace(kw)) == want {
			return entry.SearchVolume
		}
		if entry.SearchVolume > maxVolume {
			maxVolume = entry.SearchVolume
		}
	}
	return maxVolume
}

// cacheVolume stores the volume until end of day, when budgets reset and a
// fresh reading becomes worth paying for.
func (c *Client) cacheVolume(ctx context.Context, phrase string, volume int) {
	if c.cache == nil {
		return
	}
	raw, _ := json.Marshal(volume)
	ttl := time.Until(endOfDay(time.Now()))
	if err := c.cache.Set(ctx, cacheKey(phrase), raw, ttl); err != nil {
		c.logger.Warn("volume cache write failed", "error", err)
	}
}

func (c *Client) record(ctx context.Context, phrase string, status int, elapsed time.Duration, callErr error) {
	if c.recorder == nil {
		return
	}
	call := audit.APICall{
		APIName:    "keyword",
		Endpoint:   c.cfg.BaseURL + "?phrase=" + url.QueryEscape(phrase),
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

func cacheKey(phrase string) string {
	return "kwvol:" + strings.ToLower(strings.TrimSpace(phrase))
}

func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, now.Location())
}

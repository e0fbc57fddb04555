// Package openai generates article bodies through an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/resilience"
)

const systemPrompt = "You are an expert SEO content writer specializing in product descriptions " +
	"and buying guides. Create engaging, informative content that helps customers make purchasing decisions."

var promptTemplates = []string{
	"Write a comprehensive buying guide for '%s'. Include key features, benefits, what to look for when purchasing, and why customers should consider this product. Make it informative and helpful for potential buyers.",
	"Create an expert review article about '%s'. Cover the main features, performance aspects, pros and cons, and provide useful insights for customers researching this product.",
	"Write an informative article about '%s' that helps customers understand the product better. Include specifications, use cases, benefits, and practical advice for potential buyers.",
	"Create a detailed product guide for '%s'. Explain what makes this product valuable, key features to consider, and helpful tips for customers looking to purchase.",
	"Write an engaging article about '%s' focusing on customer benefits, practical applications, and important considerations for buyers. Make it informative and decision-helpful.",
}

const promptGuidelines = "\n\nGuidelines:\n" +
	"- Write in a helpful, informative tone\n" +
	"- Include practical advice for buyers\n" +
	"- Use natural language with good SEO practices\n" +
	"- Make it around 400-500 words\n" +
	"- Focus on customer value and benefits\n" +
	"- Include relevant technical details when helpful"

// Recorder logs outbound calls; the audit store satisfies it.
type Recorder interface {
	RecordAPICall(ctx context.Context, call audit.APICall) error
}

// Client calls the chat-completions endpoint.
type Client struct {
	http     *http.Client
	cfg      config.ContentAPIConfig
	breaker  *resilience.CircuitBreaker
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Client.
func New(cfg config.ContentAPIConfig, recorder Recorder) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		breaker:  resilience.NewCircuitBreaker("content-api", resilience.CircuitBreakerConfig{}),
		recorder: recorder,
		logger:   slog.Default().With("component", "content_api"),
	}
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate produces a raw article body for the keyword. Missing credentials
// are a precondition failure, not an upstream outage.
func (c *Client) Generate(ctx context.Context, keyword string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("content api: %w", apperrors.ErrMissingCredential)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(keyword)},
		},
		MaxTokens:        c.cfg.MaxTokens,
		Temperature:      c.cfg.Temperature,
		TopP:             0.9,
		FrequencyPenalty: 0.3,
		PresencePenalty:  0.1,
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	var resp chatResponse
	start := time.Now()
	statusCode := 0

	callErr := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "content-api", func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

			res, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
			}
			defer res.Body.Close()
			statusCode = res.StatusCode

			body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
			if err != nil {
				return fmt.Errorf("read completion response: %w", err)
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: completion api status %d", apperrors.ErrUnavailable, res.StatusCode)
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("decode completion response: %w", err)
			}
			return nil
		})
	})

	c.record(ctx, statusCode, time.Since(start), callErr)
	if callErr != nil {
		return "", callErr
	}

	content := extractContent(resp)
	if content == "" {
		return "", fmt.Errorf("%w: completion returned empty content", apperrors.ErrUnavailable)
	}

	c.logger.Info("article generated", "keyword", keyword, "chars", len(content))
	return content, nil
}

// buildPrompt selects a template by hashing the keyword, so a regenerate
// for the same keyword asks the same question.
func buildPrompt(keyword string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(keyword)))
	tpl := promptTemplates[int(h.Sum32())%len(promptTemplates)]
	return fmt.Sprintf(tpl, keyword) + promptGuidelines
}

func extractContent(resp chatResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func (c *Client) record(ctx context.Context, status int, elapsed time.Duration, callErr error) {
	if c.recorder == nil {
		return
	}
	call := audit.APICall{
		APIName:    "content",
		Endpoint:   c.cfg.BaseURL,
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

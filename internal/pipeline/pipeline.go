// Package pipeline turns queued keywords into published articles. Every
// article costs one call against the daily content budget; when the budget
// runs out mid-batch the remainder of the queue is abandoned, not retried.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/internal/queue"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
)

// Generator produces a raw article body for a keyword.
type Generator interface {
	Generate(ctx context.Context, keyword string) (string, error)
}

// Product is the storefront product an article promotes.
type Product struct {
	ID    int64
	Name  string
	Price string
	URL   string
}

// Article is a fully shaped post ready to publish.
type Article struct {
	Title     string
	Body      string
	Keyword   string
	ProductID int64
}

// PublishedPost identifies an article after publication.
type PublishedPost struct {
	ID  int64
	URL string
}

// Publisher is the storefront side of the pipeline: publishing articles,
// updating product pages, and resolving product details.
type Publisher interface {
	PublishArticle(ctx context.Context, article Article) (PublishedPost, error)
	UpdateProductSummary(ctx context.Context, productID int64, summary string) error
	Product(ctx context.Context, productID int64) (Product, error)
}

// KeywordWriter records publication back on the keyword.
type KeywordWriter interface {
	Get(ctx context.Context, id int64) (keywords.Record, error)
	RecordPublished(ctx context.Context, id int64) error
}

// Recorder appends content outcomes to the audit trail.
type Recorder interface {
	RecordContent(ctx context.Context, rec audit.ContentRecord) error
	CountPublishedToday(ctx context.Context) (int, error)
}

// Config tunes the pipeline.
type Config struct {
	DailyLimit   int
	ExcerptWords int
}

// Pipeline executes content queues.
type Pipeline struct {
	generator Generator
	publisher Publisher
	store     KeywordWriter
	recorder  Recorder
	budget    ledger.Ledger
	halted    func(ctx context.Context) bool
	cfg       Config
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Pipeline. halted is consulted between entries; in-flight
// work always runs to completion and is committed.
func New(generator Generator, publisher Publisher, store KeywordWriter, recorder Recorder,
	budget ledger.Ledger, halted func(ctx context.Context) bool, cfg Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		generator: generator,
		publisher: publisher,
		store:     store,
		recorder:  recorder,
		budget:    budget,
		halted:    halted,
		cfg:       cfg,
		metrics:   m,
		now:       time.Now,
		logger:    slog.Default().With("component", "content_pipeline"),
	}
}

// Summary reports one pipeline run.
type Summary struct {
	Queued          int
	Published       int
	Failed          int
	BudgetExhausted bool
	Halted          bool
}

func (s Summary) String() string {
	return fmt.Sprintf("published %d/%d articles, %d failures (budget exhausted: %t, halted: %t)",
		s.Published, s.Queued, s.Failed, s.BudgetExhausted, s.Halted)
}

// RemainingSlots returns how many articles today's publishing cap still
// allows, independent of the API budget.
func (p *Pipeline) RemainingSlots(ctx context.Context) (int, error) {
	done, err := p.recorder.CountPublishedToday(ctx)
	if err != nil {
		return 0, err
	}
	remaining := p.cfg.DailyLimit - done
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Run processes the queue in order. A per-entry failure is recorded and the
// run moves on; a denied budget consume or an engaged emergency stop ends
// the run at the entry boundary.
func (p *Pipeline) Run(ctx context.Context, entries []queue.Entry) (Summary, error) {
	sum := Summary{Queued: len(entries)}
	p.logger.Info("pipeline run started", "entries", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if p.halted != nil && p.halted(ctx) {
			sum.Halted = true
			p.logger.Warn("pipeline halted by emergency stop", "published", sum.Published)
			break
		}

		allowed, err := p.budget.TryConsume(ctx, ledger.APIContent)
		if err != nil {
			return sum, fmt.Errorf("consume content budget: %w", err)
		}
		if !allowed {
			sum.BudgetExhausted = true
			p.logger.Warn("content budget exhausted, abandoning queue",
				"published", sum.Published, "abandoned", sum.Queued-sum.Published-sum.Failed)
			break
		}

		if err := p.generateOne(ctx, entry); err != nil {
			sum.Failed++
			p.logger.Error("content generation failed",
				"keyword_id", entry.Record.ID, "phrase", entry.Record.Phrase,
				"reason", string(entry.Reason), "error", err)
			if p.metrics != nil {
				p.metrics.ContentGenerated.WithLabelValues(string(entry.Reason), audit.StatusFailed).Inc()
			}
			continue
		}
		sum.Published++
		if p.metrics != nil {
			p.metrics.ContentGenerated.WithLabelValues(string(entry.Reason), audit.StatusCompleted).Inc()
		}
	}

	p.logger.Info("pipeline run finished", "summary", sum.String())
	return sum, nil
}

// GenerateFor runs the pipeline for a single keyword on operator request.
// It honors the same budget gate as scheduled runs.
func (p *Pipeline) GenerateFor(ctx context.Context, keywordID int64, regenerate bool) (Summary, error) {
	rec, err := p.store.Get(ctx, keywordID)
	if err != nil {
		return Summary{}, err
	}
	entry := queue.NewManualEntry(rec, regenerate, p.now())
	return p.Run(ctx, []queue.Entry{entry})
}

// generateOne takes one entry all the way to a published article. The audit
// row is written for both outcomes; failure detail goes in the row, not in
// the returned error alone.
func (p *Pipeline) generateOne(ctx context.Context, entry queue.Entry) error {
	rec := entry.Record
	outcome := audit.ContentRecord{
		KeywordID:      rec.ID,
		ProductID:      rec.ProductID,
		Phrase:         rec.Phrase,
		Reason:         string(entry.Reason),
		SurgeSnapshot:  entry.Surge,
		VolumeSnapshot: rec.CurrentVolume,
		ScoreSnapshot:  entry.Score,
	}

	product, err := p.publisher.Product(ctx, rec.ProductID)
	if err != nil {
		// Fall back to what the keyword row knows; the article can still
		// ship without a price or permalink.
		p.logger.Warn("product lookup failed, using keyword record",
			"product_id", rec.ProductID, "error", err)
		product = Product{ID: rec.ProductID, Name: rec.ProductName}
	}
	if product.Name == "" {
		product.Name = rec.ProductName
	}

	raw, err := p.generator.Generate(ctx, rec.Phrase)
	if err != nil {
		return p.fail(ctx, outcome, fmt.Errorf("generate article: %w", err))
	}

	processed := process(raw, rec.Phrase, product.Name, product.Price, p.cfg.ExcerptWords)
	article := Article{
		Title:     articleTitle(rec.Phrase, p.now().Year()),
		Body:      structureArticle(processed.Body, rec.Phrase, product.Name, product.URL, product.Price),
		Keyword:   rec.Phrase,
		ProductID: rec.ProductID,
	}

	post, err := p.publisher.PublishArticle(ctx, article)
	if err != nil {
		return p.fail(ctx, outcome, fmt.Errorf("publish article: %w", err))
	}
	// Past this point the article is live: any failure row must carry the
	// post id, or a later regenerate would publish the keyword twice.
	outcome.PostID = post.ID

	// The product page update is best effort; the article is already live.
	if err := p.publisher.UpdateProductSummary(ctx, rec.ProductID,
		productSummary(processed.Excerpt, post.URL)); err != nil {
		p.logger.Warn("product summary update failed",
			"product_id", rec.ProductID, "post_id", post.ID, "error", err)
	}

	if err := p.store.RecordPublished(ctx, rec.ID); err != nil {
		return p.fail(ctx, outcome,
			fmt.Errorf("record publication on keyword %d (post %d is live): %w", rec.ID, post.ID, err))
	}

	outcome.Status = audit.StatusCompleted
	outcome.WordCount = wordCount(article.Body)
	if err := p.recorder.RecordContent(ctx, outcome); err != nil {
		return fmt.Errorf("record content outcome (post %d is live): %w", post.ID, err)
	}

	p.logger.Info("article published",
		"phrase", rec.Phrase, "post_id", post.ID, "reason", string(entry.Reason))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, outcome audit.ContentRecord, cause error) error {
	outcome.Status = audit.StatusFailed
	outcome.ErrorDetail = cause.Error()
	if err := p.recorder.RecordContent(ctx, outcome); err != nil {
		p.logger.Error("record failed outcome", "error", err)
	}
	return cause
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

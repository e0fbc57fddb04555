// Package jobs holds the job bodies the scheduler triggers. Each body wires
// core components together for one run and reports a one-line summary.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/internal/monitor"
	"github.com/MikohMick/SEO-MACHINE/internal/pipeline"
	"github.com/MikohMick/SEO-MACHINE/internal/queue"
	"github.com/MikohMick/SEO-MACHINE/internal/ranker"
	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
)

// Job names, as registered with the scheduler and addressed by the
// operator API.
const (
	JobMonitoring = "monitoring"
	JobContent    = "content"
	JobPriority   = "priority"
	JobCleanup    = "cleanup"
	JobDuplicates = "duplicates"
	JobImport     = "import"
)

// PostRemover deletes published posts during retention cleanup.
type PostRemover interface {
	DeletePost(ctx context.Context, postID int64) error
}

// Runner owns the job bodies.
type Runner struct {
	monitor    *monitor.Monitor
	pipeline   *pipeline.Pipeline
	builder    *queue.Builder
	ranker     *ranker.Ranker
	auditStore *audit.Store
	duplicates *keywords.DuplicateScanner
	importer   *keywords.Importer
	remover    PostRemover
	budget     ledger.Ledger
	cleanupCfg config.CleanupConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewRunner wires the job bodies over the core components.
func NewRunner(
	mon *monitor.Monitor,
	pipe *pipeline.Pipeline,
	builder *queue.Builder,
	rank *ranker.Ranker,
	auditStore *audit.Store,
	duplicates *keywords.DuplicateScanner,
	importer *keywords.Importer,
	remover PostRemover,
	budget ledger.Ledger,
	cleanupCfg config.CleanupConfig,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		monitor:    mon,
		pipeline:   pipe,
		builder:    builder,
		ranker:     rank,
		auditStore: auditStore,
		duplicates: duplicates,
		importer:   importer,
		remover:    remover,
		budget:     budget,
		cleanupCfg: cleanupCfg,
		metrics:    m,
		logger:     slog.Default().With("component", "jobs"),
	}
}

// RunMonitoring refreshes keyword volumes for the stalest batch.
func (r *Runner) RunMonitoring(ctx context.Context) (string, error) {
	sum, err := r.monitor.Run(ctx)
	if err != nil {
		return "", err
	}
	r.publishBudgetGauge(ctx, ledger.APIKeyword)
	return sum.String(), nil
}

// publishBudgetGauge refreshes the remaining-budget gauge after a run has
// spent from it.
func (r *Runner) publishBudgetGauge(ctx context.Context, api ledger.API) {
	if r.metrics == nil {
		return
	}
	remaining, err := r.budget.Remaining(ctx, api)
	if err != nil {
		r.logger.Warn("budget gauge not refreshed", "api", string(api), "error", err)
		return
	}
	r.metrics.APIBudgetRemaining.WithLabelValues(string(api)).Set(float64(remaining))
}

// RunContent builds today's queue against the remaining publishing slots
// and feeds it through the pipeline.
func (r *Runner) RunContent(ctx context.Context) (string, error) {
	slots, err := r.pipeline.RemainingSlots(ctx)
	if err != nil {
		return "", fmt.Errorf("compute remaining slots: %w", err)
	}
	if r.metrics != nil {
		r.metrics.QueueDepth.Set(float64(slots))
	}
	if slots == 0 {
		return "daily publishing cap reached, nothing queued", nil
	}

	entries, err := r.builder.Build(ctx, slots)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "no candidates to queue", nil
	}

	sum, err := r.pipeline.Run(ctx, entries)
	if err != nil {
		return "", err
	}
	r.publishBudgetGauge(ctx, ledger.APIContent)
	return sum.String(), nil
}

// RunPriority recomputes every keyword's priority score.
func (r *Runner) RunPriority(ctx context.Context) (string, error) {
	n, err := r.ranker.RecomputeAll(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("recomputed %d priority scores", n), nil
}

// RunCleanup applies retention: API logs past their window are dropped, old
// generated posts are deleted from the site and then purged from the log.
func (r *Runner) RunCleanup(ctx context.Context) (string, error) {
	now := time.Now()
	apiCutoff := now.AddDate(0, 0, -r.cleanupCfg.APILogRetentionDays)
	contentCutoff := now.AddDate(0, 0, -r.cleanupCfg.ContentRetentionDays)

	apiRows, err := r.auditStore.PurgeAPILogsBefore(ctx, apiCutoff)
	if err != nil {
		return "", err
	}

	postIDs, err := r.auditStore.StalePostIDs(ctx, contentCutoff)
	if err != nil {
		return "", err
	}
	removed := 0
	for _, id := range postIDs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := r.remover.DeletePost(ctx, id); err != nil {
			r.logger.Warn("stale post not deleted", "post_id", id, "error", err)
			continue
		}
		removed++
	}

	contentRows, err := r.auditStore.PurgeContentBefore(ctx, contentCutoff)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("purged %d api log rows, %d content rows, removed %d stale posts",
		apiRows, contentRows, removed), nil
}

// RunDuplicates rescans for keyword phrases shared across products.
func (r *Runner) RunDuplicates(ctx context.Context) (string, error) {
	groups, err := r.duplicates.Scan(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d duplicate groups open", groups), nil
}

// RunImport walks the product catalog and seeds keywords. Manual-only.
func (r *Runner) RunImport(ctx context.Context) (string, error) {
	sum, err := r.importer.Run(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("imported %d keywords from %d products (%d skipped, %d volumes seeded)",
		sum.Imported, sum.Products, sum.Skipped, sum.VolumeHit), nil
}

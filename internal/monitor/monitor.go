// Package monitor runs the daily volume check: it walks a batch of stale
// keywords, refreshes each volume through the budget gate, and raises a
// notification when surges cluster.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
)

// notifyAfterSurges is how many surges in one run warrant an operator
// notification.
const notifyAfterSurges = 5

// Store is the slice of keyword storage the monitor needs.
type Store interface {
	BatchForMonitoring(ctx context.Context, limit int, staleness time.Duration) ([]keywords.Record, error)
	UpdateVolume(ctx context.Context, id int64, volume int) (keywords.Record, error)
}

// Notifier delivers operator notifications. Implementations must be fire
// and forget; the monitor never fails a run over a notification.
type Notifier interface {
	Notify(ctx context.Context, subject, body string)
}

// Config tunes one monitoring run.
type Config struct {
	BatchSize      int
	SurgeThreshold float64
	MinSurgeVolume int
	Staleness      time.Duration
}

// Monitor refreshes keyword volumes within the daily API budget.
type Monitor struct {
	store    Store
	volumes  keywords.VolumeSource
	budget   ledger.Ledger
	notifier Notifier
	halted   func(ctx context.Context) bool
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Monitor. halted is consulted between keywords; a true
// return stops the run at the next record boundary.
func New(store Store, volumes keywords.VolumeSource, budget ledger.Ledger,
	notifier Notifier, halted func(ctx context.Context) bool, cfg Config, m *metrics.Metrics) *Monitor {
	return &Monitor{
		store:    store,
		volumes:  volumes,
		budget:   budget,
		notifier: notifier,
		halted:   halted,
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "monitor"),
	}
}

// Summary reports one monitoring run.
type Summary struct {
	Batch           int
	Checked         int
	Failed          int
	Surges          int
	BudgetExhausted bool
	Halted          bool
	SurgedPhrases   []string
}

func (s Summary) String() string {
	return fmt.Sprintf("checked %d/%d keywords, %d surges, %d failures (budget exhausted: %t, halted: %t)",
		s.Checked, s.Batch, s.Surges, s.Failed, s.BudgetExhausted, s.Halted)
}

// Run executes one monitoring pass. Per-keyword failures are logged and
// skipped; only batch loading or storage failures abort the run. The run
// stops early when the keyword budget is exhausted or an emergency stop is
// engaged, and whatever was already committed stays committed.
func (m *Monitor) Run(ctx context.Context) (Summary, error) {
	batch, err := m.store.BatchForMonitoring(ctx, m.cfg.BatchSize, m.cfg.Staleness)
	if err != nil {
		return Summary{}, fmt.Errorf("load monitoring batch: %w", err)
	}

	sum := Summary{Batch: len(batch)}
	m.logger.Info("monitoring run started", "batch", len(batch))

	for _, rec := range batch {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if m.halted != nil && m.halted(ctx) {
			sum.Halted = true
			m.logger.Warn("monitoring halted by emergency stop", "checked", sum.Checked)
			break
		}

		volume, ok, err := m.lookupVolume(ctx, rec.Phrase, &sum)
		if err != nil {
			sum.Failed++
			m.logger.Warn("volume lookup failed",
				"keyword_id", rec.ID, "phrase", rec.Phrase, "error", err)
			continue
		}
		if !ok {
			break // budget exhausted
		}

		updated, err := m.store.UpdateVolume(ctx, rec.ID, volume)
		if err != nil {
			return sum, fmt.Errorf("store volume for keyword %d: %w", rec.ID, err)
		}
		sum.Checked++
		if m.metrics != nil {
			m.metrics.KeywordsMonitored.Inc()
		}

		if m.isSurge(updated) {
			sum.Surges++
			sum.SurgedPhrases = append(sum.SurgedPhrases, updated.Phrase)
			if m.metrics != nil {
				m.metrics.SurgesDetected.Inc()
			}
			m.logger.Info("surge detected",
				"phrase", updated.Phrase,
				"previous", updated.PreviousVolume,
				"current", updated.CurrentVolume,
				"surge_pct", updated.SurgePercentage)
		}
	}

	if sum.Surges >= notifyAfterSurges && m.notifier != nil {
		m.notifier.Notify(ctx,
			fmt.Sprintf("%d keyword surges detected", sum.Surges),
			"Surging keywords:\n"+strings.Join(sum.SurgedPhrases, "\n"))
	}

	m.logger.Info("monitoring run finished", "summary", sum.String())
	return sum, nil
}

// lookupVolume resolves a phrase's volume, preferring the cache. A cache
// miss claims one budgeted call; ok=false means the budget is gone.
func (m *Monitor) lookupVolume(ctx context.Context, phrase string, sum *Summary) (int, bool, error) {
	if vol, hit := m.volumes.Cached(ctx, phrase); hit {
		return vol, true, nil
	}

	allowed, err := m.budget.TryConsume(ctx, ledger.APIKeyword)
	if err != nil {
		return 0, false, fmt.Errorf("consume keyword budget: %w", err)
	}
	if !allowed {
		sum.BudgetExhausted = true
		m.logger.Warn("keyword budget exhausted, stopping run", "checked", sum.Checked)
		return 0, false, nil
	}

	vol, err := m.volumes.Fetch(ctx, phrase)
	if err != nil {
		return 0, true, err
	}
	return vol, true, nil
}

// isSurge applies both gates: the relative jump must clear the threshold
// and the absolute volume must be large enough to matter.
func (m *Monitor) isSurge(rec keywords.Record) bool {
	return rec.SurgePercentage >= m.cfg.SurgeThreshold &&
		rec.CurrentVolume >= m.cfg.MinSurgeVolume
}

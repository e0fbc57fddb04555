// Package ranker computes keyword priority scores. Scoring is a pure
// function of the record and the clock, so two runs over the same data
// always produce the same ordering.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
)

// Weighting: search volume carries the most signal, recency of attention
// and staleness of coverage split the rest.
const (
	volumeWeight = 0.4
	surgeWeight  = 0.3
	agingWeight  = 0.3
)

// Score computes the priority of a keyword at the given instant. Keywords
// that never produced an article are aged at 999 days, which pushes fresh
// inventory to the front until it gets covered.
func Score(rec keywords.Record, now time.Time) float64 {
	score := volumeWeight*float64(rec.CurrentVolume) +
		surgeWeight*rec.SurgePercentage +
		agingWeight*rec.DaysSincePublished(now)
	return math.Round(score*10000) / 10000
}

// Store is the slice of keyword storage the ranker needs.
type Store interface {
	All(ctx context.Context) ([]keywords.Record, error)
	UpdateScore(ctx context.Context, id int64, score float64) error
}

// Ranker recomputes priority scores across the whole keyword table.
type Ranker struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Ranker over the given store.
func New(store Store) *Ranker {
	return &Ranker{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "priority_ranker"),
	}
}

// RecomputeAll scores every keyword against a single timestamp and writes
// the results back. Using one timestamp for the whole pass keeps the run
// internally consistent even when it takes a while.
func (r *Ranker) RecomputeAll(ctx context.Context) (int, error) {
	records, err := r.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load keywords for ranking: %w", err)
	}

	now := r.now()
	updated := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		score := Score(rec, now)
		if err := r.store.UpdateScore(ctx, rec.ID, score); err != nil {
			return updated, fmt.Errorf("store score for keyword %d: %w", rec.ID, err)
		}
		updated++
	}

	r.logger.Info("priority scores recomputed", "keywords", updated)
	return updated, nil
}

// Package queue builds the daily content queue: surged keywords first,
// fallback candidates to fill whatever capacity is left.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ranker"
)

// Reason records why an entry was queued.
type Reason string

const (
	ReasonSurge      Reason = "surge"
	ReasonFallback   Reason = "fallback"
	ReasonManual     Reason = "manual"
	ReasonRegenerate Reason = "regenerate"
)

// Entry is one unit of planned content. Score and Surge are snapshots taken
// at build time; later keyword updates do not reorder an already-built
// queue.
type Entry struct {
	Record keywords.Record
	Reason Reason
	Score  float64
	Surge  float64
}

// Store is the slice of keyword storage the builder needs.
type Store interface {
	SurgedSince(ctx context.Context, threshold float64, window time.Duration) ([]keywords.Record, error)
	FallbackCandidates(ctx context.Context, limit int) ([]keywords.Record, error)
}

// Builder assembles content queues sized to the pipeline's remaining
// capacity for the day.
type Builder struct {
	store          Store
	surgeThreshold float64
	surgeWindow    time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// NewBuilder creates a Builder. Keywords count as surging when their surge
// percentage meets the threshold and the volume was checked inside window.
func NewBuilder(store Store, surgeThreshold float64, surgeWindow time.Duration) *Builder {
	return &Builder{
		store:          store,
		surgeThreshold: surgeThreshold,
		surgeWindow:    surgeWindow,
		now:            time.Now,
		logger:         slog.Default().With("component", "queue_builder"),
	}
}

// Build returns at most remainingSlots entries. Surges claim slots before
// fallback candidates, a keyword appears at most once (whichever path
// reached it first), and the final queue is ordered by snapshot score
// descending so a cut-short run spends its budget on the highest-value
// keywords.
func (b *Builder) Build(ctx context.Context, remainingSlots int) ([]Entry, error) {
	if remainingSlots <= 0 {
		return nil, nil
	}

	now := b.now()
	entries := make([]Entry, 0, remainingSlots)
	seen := make(map[string]struct{}, remainingSlots)

	surged, err := b.store.SurgedSince(ctx, b.surgeThreshold, b.surgeWindow)
	if err != nil {
		return nil, fmt.Errorf("load surged keywords: %w", err)
	}
	for _, rec := range surged {
		if len(entries) >= remainingSlots {
			break
		}
		if !mark(seen, rec.Phrase) {
			continue
		}
		entries = append(entries, newEntry(rec, ReasonSurge, now))
	}

	if len(entries) < remainingSlots {
		// Ask for enough candidates to survive dedup against the surge set.
		candidates, err := b.store.FallbackCandidates(ctx, remainingSlots+len(entries))
		if err != nil {
			return nil, fmt.Errorf("load fallback candidates: %w", err)
		}
		for _, rec := range candidates {
			if len(entries) >= remainingSlots {
				break
			}
			if !mark(seen, rec.Phrase) {
				continue
			}
			entries = append(entries, newEntry(rec, ReasonFallback, now))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Record.ID < entries[j].Record.ID
	})

	b.logger.Info("content queue built",
		"slots", remainingSlots, "entries", len(entries),
		"surge", countReason(entries, ReasonSurge),
		"fallback", countReason(entries, ReasonFallback))
	return entries, nil
}

// NewManualEntry queues a keyword on operator request, bypassing surge and
// fallback selection but not the budget gate downstream.
func NewManualEntry(rec keywords.Record, regenerate bool, now time.Time) Entry {
	reason := ReasonManual
	if regenerate {
		reason = ReasonRegenerate
	}
	return newEntry(rec, reason, now)
}

func newEntry(rec keywords.Record, reason Reason, now time.Time) Entry {
	return Entry{
		Record: rec,
		Reason: reason,
		Score:  ranker.Score(rec, now),
		Surge:  rec.SurgePercentage,
	}
}

func mark(seen map[string]struct{}, phrase string) bool {
	key := strings.ToLower(strings.TrimSpace(phrase))
	if _, dup := seen[key]; dup {
		return false
	}
	seen[key] = struct{}{}
	return true
}

func countReason(entries []Entry, reason Reason) int {
	n := 0
	for _, e := range entries {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

// Package e2e exercises the full publishing flow in process: a product title
// through keyword extraction, a monitoring pass that detects a volume surge,
// queue assembly, and content generation down to the recorded publication.
// All external collaborators are in-memory, so the test is deterministic and
// needs no running services.
package e2e

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/audit"
	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
	"github.com/MikohMick/SEO-MACHINE/internal/monitor"
	"github.com/MikohMick/SEO-MACHINE/internal/pipeline"
	"github.com/MikohMick/SEO-MACHINE/internal/queue"
)

// ---------------------------------------------------------------------------
// In-memory collaborators
// ---------------------------------------------------------------------------

// memStore implements the keyword storage slices the monitor, queue builder,
// and pipeline each depend on, with the same surge arithmetic the SQL layer
// performs.
type memStore struct {
	mu      sync.Mutex
	records map[int64]keywords.Record
}

func newMemStore(recs ...keywords.Record) *memStore {
	s := &memStore{records: make(map[int64]keywords.Record)}
	for _, r := range recs {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) BatchForMonitoring(_ context.Context, limit int, _ time.Duration) ([]keywords.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []keywords.Record
	for _, r := range s.records {
		if len(out) >= limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) UpdateVolume(_ context.Context, id int64, volume int) (keywords.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.PreviousVolume = r.CurrentVolume
	r.CurrentVolume = volume
	if r.PreviousVolume > 0 {
		r.SurgePercentage = float64(volume-r.PreviousVolume) / float64(r.PreviousVolume) * 100
	} else {
		r.SurgePercentage = 0
	}
	now := time.Now()
	r.LastChecked = &now
	s.records[id] = r
	return r, nil
}

func (s *memStore) SurgedSince(_ context.Context, threshold float64, _ time.Duration) ([]keywords.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []keywords.Record
	for _, r := range s.records {
		if r.SurgePercentage >= threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) FallbackCandidates(_ context.Context, limit int) ([]keywords.Record, error) {
	return nil, nil
}

func (s *memStore) Get(_ context.Context, id int64) (keywords.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id], nil
}

func (s *memStore) RecordPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.TotalPublished++
	now := time.Now()
	r.LastPublished = &now
	s.records[id] = r
	return nil
}

// memVolumes serves fixed volumes with no cache, so every lookup claims a
// budget slot like a real API miss.
type memVolumes struct {
	volumes map[string]int
	fetches int
}

func (v *memVolumes) Cached(context.Context, string) (int, bool) { return 0, false }

func (v *memVolumes) Fetch(_ context.Context, phrase string) (int, error) {
	v.fetches++
	return v.volumes[strings.ToLower(phrase)], nil
}

type memPublisher struct {
	published []pipeline.Article
	summaries map[int64]string
}

func (p *memPublisher) PublishArticle(_ context.Context, a pipeline.Article) (pipeline.PublishedPost, error) {
	p.published = append(p.published, a)
	return pipeline.PublishedPost{ID: int64(1000 + len(p.published)), URL: "https://shop.example/post"}, nil
}

func (p *memPublisher) UpdateProductSummary(_ context.Context, productID int64, summary string) error {
	if p.summaries == nil {
		p.summaries = make(map[int64]string)
	}
	p.summaries[productID] = summary
	return nil
}

func (p *memPublisher) Product(_ context.Context, productID int64) (pipeline.Product, error) {
	return pipeline.Product{ID: productID, Name: "Samsung Galaxy S25 Edge", Price: "KSh 145,000", URL: "https://shop.example/galaxy-s25-edge"}, nil
}

type memRecorder struct {
	records []audit.ContentRecord
}

func (r *memRecorder) RecordContent(_ context.Context, rec audit.ContentRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecorder) CountPublishedToday(context.Context) (int, error) {
	n := 0
	for _, rec := range r.records {
		if rec.Status == audit.StatusCompleted {
			n++
		}
	}
	return n, nil
}

type memGenerator struct{}

func (memGenerator) Generate(_ context.Context, keyword string) (string, error) {
	return "The " + keyword + " sets a new standard for flagship phones. Its display is bright and the battery lasts two days. " +
		"Performance is excellent across games and productivity apps. The camera system handles low light with ease. " +
		"Build quality feels premium and the software commitment is long. Buyers comparing flagships should shortlist it.", nil
}

// ---------------------------------------------------------------------------
// Flow
// ---------------------------------------------------------------------------

// TestSurgeToPublishedArticle walks one keyword from product title to a
// recorded publication: extraction, a monitored volume jump past the surge
// threshold, surge-first queue assembly, and a pipeline run that publishes
// exactly one article and stamps the keyword.
func TestSurgeToPublishedArticle(t *testing.T) {
	ctx := context.Background()

	phrase := keywords.ExtractKeyword("Galaxy S25 Edge (Pre-order on Whatsapp)")
	if !strings.EqualFold(phrase, "Galaxy S25") {
		t.Fatalf("extracted %q, want %q", phrase, "Galaxy S25")
	}

	store := newMemStore(keywords.Record{
		ID:            1,
		ProductID:     501,
		ProductName:   "Samsung Galaxy S25 Edge",
		Phrase:        phrase,
		CurrentVolume: 80,
	})
	budget := ledger.NewMemoryLedger(map[ledger.API]int{
		ledger.APIKeyword: 67,
		ledger.APIContent: 333,
	})

	// Monitoring: 80 -> 110 is a 37.5% jump, past the 25% threshold.
	volumes := &memVolumes{volumes: map[string]int{strings.ToLower(phrase): 110}}
	mon := monitor.New(store, volumes, budget, nil, nil, monitor.Config{
		BatchSize:      86,
		SurgeThreshold: 25,
		MinSurgeVolume: 50,
		Staleness:      7 * 24 * time.Hour,
	}, nil)

	monSum, err := mon.Run(ctx)
	if err != nil {
		t.Fatalf("monitor run: %v", err)
	}
	if monSum.Surges != 1 {
		t.Fatalf("surges = %d, want 1", monSum.Surges)
	}
	if volumes.fetches != 1 {
		t.Fatalf("volume fetches = %d, want 1", volumes.fetches)
	}
	surged, _ := store.Get(ctx, 1)
	if surged.SurgePercentage != 37.5 {
		t.Fatalf("surge percentage = %v, want 37.5", surged.SurgePercentage)
	}

	// Queue: the surged keyword fills the first slot.
	builder := queue.NewBuilder(store, 25, 24*time.Hour)
	entries, err := builder.Build(ctx, 5)
	if err != nil {
		t.Fatalf("build queue: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != queue.ReasonSurge {
		t.Fatalf("queue = %+v, want one surge entry", entries)
	}

	// Pipeline: publish, update the product page, record the outcome.
	publisher := &memPublisher{}
	recorder := &memRecorder{}
	pipe := pipeline.New(memGenerator{}, publisher, store, recorder, budget, nil,
		pipeline.Config{DailyLimit: 5, ExcerptWords: 300}, nil)

	pipeSum, err := pipe.Run(ctx, entries)
	if err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	if pipeSum.Published != 1 || pipeSum.Failed != 0 {
		t.Fatalf("pipeline summary = %+v, want one publication", pipeSum)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published articles = %d, want 1", len(publisher.published))
	}
	article := publisher.published[0]
	if !strings.Contains(strings.ToLower(article.Title), strings.ToLower(phrase)) {
		t.Errorf("title %q does not mention the keyword", article.Title)
	}
	if !strings.Contains(article.Body, "<h2>") {
		t.Errorf("article body is not structured into sections")
	}
	if _, ok := publisher.summaries[501]; !ok {
		t.Errorf("product summary was not updated")
	}

	final, _ := store.Get(ctx, 1)
	if final.TotalPublished != 1 {
		t.Errorf("total published = %d, want 1", final.TotalPublished)
	}
	if final.LastPublished == nil {
		t.Errorf("last published timestamp was not stamped")
	}

	if len(recorder.records) != 1 || recorder.records[0].Status != audit.StatusCompleted {
		t.Fatalf("audit records = %+v, want one completed record", recorder.records)
	}
	if recorder.records[0].SurgeSnapshot != 37.5 {
		t.Errorf("audit surge snapshot = %v, want 37.5", recorder.records[0].SurgeSnapshot)
	}

	// A second slot is gone from the content budget, the keyword budget spent
	// exactly one call.
	if rem, _ := budget.Remaining(ctx, ledger.APIKeyword); rem != 66 {
		t.Errorf("keyword budget remaining = %d, want 66", rem)
	}
	if rem, _ := budget.Remaining(ctx, ledger.APIContent); rem != 332 {
		t.Errorf("content budget remaining = %d, want 332", rem)
	}
}

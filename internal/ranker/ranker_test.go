package ranker

import (
	"context"
	"testing"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
)

var fixedNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func TestScore(t *testing.T) {
	published := fixedNow.AddDate(0, 0, -10)

	tests := []struct {
		name string
		rec  keywords.Record
		want float64
	}{
		{
			name: "never published uses 999 day aging",
			rec:  keywords.Record{CurrentVolume: 100, SurgePercentage: 0},
			want: 0.4*100 + 0.3*999,
		},
		{
			name: "recent article reduces aging component",
			rec:  keywords.Record{CurrentVolume: 100, SurgePercentage: 50, LastPublished: &published},
			want: 0.4*100 + 0.3*50 + 0.3*10,
		},
		{
			name: "zero everything",
			rec:  keywords.Record{LastPublished: &fixedNow},
			want: 0,
		},
		{
			name: "negative surge drags score down",
			rec:  keywords.Record{CurrentVolume: 50, SurgePercentage: -40, LastPublished: &published},
			want: 0.4*50 + 0.3*(-40) + 0.3*10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.rec, fixedNow)
			if got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	rec := keywords.Record{CurrentVolume: 110, SurgePercentage: 37.5}
	first := Score(rec, fixedNow)
	for i := 0; i < 3; i++ {
		if got := Score(rec, fixedNow); got != first {
			t.Fatalf("Score() varied across calls: %v != %v", got, first)
		}
	}
}

type fakeStore struct {
	records []keywords.Record
	scores  map[int64]float64
}

func (f *fakeStore) All(context.Context) ([]keywords.Record, error) {
	return f.records, nil
}

func (f *fakeStore) UpdateScore(_ context.Context, id int64, score float64) error {
	if f.scores == nil {
		f.scores = make(map[int64]float64)
	}
	f.scores[id] = score
	return nil
}

func TestRecomputeAll(t *testing.T) {
	store := &fakeStore{records: []keywords.Record{
		{ID: 1, CurrentVolume: 100},
		{ID: 2, CurrentVolume: 10, SurgePercentage: 80},
	}}

	r := New(store)
	r.now = func() time.Time { return fixedNow }

	n, err := r.RecomputeAll(context.Background())
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}

	for _, rec := range store.records {
		want := Score(rec, fixedNow)
		if got := store.scores[rec.ID]; got != want {
			t.Errorf("keyword %d score = %v, want %v", rec.ID, got, want)
		}
	}
}

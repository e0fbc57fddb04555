package monitor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MikohMick/SEO-MACHINE/internal/keywords"
	"github.com/MikohMick/SEO-MACHINE/internal/ledger"
)

type fakeStore struct {
	batch   []keywords.Record
	volumes map[int64]int
	failOn  int64
}

func (f *fakeStore) BatchForMonitoring(context.Context, int, time.Duration) ([]keywords.Record, error) {
	return f.batch, nil
}

func (f *fakeStore) UpdateVolume(_ context.Context, id int64, volume int) (keywords.Record, error) {
	if f.volumes == nil {
		f.volumes = make(map[int64]int)
	}
	f.volumes[id] = volume

	var rec keywords.Record
	for _, r := range f.batch {
		if r.ID == id {
			rec = r
			break
		}
	}
	rec.PreviousVolume = rec.CurrentVolume
	rec.CurrentVolume = volume
	if rec.PreviousVolume > 0 {
		rec.SurgePercentage = float64(volume-rec.PreviousVolume) / float64(rec.PreviousVolume) * 100
	}
	return rec, nil
}

type fakeVolumes struct {
	byPhrase map[string]int
	failing  map[string]bool
	fetches  int
}

func (f *fakeVolumes) Cached(context.Context, string) (int, bool) { return 0, false }

func (f *fakeVolumes) Fetch(_ context.Context, phrase string) (int, error) {
	f.fetches++
	if f.failing[phrase] {
		return 0, errors.New("upstream 502")
	}
	return f.byPhrase[phrase], nil
}

type fakeNotifier struct {
	subjects []string
}

func (f *fakeNotifier) Notify(_ context.Context, subject, _ string) {
	f.subjects = append(f.subjects, subject)
}

func record(id int64, phrase string, current int) keywords.Record {
	return keywords.Record{ID: id, ProductID: id, Phrase: phrase, CurrentVolume: current}
}

func defaultConfig() Config {
	return Config{BatchSize: 86, SurgeThreshold: 25, MinSurgeVolume: 50, Staleness: 7 * 24 * time.Hour}
}

func TestRun_DetectsSurge(t *testing.T) {
	store := &fakeStore{batch: []keywords.Record{record(1, "galaxy s25", 80)}}
	volumes := &fakeVolumes{byPhrase: map[string]int{"galaxy s25": 110}}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 67})

	m := New(store, volumes, budget, nil, nil, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 80 -> 110 is a 37.5% jump, above the 25% threshold.
	if sum.Surges != 1 {
		t.Fatalf("surges = %d, want 1", sum.Surges)
	}
	if sum.Checked != 1 {
		t.Fatalf("checked = %d, want 1", sum.Checked)
	}
}

func TestRun_SmallVolumeIsNotASurge(t *testing.T) {
	// 10 -> 20 doubles, but 20 is below the minimum meaningful volume.
	store := &fakeStore{batch: []keywords.Record{record(1, "obscure gadget", 10)}}
	volumes := &fakeVolumes{byPhrase: map[string]int{"obscure gadget": 20}}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 67})

	m := New(store, volumes, budget, nil, nil, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Surges != 0 {
		t.Fatalf("surges = %d, want 0", sum.Surges)
	}
}

func TestRun_StopsWhenBudgetExhausted(t *testing.T) {
	var batch []keywords.Record
	byPhrase := make(map[string]int)
	for i := int64(1); i <= 10; i++ {
		phrase := fmt.Sprintf("keyword %d", i)
		batch = append(batch, record(i, phrase, 100))
		byPhrase[phrase] = 100
	}
	store := &fakeStore{batch: batch}
	volumes := &fakeVolumes{byPhrase: byPhrase}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 4})

	m := New(store, volumes, budget, nil, nil, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !sum.BudgetExhausted {
		t.Fatal("run did not report budget exhaustion")
	}
	if sum.Checked != 4 {
		t.Fatalf("checked = %d, want 4 (budget limit)", sum.Checked)
	}
	if volumes.fetches != 4 {
		t.Fatalf("fetches = %d, want 4; no call may bypass the gate", volumes.fetches)
	}
}

func TestRun_SkipsFailedLookups(t *testing.T) {
	store := &fakeStore{batch: []keywords.Record{
		record(1, "good one", 100),
		record(2, "bad one", 100),
		record(3, "good two", 100),
	}}
	volumes := &fakeVolumes{
		byPhrase: map[string]int{"good one": 100, "good two": 100},
		failing:  map[string]bool{"bad one": true},
	}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 67})

	m := New(store, volumes, budget, nil, nil, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Failed != 1 {
		t.Fatalf("failed = %d, want 1", sum.Failed)
	}
	if sum.Checked != 2 {
		t.Fatalf("checked = %d, want 2; a bad keyword must not stop the run", sum.Checked)
	}
}

func TestRun_NotifiesOnSurgeCluster(t *testing.T) {
	var batch []keywords.Record
	byPhrase := make(map[string]int)
	for i := int64(1); i <= 5; i++ {
		phrase := fmt.Sprintf("hot keyword %d", i)
		batch = append(batch, record(i, phrase, 100))
		byPhrase[phrase] = 200
	}
	store := &fakeStore{batch: batch}
	volumes := &fakeVolumes{byPhrase: byPhrase}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 67})
	notifier := &fakeNotifier{}

	m := New(store, volumes, budget, notifier, nil, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Surges != 5 {
		t.Fatalf("surges = %d, want 5", sum.Surges)
	}
	if len(notifier.subjects) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.subjects))
	}
}

func TestRun_HaltStopsAtRecordBoundary(t *testing.T) {
	store := &fakeStore{batch: []keywords.Record{
		record(1, "first", 100),
		record(2, "second", 100),
	}}
	volumes := &fakeVolumes{byPhrase: map[string]int{"first": 100, "second": 100}}
	budget := ledger.NewMemoryLedger(map[ledger.API]int{ledger.APIKeyword: 67})

	calls := 0
	halted := func(context.Context) bool {
		calls++
		return calls > 1 // allow the first record, halt before the second
	}

	m := New(store, volumes, budget, nil, halted, defaultConfig(), nil)
	sum, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !sum.Halted {
		t.Fatal("run did not report the halt")
	}
	if sum.Checked != 1 {
		t.Fatalf("checked = %d, want 1; the committed record must stay committed", sum.Checked)
	}
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
)

// fakeStop is an in-process StopFlag for tests.
type fakeStop struct {
	engaged atomic.Bool
}

func (f *fakeStop) Engage(context.Context) error { f.engaged.Store(true); return nil }
func (f *fakeStop) Clear(context.Context) error  { f.engaged.Store(false); return nil }
func (f *fakeStop) Engaged(context.Context) bool { return f.engaged.Load() }

// everyInterval fires a fixed duration after each trigger, for loop tests.
type everyInterval time.Duration

func (e everyInterval) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

func TestDailyAt_Next(t *testing.T) {
	sched := DailyAt(0, 9, 12, 15, 18, 21)
	loc := time.UTC

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before first trigger",
			after: time.Date(2026, 4, 10, 6, 30, 0, 0, loc),
			want:  time.Date(2026, 4, 10, 9, 0, 0, 0, loc),
		},
		{
			name:  "between triggers",
			after: time.Date(2026, 4, 10, 13, 0, 0, 0, loc),
			want:  time.Date(2026, 4, 10, 15, 0, 0, 0, loc),
		},
		{
			name:  "exactly on a trigger moves to the next",
			after: time.Date(2026, 4, 10, 12, 0, 0, 0, loc),
			want:  time.Date(2026, 4, 10, 15, 0, 0, 0, loc),
		},
		{
			name:  "after last trigger rolls to tomorrow",
			after: time.Date(2026, 4, 10, 22, 0, 0, 0, loc),
			want:  time.Date(2026, 4, 11, 9, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sched.Next(tt.after); !got.Equal(tt.want) {
				t.Errorf("Next(%v) = %v, want %v", tt.after, got, tt.want)
			}
		})
	}
}

func TestWeeklyAt_Next(t *testing.T) {
	sched := WeeklyAt(time.Sunday, 3, 0)
	loc := time.UTC

	// 2026-04-10 is a Friday.
	after := time.Date(2026, 4, 10, 12, 0, 0, 0, loc)
	want := time.Date(2026, 4, 12, 3, 0, 0, 0, loc)
	if got := sched.Next(after); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}

	// Already past Sunday 03:00 this week.
	after = time.Date(2026, 4, 12, 4, 0, 0, 0, loc)
	want = time.Date(2026, 4, 19, 3, 0, 0, 0, loc)
	if got := sched.Next(after); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}
}

func TestRunJob_Manual(t *testing.T) {
	s := New(nil, nil)
	ran := false
	s.Register("monitoring", nil, func(context.Context) (string, error) {
		ran = true
		return "checked 5 keywords", nil
	})

	summary, err := s.RunJob(context.Background(), "monitoring")
	if err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if !ran {
		t.Fatal("job body did not run")
	}
	if summary != "checked 5 keywords" {
		t.Errorf("summary = %q", summary)
	}

	st := s.Status()
	if len(st) != 1 || st[0].LastOutcome != "success" {
		t.Errorf("status = %+v", st)
	}
}

func TestRunJob_RefusedWhileStopped(t *testing.T) {
	stop := &fakeStop{}
	s := New(stop, nil)
	ran := false
	s.Register("monitoring", nil, func(context.Context) (string, error) {
		ran = true
		return "ok", nil
	})

	if err := s.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("EmergencyStop: %v", err)
	}
	_, err := s.RunJob(context.Background(), "monitoring")
	if !errors.Is(err, apperrors.ErrEmergencyStopped) {
		t.Fatalf("err = %v, want ErrEmergencyStopped", err)
	}
	if ran {
		t.Fatal("job body ran while stopped")
	}

	if err := s.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := s.RunJob(context.Background(), "monitoring"); err != nil {
		t.Fatalf("RunJob after resume: %v", err)
	}
	if !ran {
		t.Fatal("job body did not run after resume")
	}
}

func TestScheduledTriggersSkipWhileStopped(t *testing.T) {
	stop := &fakeStop{}
	stop.engaged.Store(true)

	s := New(stop, nil)
	runs := make(chan struct{}, 16)
	s.Register("content", everyInterval(5*time.Millisecond), func(context.Context) (string, error) {
		runs <- struct{}{}
		return "published", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// Several triggers elapse while the stop is engaged; none may run.
	time.Sleep(60 * time.Millisecond)
	select {
	case <-runs:
		t.Fatal("scheduled trigger ran while stopped")
	default:
	}

	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("no trigger ran after resume")
	}

	cancel()
	<-done
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := New(nil, nil)
	_, err := s.RunJob(context.Background(), "nope")
	if !errors.Is(err, apperrors.ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestRunJob_ReentrancyGuard(t *testing.T) {
	s := New(nil, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	s.Register("content", nil, func(context.Context) (string, error) {
		close(started)
		<-release
		return "done", nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.RunJob(context.Background(), "content"); err != nil {
			t.Errorf("first run: %v", err)
		}
	}()

	<-started
	_, err := s.RunJob(context.Background(), "content")
	if !errors.Is(err, apperrors.ErrJobRunning) {
		t.Fatalf("second run err = %v, want ErrJobRunning", err)
	}

	close(release)
	wg.Wait()

	// Once finished the job can run again.
	release = make(chan struct{})
	started = make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.RunJob(context.Background(), "content")
		close(done)
	}()
	<-started
	close(release)
	<-done
}

func TestRunJob_FailureIsRecorded(t *testing.T) {
	s := New(nil, nil)
	s.Register("cleanup", nil, func(context.Context) (string, error) {
		return "", errors.New("postgres unavailable")
	})

	if _, err := s.RunJob(context.Background(), "cleanup"); err == nil {
		t.Fatal("expected the job error back")
	}
	st := s.Status()
	if st[0].LastOutcome != "failure" {
		t.Errorf("outcome = %q, want failure", st[0].LastOutcome)
	}
	if st[0].LastSummary == "" {
		t.Error("failure summary missing")
	}
}

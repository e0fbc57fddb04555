package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLedger_StopsAtLimit(t *testing.T) {
	l := NewMemoryLedger(map[API]int{APIKeyword: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.TryConsume(ctx, APIKeyword)
		if err != nil {
			t.Fatalf("consume %d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("consume %d denied before limit", i+1)
		}
	}

	ok, err := l.TryConsume(ctx, APIKeyword)
	if err != nil {
		t.Fatalf("consume over limit: %v", err)
	}
	if ok {
		t.Fatal("consume succeeded past the daily limit")
	}

	remaining, err := l.Remaining(ctx, APIKeyword)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestMemoryLedger_DeniedConsumeDoesNotIncrement(t *testing.T) {
	l := NewMemoryLedger(map[API]int{APIContent: 1})
	ctx := context.Background()

	if ok, _ := l.TryConsume(ctx, APIContent); !ok {
		t.Fatal("first consume denied")
	}
	for i := 0; i < 5; i++ {
		if ok, _ := l.TryConsume(ctx, APIContent); ok {
			t.Fatal("consume succeeded past the daily limit")
		}
	}

	l.mu.Lock()
	used := l.used[APIContent]
	l.mu.Unlock()
	if used != 1 {
		t.Fatalf("used = %d after denied consumes, want 1", used)
	}
}

func TestMemoryLedger_ConcurrentConsumersNeverOvershoot(t *testing.T) {
	const limit = 67
	l := NewMemoryLedger(map[API]int{APIKeyword: limit})
	ctx := context.Background()

	var granted atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				ok, err := l.TryConsume(ctx, APIKeyword)
				if err != nil {
					t.Errorf("consume: %v", err)
					return
				}
				if ok {
					granted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != limit {
		t.Fatalf("granted = %d, want exactly %d", got, limit)
	}
}

func TestMemoryLedger_ResetsOnNewDay(t *testing.T) {
	l := NewMemoryLedger(map[API]int{APIKeyword: 2})
	ctx := context.Background()

	day := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	l.TryConsume(ctx, APIKeyword)
	l.TryConsume(ctx, APIKeyword)
	if ok, _ := l.TryConsume(ctx, APIKeyword); ok {
		t.Fatal("consume succeeded past the daily limit")
	}

	day = day.Add(2 * time.Minute) // crosses midnight
	if ok, _ := l.TryConsume(ctx, APIKeyword); !ok {
		t.Fatal("budget did not reset on the new day")
	}
	remaining, _ := l.Remaining(ctx, APIKeyword)
	if remaining != 1 {
		t.Fatalf("remaining = %d after first consume of new day, want 1", remaining)
	}
}

func TestMemoryLedger_UnknownAPI(t *testing.T) {
	l := NewMemoryLedger(map[API]int{APIKeyword: 1})
	if _, err := l.TryConsume(context.Background(), API("nope")); err == nil {
		t.Fatal("expected error for unconfigured api")
	}
	if _, err := l.Remaining(context.Background(), API("nope")); err == nil {
		t.Fatal("expected error for unconfigured api")
	}
}

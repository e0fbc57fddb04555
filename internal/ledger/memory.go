package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger is a process-local ledger. It keeps the same day-keyed
// semantics as the Postgres one and is the implementation of choice for
// tests and single-node runs without a database.
type MemoryLedger struct {
	mu     sync.Mutex
	limits map[API]int
	used   map[API]int
	day    string
	now    func() time.Time
}

// NewMemoryLedger creates an in-memory ledger with per-API daily limits.
func NewMemoryLedger(limits map[API]int) *MemoryLedger {
	return &MemoryLedger{
		limits: limits,
		used:   make(map[API]int),
		now:    time.Now,
	}
}

// TryConsume claims one call under the mutex; usage resets lazily when the
// calendar day changes.
func (l *MemoryLedger) TryConsume(_ context.Context, api API) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[api]
	if !ok {
		return false, fmt.Errorf("no budget configured for api %q", api)
	}

	l.rollDay()
	if l.used[api] >= limit {
		return false, nil
	}
	l.used[api]++
	return true, nil
}

// Remaining reports today's unused budget for the API.
func (l *MemoryLedger) Remaining(_ context.Context, api API) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[api]
	if !ok {
		return 0, fmt.Errorf("no budget configured for api %q", api)
	}

	l.rollDay()
	remaining := limit - l.used[api]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *MemoryLedger) rollDay() {
	today := l.now().Format("2006-01-02")
	if l.day != today {
		l.day = today
		l.used = make(map[API]int)
	}
}

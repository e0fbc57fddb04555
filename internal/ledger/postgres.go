package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MikohMick/SEO-MACHINE/pkg/postgres"
)

// PostgresLedger meters usage in a shared table so every process instance
// draws from the same daily budget.
//
// Schema:
//
//	CREATE TABLE api_usage (
//	    api_name   TEXT NOT NULL,
//	    day        DATE NOT NULL,
//	    calls_used INT NOT NULL DEFAULT 0,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (api_name, day)
//	);
type PostgresLedger struct {
	db     *postgres.Client
	limits map[API]int
	logger *slog.Logger
}

// NewPostgresLedger creates a ledger with per-API daily limits.
func NewPostgresLedger(db *postgres.Client, limits map[API]int) *PostgresLedger {
	return &PostgresLedger{
		db:     db,
		limits: limits,
		logger: slog.Default().With("component", "usage_ledger"),
	}
}

// TryConsume claims one call in a single conditional upsert. The WHERE
// clause makes the increment and the limit check one atomic statement, so
// concurrent callers can never push usage past the limit.
func (l *PostgresLedger) TryConsume(ctx context.Context, api API) (bool, error) {
	limit, ok := l.limits[api]
	if !ok {
		return false, fmt.Errorf("no budget configured for api %q", api)
	}

	res, err := l.db.DB.ExecContext(ctx, `
		INSERT INTO api_usage (api_name, day, calls_used)
		VALUES ($1, CURRENT_DATE, 1)
		ON CONFLICT (api_name, day) DO UPDATE SET
			calls_used = api_usage.calls_used + 1,
			updated_at = NOW()
		WHERE api_usage.calls_used < $2`,
		string(api), limit)
	if err != nil {
		return false, fmt.Errorf("consume %s budget: %w", api, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume %s budget: %w", api, err)
	}
	if n == 0 {
		l.logger.Warn("daily budget exhausted", "api", string(api), "limit", limit)
		return false, nil
	}
	return true, nil
}

// Remaining reports today's unused budget for the API.
func (l *PostgresLedger) Remaining(ctx context.Context, api API) (int, error) {
	limit, ok := l.limits[api]
	if !ok {
		return 0, fmt.Errorf("no budget configured for api %q", api)
	}

	var used int
	err := l.db.DB.QueryRowContext(ctx,
		`SELECT calls_used FROM api_usage WHERE api_name = $1 AND day = CURRENT_DATE`,
		string(api)).Scan(&used)
	if err == sql.ErrNoRows {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s usage: %w", api, err)
	}
	if used >= limit {
		return 0, nil
	}
	return limit - used, nil
}

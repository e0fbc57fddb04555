package keywords

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/postgres"
)

// Store persists keyword records in Postgres.
//
// Schema:
//
//	CREATE TABLE keywords (
//	    id               BIGSERIAL PRIMARY KEY,
//	    product_id       BIGINT NOT NULL,
//	    product_name     TEXT NOT NULL DEFAULT '',
//	    phrase           TEXT NOT NULL,
//	    current_volume   INT NOT NULL DEFAULT 0,
//	    previous_volume  INT NOT NULL DEFAULT 0,
//	    surge_percentage NUMERIC(10,2) NOT NULL DEFAULT 0,
//	    priority_score   NUMERIC(12,4) NOT NULL DEFAULT 0,
//	    total_published  INT NOT NULL DEFAULT 0,
//	    last_checked     TIMESTAMPTZ,
//	    last_published   TIMESTAMPTZ,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    UNIQUE (product_id, phrase)
//	);
//	CREATE INDEX idx_keywords_last_checked ON keywords (last_checked NULLS FIRST);
//	CREATE INDEX idx_keywords_surge ON keywords (surge_percentage DESC);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a keyword store backed by the given Postgres client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "keyword_store"),
	}
}

const recordColumns = `id, product_id, product_name, phrase, current_volume, previous_volume,
	surge_percentage, priority_score, total_published, last_checked, last_published,
	created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var (
		rec           Record
		lastChecked   sql.NullTime
		lastPublished sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.ProductID, &rec.ProductName, &rec.Phrase,
		&rec.CurrentVolume, &rec.PreviousVolume,
		&rec.SurgePercentage, &rec.PriorityScore, &rec.TotalPublished,
		&lastChecked, &lastPublished,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if lastChecked.Valid {
		rec.LastChecked = &lastChecked.Time
	}
	if lastPublished.Valid {
		rec.LastPublished = &lastPublished.Time
	}
	return rec, nil
}

// Upsert inserts a keyword for a product, or refreshes the product name if
// the (product_id, phrase) pair already exists. It returns the record ID.
func (s *Store) Upsert(ctx context.Context, productID int64, productName, phrase string) (int64, error) {
	query := `
		INSERT INTO keywords (product_id, product_name, phrase)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, phrase)
		DO UPDATE SET product_name = EXCLUDED.product_name, updated_at = NOW()
		RETURNING id`

	var id int64
	if err := s.db.DB.QueryRowContext(ctx, query, productID, productName, phrase).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert keyword: %w", err)
	}
	return id, nil
}

// Get returns a single record by ID.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM keywords WHERE id = $1`
	rec, err := scanRecord(s.db.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("keyword %d: %w", id, apperrors.ErrKeywordNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get keyword: %w", err)
	}
	return rec, nil
}

// UpdateVolume rotates the volume pair in a single statement: the current
// volume becomes the previous one, the surge percentage is recomputed from
// the pair, and last_checked is stamped. It returns the updated record so
// callers can inspect the fresh surge value.
func (s *Store) UpdateVolume(ctx context.Context, id int64, volume int) (Record, error) {
	query := `
		UPDATE keywords SET
			previous_volume  = current_volume,
			current_volume   = $2,
			surge_percentage = CASE
				WHEN current_volume > 0
				THEN ROUND((($2 - current_volume)::numeric / current_volume) * 100, 2)
				ELSE 0
			END,
			last_checked = NOW(),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns

	rec, err := scanRecord(s.db.DB.QueryRowContext(ctx, query, id, volume))
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("keyword %d: %w", id, apperrors.ErrKeywordNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("update volume for keyword %d: %w", id, err)
	}
	return rec, nil
}

// BatchForMonitoring returns up to limit records that are due for a volume
// check: never-checked records first, then the stalest ones, with higher
// priority scores breaking ties.
func (s *Store) BatchForMonitoring(ctx context.Context, limit int, staleness time.Duration) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM keywords
		WHERE last_checked IS NULL OR last_checked < NOW() - $2::interval
		ORDER BY last_checked ASC NULLS FIRST, priority_score DESC
		LIMIT $1`

	interval := fmt.Sprintf("%d seconds", int(staleness.Seconds()))
	rows, err := s.db.DB.QueryContext(ctx, query, limit, interval)
	if err != nil {
		return nil, fmt.Errorf("batch for monitoring: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// SurgedSince returns records whose surge percentage meets the threshold and
// whose volume was checked within the window, best surge first.
func (s *Store) SurgedSince(ctx context.Context, threshold float64, window time.Duration) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM keywords
		WHERE surge_percentage >= $1
		  AND last_checked IS NOT NULL
		  AND last_checked > NOW() - $2::interval
		ORDER BY surge_percentage DESC, current_volume DESC, id ASC`

	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))
	rows, err := s.db.DB.QueryContext(ctx, query, threshold, interval)
	if err != nil {
		return nil, fmt.Errorf("surged since: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// FallbackCandidates orders records for quiet days: 40% search volume and
// 60% staleness, so neglected keywords still get coverage.
func (s *Store) FallbackCandidates(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM keywords
		ORDER BY (current_volume * 0.4 +
			COALESCE(EXTRACT(DAY FROM NOW() - last_published), 999) * 0.6) DESC,
			id ASC
		LIMIT $1`

	rows, err := s.db.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback candidates: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// All returns every keyword record, ordered by ID.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM keywords ORDER BY id ASC`
	rows, err := s.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// UpdateScore writes a recomputed priority score.
func (s *Store) UpdateScore(ctx context.Context, id int64, score float64) error {
	_, err := s.db.DB.ExecContext(ctx,
		`UPDATE keywords SET priority_score = $2, updated_at = NOW() WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("update score for keyword %d: %w", id, err)
	}
	return nil
}

// RecordPublished stamps a successful article publish on the keyword.
func (s *Store) RecordPublished(ctx context.Context, id int64) error {
	_, err := s.db.DB.ExecContext(ctx, `
		UPDATE keywords SET
			total_published = total_published + 1,
			last_published  = NOW(),
			updated_at      = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record published for keyword %d: %w", id, err)
	}
	return nil
}

// Stats summarizes the keyword table for the operator status endpoint.
type Stats struct {
	Total          int `json:"total"`
	NeverChecked   int `json:"never_checked"`
	Surging        int `json:"surging"`
	TotalPublished int `json:"total_published"`
}

// Stats returns aggregate counts over all keywords.
func (s *Store) Stats(ctx context.Context, surgeThreshold float64) (Stats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE last_checked IS NULL),
		       COUNT(*) FILTER (WHERE surge_percentage >= $1),
		       COALESCE(SUM(total_published), 0)
		FROM keywords`

	var st Stats
	err := s.db.DB.QueryRowContext(ctx, query, surgeThreshold).
		Scan(&st.Total, &st.NeverChecked, &st.Surging, &st.TotalPublished)
	if err != nil {
		return Stats{}, fmt.Errorf("keyword stats: %w", err)
	}
	return st, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keywords: %w", err)
	}
	return records, nil
}

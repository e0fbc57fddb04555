package keywords

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/postgres"
)

// DuplicateGroup records a phrase shared by more than one product, so the
// same article is not generated twice for the same search intent.
type DuplicateGroup struct {
	ID         int64      `json:"id"`
	Phrase     string     `json:"phrase"`
	KeywordIDs []int64    `json:"keyword_ids"`
	Similarity float64    `json:"similarity"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// DuplicateScanner finds keyword phrases attached to multiple products and
// files them as groups for operator review.
//
// Schema:
//
//	CREATE TABLE duplicate_groups (
//	    id          BIGSERIAL PRIMARY KEY,
//	    phrase      TEXT NOT NULL UNIQUE,
//	    keyword_ids BIGINT[] NOT NULL,
//	    similarity  NUMERIC(4,2) NOT NULL DEFAULT 1.00,
//	    detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    resolved_at TIMESTAMPTZ
//	);
type DuplicateScanner struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewDuplicateScanner creates a scanner over the given Postgres client.
func NewDuplicateScanner(db *postgres.Client) *DuplicateScanner {
	return &DuplicateScanner{
		db:     db,
		logger: slog.Default().With("component", "duplicate_scanner"),
	}
}

// Scan groups keywords by normalized phrase and upserts a group for every
// phrase held by more than one product. Exact phrase matches score a
// similarity of 1.00. It returns the number of open groups after the scan.
func (s *DuplicateScanner) Scan(ctx context.Context) (int, error) {
	query := `
		SELECT LOWER(phrase), ARRAY_AGG(id ORDER BY id)
		FROM keywords
		GROUP BY LOWER(phrase)
		HAVING COUNT(DISTINCT product_id) > 1`

	rows, err := s.db.DB.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("scan duplicates: %w", err)
	}
	defer rows.Close()

	type group struct {
		phrase string
		ids    []int64
	}
	var groups []group
	for rows.Next() {
		var g group
		var ids pq.Int64Array
		if err := rows.Scan(&g.phrase, &ids); err != nil {
			return 0, fmt.Errorf("scan duplicate row: %w", err)
		}
		g.ids = ids
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate duplicates: %w", err)
	}

	// One transaction for the whole batch: a failed upsert must not leave a
	// partially refreshed group set.
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, g := range groups {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO duplicate_groups (phrase, keyword_ids, similarity)
				VALUES ($1, $2, 1.00)
				ON CONFLICT (phrase) DO UPDATE SET
					keyword_ids = EXCLUDED.keyword_ids,
					detected_at = NOW(),
					resolved_at = NULL`,
				g.phrase, pq.Int64Array(g.ids))
			if err != nil {
				return fmt.Errorf("upsert duplicate group %q: %w", g.phrase, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("duplicate scan complete", "groups", len(groups))
	return len(groups), nil
}

// Unresolved returns groups that still need operator attention.
func (s *DuplicateScanner) Unresolved(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, phrase, keyword_ids, similarity, detected_at, resolved_at
		FROM duplicate_groups
		WHERE resolved_at IS NULL
		ORDER BY detected_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var (
			g        DuplicateGroup
			ids      pq.Int64Array
			resolved sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.Phrase, &ids, &g.Similarity, &g.DetectedAt, &resolved); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		g.KeywordIDs = ids
		if resolved.Valid {
			g.ResolvedAt = &resolved.Time
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Resolve marks a group handled. The keywords themselves are untouched;
// which one keeps generating content is the operator's call.
func (s *DuplicateScanner) Resolve(ctx context.Context, id int64) error {
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE duplicate_groups SET resolved_at = NOW() WHERE id = $1 AND resolved_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("resolve duplicate group %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("duplicate group %d: %w", id, apperrors.ErrGroupNotFound)
	}
	return nil
}

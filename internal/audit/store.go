package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikohMick/SEO-MACHINE/pkg/kafka"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
	"github.com/MikohMick/SEO-MACHINE/pkg/postgres"
	"github.com/MikohMick/SEO-MACHINE/pkg/resilience"
)

// Store persists the audit trail and mirrors content outcomes onto the
// audit Kafka topic for downstream consumers.
//
// Schema:
//
//	CREATE TABLE content_log (
//	    id              BIGSERIAL PRIMARY KEY,
//	    keyword_id      BIGINT NOT NULL,
//	    product_id      BIGINT NOT NULL,
//	    phrase          TEXT NOT NULL,
//	    reason          TEXT NOT NULL,
//	    status          TEXT NOT NULL,
//	    post_id         BIGINT NOT NULL DEFAULT 0,
//	    word_count      INT NOT NULL DEFAULT 0,
//	    surge_snapshot  NUMERIC(10,2) NOT NULL DEFAULT 0,
//	    volume_snapshot INT NOT NULL DEFAULT 0,
//	    score_snapshot  NUMERIC(12,4) NOT NULL DEFAULT 0,
//	    error_detail    TEXT NOT NULL DEFAULT '',
//	    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX idx_content_log_created ON content_log (created_at);
//
//	CREATE TABLE api_log (
//	    id          BIGSERIAL PRIMARY KEY,
//	    api_name    TEXT NOT NULL,
//	    endpoint    TEXT NOT NULL,
//	    status_code INT NOT NULL DEFAULT 0,
//	    duration_ms BIGINT NOT NULL DEFAULT 0,
//	    success     BOOLEAN NOT NULL,
//	    detail      TEXT NOT NULL DEFAULT '',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX idx_api_log_created ON api_log (created_at);
type Store struct {
	db      *postgres.Client
	events  *kafka.Producer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStore creates an audit store. The Kafka producer and metrics are
// optional; without them outcomes are only persisted to Postgres.
func NewStore(db *postgres.Client, events *kafka.Producer, m *metrics.Metrics) *Store {
	return &Store{
		db:      db,
		events:  events,
		metrics: m,
		logger:  slog.Default().With("component", "audit_store"),
	}
}

// RecordContent appends one content-generation outcome and publishes it to
// the audit topic. The Kafka mirror is best effort: a broker outage must
// not fail the pipeline once the row is committed.
func (s *Store) RecordContent(ctx context.Context, rec ContentRecord) error {
	err := s.db.DB.QueryRowContext(ctx, `
		INSERT INTO content_log (keyword_id, product_id, phrase, reason, status,
			post_id, word_count, surge_snapshot, volume_snapshot, score_snapshot, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		rec.KeywordID, rec.ProductID, rec.Phrase, rec.Reason, rec.Status,
		rec.PostID, rec.WordCount, rec.SurgeSnapshot, rec.VolumeSnapshot,
		rec.ScoreSnapshot, rec.ErrorDetail,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record content outcome: %w", err)
	}

	s.publishEvent(ctx, "content", rec.Phrase, rec)
	return nil
}

// RecordAPICall appends one external-call log row.
func (s *Store) RecordAPICall(ctx context.Context, call APICall) error {
	if s.metrics != nil {
		outcome := "success"
		if !call.Success {
			outcome = "failure"
		}
		s.metrics.APICallsTotal.WithLabelValues(call.APIName, outcome).Inc()
	}
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO api_log (api_name, endpoint, status_code, duration_ms, success, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		call.APIName, call.Endpoint, call.StatusCode, call.Duration, call.Success, call.Detail)
	if err != nil {
		return fmt.Errorf("record api call: %w", err)
	}
	return nil
}

// CountPublishedToday returns completed articles generated today, the basis
// for the pipeline's remaining-slots calculation.
func (s *Store) CountPublishedToday(ctx context.Context) (int, error) {
	var n int
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_log
		WHERE status = $1 AND created_at >= CURRENT_DATE`, StatusCompleted).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count published today: %w", err)
	}
	return n, nil
}

// RecentContent returns the newest content outcomes for the status endpoint.
func (s *Store) RecentContent(ctx context.Context, limit int) ([]ContentRecord, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, keyword_id, product_id, phrase, reason, status, post_id,
		       word_count, surge_snapshot, volume_snapshot, score_snapshot,
		       error_detail, created_at
		FROM content_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent content: %w", err)
	}
	defer rows.Close()

	var records []ContentRecord
	for rows.Next() {
		var rec ContentRecord
		if err := rows.Scan(&rec.ID, &rec.KeywordID, &rec.ProductID, &rec.Phrase,
			&rec.Reason, &rec.Status, &rec.PostID, &rec.WordCount,
			&rec.SurgeSnapshot, &rec.VolumeSnapshot, &rec.ScoreSnapshot,
			&rec.ErrorDetail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PurgeAPILogsBefore deletes API log rows older than the cutoff.
func (s *Store) PurgeAPILogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM api_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge api logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StalePostIDs returns the storefront post IDs of completed content older
// than the cutoff, so the cleanup job can remove the posts before the rows.
func (s *Store) StalePostIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT post_id FROM content_log
		WHERE status = $1 AND post_id > 0 AND created_at < $2`,
		StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale post ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeContentBefore deletes content log rows older than the cutoff.
func (s *Store) PurgeContentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM content_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge content log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// publishEvent mirrors an audit row to Kafka with a short retry. Failures
// are logged and dropped; Postgres remains the source of truth.
func (s *Store) publishEvent(ctx context.Context, kind, key string, payload any) {
	if s.events == nil {
		return
	}
	value, err := json.Marshal(map[string]any{
		"kind":       kind,
		"payload":    payload,
		"emitted_at": time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("marshal audit event", "error", err)
		return
	}

	err = resilience.Retry(ctx, "audit-publish", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	}, func() error {
		return s.events.Publish(ctx, kafka.Event{Key: key, Value: value})
	})
	if err != nil {
		s.logger.Error("publish audit event", "kind", kind, "error", err)
	}
}

// Package audit keeps the immutable history of what the system did:
// every generated article and every external API call. Rows are appended,
// never updated, and purged only by the retention job.
package audit

import "time"

// Content generation outcomes.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ContentRecord is one article-generation attempt. Surge, volume, and score
// are snapshots taken when the attempt was queued, so later keyword updates
// do not rewrite history.
type ContentRecord struct {
	ID             int64     `json:"id"`
	KeywordID      int64     `json:"keyword_id"`
	ProductID      int64     `json:"product_id"`
	Phrase         string    `json:"phrase"`
	Reason         string    `json:"reason"`
	Status         string    `json:"status"`
	PostID         int64     `json:"post_id,omitempty"`
	WordCount      int       `json:"word_count"`
	SurgeSnapshot  float64   `json:"surge_snapshot"`
	VolumeSnapshot int       `json:"volume_snapshot"`
	ScoreSnapshot  float64   `json:"score_snapshot"`
	ErrorDetail    string    `json:"error_detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// APICall is one outbound request to an external service.
type APICall struct {
	ID         int64     `json:"id"`
	APIName    string    `json:"api_name"`
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"status_code"`
	Duration   int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

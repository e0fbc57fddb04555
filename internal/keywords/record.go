// Package keywords owns keyword records: storage, extraction from product
// titles, and duplicate-group detection.
package keywords

import (
	"time"
)

// neverPublishedDays biases keywords that never produced an article toward
// the top of fallback and priority rankings.
const neverPublishedDays = 999

// Record is a monitored keyword for a single product. The (ProductID,
// Phrase) pair is unique; SurgePercentage is always derived from the volume
// pair during an update, never written independently.
type Record struct {
	ID              int64
	ProductID       int64
	ProductName     string
	Phrase          string
	CurrentVolume   int
	PreviousVolume  int
	SurgePercentage float64
	PriorityScore   float64
	TotalPublished  int
	LastChecked     *time.Time
	LastPublished   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DaysSincePublished returns the whole days since the last published
// article, or 999 when the keyword has never produced one.
func (r Record) DaysSincePublished(now time.Time) float64 {
	if r.LastPublished == nil {
		return neverPublishedDays
	}
	days := now.Sub(*r.LastPublished).Hours() / 24
	if days < 0 {
		return 0
	}
	return float64(int(days))
}

// NeverChecked reports whether the record has never been monitored.
func (r Record) NeverChecked() bool {
	return r.LastChecked == nil
}

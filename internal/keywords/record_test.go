package keywords

import (
	"testing"
	"time"
)

func TestDaysSincePublished(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		published *time.Time
		want      float64
	}{
		{name: "never published", published: nil, want: 999},
		{name: "ten days ago", published: ptr(now.AddDate(0, 0, -10)), want: 10},
		{name: "earlier today", published: ptr(now.Add(-2 * time.Hour)), want: 0},
		{name: "future timestamp clamps to zero", published: ptr(now.Add(6 * time.Hour)), want: 0},
		{name: "partial day truncates", published: ptr(now.Add(-36 * time.Hour)), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{LastPublished: tt.published}
			if got := rec.DaysSincePublished(now); got != tt.want {
				t.Errorf("DaysSincePublished = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeverChecked(t *testing.T) {
	var rec Record
	if !rec.NeverChecked() {
		t.Error("fresh record should report never checked")
	}
	ts := time.Now()
	rec.LastChecked = &ts
	if rec.NeverChecked() {
		t.Error("checked record should not report never checked")
	}
}

func ptr(t time.Time) *time.Time { return &t }

package scheduler

import (
	"sort"
	"time"
)

// Schedule yields trigger times. Implementations work in local time, the
// same clock operators configure against.
type Schedule interface {
	// Next returns the first trigger strictly after the given instant.
	Next(after time.Time) time.Time
}

type dailyAt struct {
	hours  []int
	minute int
}

// DailyAt triggers every day at the given hours, at the given minute. Hours
// are deduplicated and sorted.
func DailyAt(minute int, hours ...int) Schedule {
	hs := make([]int, 0, len(hours))
	seen := make(map[int]struct{}, len(hours))
	for _, h := range hours {
		if _, dup := seen[h]; !dup {
			seen[h] = struct{}{}
			hs = append(hs, h)
		}
	}
	sort.Ints(hs)
	return dailyAt{hours: hs, minute: minute}
}

func (d dailyAt) Next(after time.Time) time.Time {
	y, m, day := after.Date()
	for _, h := range d.hours {
		t := time.Date(y, m, day, h, d.minute, 0, 0, after.Location())
		if t.After(after) {
			return t
		}
	}
	// All of today's triggers have passed; take tomorrow's first.
	return time.Date(y, m, day+1, d.hours[0], d.minute, 0, 0, after.Location())
}

type weeklyAt struct {
	weekday time.Weekday
	hour    int
	minute  int
}

// WeeklyAt triggers once a week on the given weekday and time.
func WeeklyAt(weekday time.Weekday, hour, minute int) Schedule {
	return weeklyAt{weekday: weekday, hour: hour, minute: minute}
}

func (w weeklyAt) Next(after time.Time) time.Time {
	y, m, d := after.Date()
	t := time.Date(y, m, d, w.hour, w.minute, 0, 0, after.Location())
	offset := (int(w.weekday) - int(t.Weekday()) + 7) % 7
	t = t.AddDate(0, 0, offset)
	if !t.After(after) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

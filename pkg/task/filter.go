package task

import (
	"strings"
	"time"
)

// DueBucket groups tasks by how their due date relates to today.
type DueBucket string

const (
	DueAll      DueBucket = "All"
	DueOverdue  DueBucket = "Overdue"
	DueToday    DueBucket = "Today"
	DueUpcoming DueBucket = "Upcoming"
)

func (b DueBucket) Valid() bool {
	switch b {
	case DueAll, DueOverdue, DueToday, DueUpcoming:
		return true
	}
	return false
}

// Filter narrows the task view. All criteria are conjunctive; a zero value
// (or the literal "All") disables that criterion. Filtering never touches
// the network, it runs purely over the last-fetched snapshot.
type Filter struct {
	Query    string
	Status   string
	Priority string
	Tag      string
	Due      DueBucket
}

// Apply returns the tasks matching every set criterion, preserving the
// snapshot's order. now anchors the due-date buckets.
func (f Filter) Apply(tasks []DisplayTask, now time.Time) []DisplayTask {
	out := make([]DisplayTask, 0, len(tasks))
	for _, t := range tasks {
		if f.matches(t, now) {
			out = append(out, t)
		}
	}
	return out
}

func (f Filter) matches(t DisplayTask, now time.Time) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Content), q) && !matchesAnyTag(t.Tags, q) {
			return false
		}
	}
	if f.Status != "" && f.Status != "All" && string(t.Status) != f.Status {
		return false
	}
	if f.Priority != "" && f.Priority != "All" && string(t.Priority) != f.Priority {
		return false
	}
	if f.Tag != "" && f.Tag != "All" && !matchesAnyTag(t.Tags, f.Tag) {
		return false
	}
	return f.matchesDue(t, now)
}

// matchesDue buckets by calendar day, not by instant: a task due later today
// is Today, not Upcoming, regardless of the current time of day.
func (f Filter) matchesDue(t DisplayTask, now time.Time) bool {
	if f.Due == "" || f.Due == DueAll {
		return true
	}
	if t.DueDate == nil {
		return false
	}

	due := dayOf(t.DueDate.Time)
	today := dayOf(now)
	switch f.Due {
	case DueOverdue:
		return due.Before(today)
	case DueToday:
		return due.Equal(today)
	case DueUpcoming:
		return due.After(today)
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func matchesAnyTag(tags []string, query string) bool {
	q := strings.ToLower(query)
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

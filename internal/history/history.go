// Package history merges approved activity submissions and attendance checks
// into one ordered timeline of normalised entries.
package history

import (
	"iter"
	"slices"
	"time"
)

// Kind discriminates the two event variants.
type Kind string

const (
	KindActivity   Kind = "activity"
	KindAttendance Kind = "attendance"
)

// DefaultLayoutCap bounds the ascending view used for tree placement.
const DefaultLayoutCap = 40

// ActivityPayload carries an approved submission.
type ActivityPayload struct {
	ID           uint
	ActivityType string
	Label        string
	Content      string
	Points       int
	CreatedAt    time.Time
}

// AttendancePayload carries an attendance check.
type AttendancePayload struct {
	ID        uint
	Label     string
	Date      time.Time
	Points    int
	CreatedAt time.Time
}

// Event is a tagged variant holding exactly one payload.
type Event struct {
	kind       Kind
	activity   ActivityPayload
	attendance AttendancePayload
}

// Activity wraps an activity payload.
func Activity(payload ActivityPayload) Event {
	return Event{kind: KindActivity, activity: payload}
}

// Attendance wraps an attendance payload.
func Attendance(payload AttendancePayload) Event {
	return Event{kind: KindAttendance, attendance: payload}
}

// Kind returns the discriminant.
func (e Event) Kind() Kind {
	return e.kind
}

// AsActivity returns the activity payload when the event is an activity.
func (e Event) AsActivity() (ActivityPayload, bool) {
	return e.activity, e.kind == KindActivity
}

// AsAttendance returns the attendance payload when the event is an attendance check.
func (e Event) AsAttendance() (AttendancePayload, bool) {
	return e.attendance, e.kind == KindAttendance
}

// Entry is the normalised shape shared by both variants.
type Entry struct {
	Kind      Kind
	SourceID  uint
	Label     string
	Date      time.Time
	Points    int
	Content   string
	Timestamp time.Time
	createdAt time.Time
}

// Normalize converts an event into an entry. Activities are dated by their
// creation time; attendance checks by the start of their recorded day.
func Normalize(e Event) Entry {
	switch e.kind {
	case KindAttendance:
		p := e.attendance
		day := startOfDay(p.Date)
		return Entry{
			Kind:      KindAttendance,
			SourceID:  p.ID,
			Label:     p.Label,
			Date:      day,
			Points:    p.Points,
			Content:   p.Label,
			Timestamp: day,
			createdAt: p.CreatedAt,
		}
	default:
		p := e.activity
		return Entry{
			Kind:      KindActivity,
			SourceID:  p.ID,
			Label:     p.Label,
			Date:      startOfDay(p.CreatedAt),
			Points:    p.Points,
			Content:   p.Content,
			Timestamp: p.CreatedAt,
			createdAt: p.CreatedAt,
		}
	}
}

// Timeline is an immutable, chronologically sorted set of entries.
type Timeline struct {
	entries []Entry
}

// Build normalises events and orders them oldest first. Ties on timestamp fall
// back to creation time and then to input order. The input slice is not modified.
func Build(events []Event) Timeline {
	entries := make([]Entry, 0, len(events))
	for _, event := range events {
		entries = append(entries, Normalize(event))
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return a.createdAt.Compare(b.createdAt)
	})

	return Timeline{entries: entries}
}

// Len returns the number of entries.
func (t Timeline) Len() int {
	return len(t.entries)
}

// Ascending yields entries oldest first. The sequence can be ranged over any number of times.
func (t Timeline) Ascending() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, entry := range t.entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// Descending yields entries most recent first.
func (t Timeline) Descending() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := len(t.entries) - 1; i >= 0; i-- {
			if !yield(t.entries[i]) {
				return
			}
		}
	}
}

// Limit truncates seq after n entries; n <= 0 means no limit.
func Limit(seq iter.Seq[Entry], n int) iter.Seq[Entry] {
	if n <= 0 {
		return seq
	}
	return func(yield func(Entry) bool) {
		count := 0
		for entry := range seq {
			if !yield(entry) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

// Layout returns the first limit entries of the ascending view, i.e. the oldest
// events. A non-positive limit uses DefaultLayoutCap.
func (t Timeline) Layout(limit int) []Entry {
	if limit <= 0 {
		limit = DefaultLayoutCap
	}
	return slices.Collect(Limit(t.Ascending(), limit))
}

func startOfDay(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}

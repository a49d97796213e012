package service

import (
	"strings"
	"time"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// Actor is the authenticated caller. Its ID is the caller's profile id.
type Actor struct {
	ID   uint
	Role string
}

// IsTeacher reports whether the actor holds the teacher role.
func (a Actor) IsTeacher() bool {
	return strings.EqualFold(a.Role, models.RoleTeacher)
}

// CanAccessProfile reports whether the actor may read profileID's records.
func (a Actor) CanAccessProfile(profileID uint) bool {
	return a.IsTeacher() || a.ID == profileID
}

const dateLayout = "2006-01-02"

// parseDay parses an optional YYYY-MM-DD value into UTC midnight. An empty
// value yields today.
func parseDay(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return startOfDay(now), nil
	}
	day, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return day, nil
}

func startOfDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// weekBounds returns the Monday and Sunday of the week containing day.
func weekBounds(day time.Time) (time.Time, time.Time) {
	day = startOfDay(day)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

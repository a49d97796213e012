package history

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func dates(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Date.Format("2006-01-02"))
	}
	return out
}

func TestBuildOrdersAscendingAndDescending(t *testing.T) {
	events := []Event{
		Activity(ActivityPayload{ID: 1, ActivityType: "prayer", Points: 1, CreatedAt: day("2024-01-05")}),
		Activity(ActivityPayload{ID: 2, ActivityType: "word", Points: 1, CreatedAt: day("2024-01-01")}),
		Activity(ActivityPayload{ID: 3, ActivityType: "qt", Points: 1, CreatedAt: day("2024-01-10")}),
	}

	timeline := Build(events)

	require.Equal(t, []string{"2024-01-01", "2024-01-05", "2024-01-10"}, dates(slices.Collect(timeline.Ascending())))
	require.Equal(t, []string{"2024-01-10", "2024-01-05", "2024-01-01"}, dates(slices.Collect(timeline.Descending())))
}

func TestViewsAreRestartable(t *testing.T) {
	timeline := Build([]Event{
		Attendance(AttendancePayload{ID: 1, Label: "출석체크", Date: day("2024-02-04"), Points: 1}),
		Activity(ActivityPayload{ID: 9, Content: "read", Points: 2, CreatedAt: day("2024-02-01")}),
	})

	first := slices.Collect(timeline.Descending())
	second := slices.Collect(timeline.Descending())
	require.Equal(t, first, second)
	require.Len(t, first, 2)
	require.Equal(t, KindAttendance, first[0].Kind)
	require.Equal(t, "출석체크", first[0].Content)
	require.Equal(t, KindActivity, first[1].Kind)
	require.Equal(t, 2, first[1].Points)
}

func TestBuildBreaksTiesByCreationOrder(t *testing.T) {
	sunday := day("2024-03-03")
	timeline := Build([]Event{
		Attendance(AttendancePayload{ID: 7, Date: sunday, Points: 1, CreatedAt: sunday.Add(2 * time.Hour)}),
		Attendance(AttendancePayload{ID: 8, Date: sunday, Points: 1, CreatedAt: sunday.Add(time.Hour)}),
		Activity(ActivityPayload{ID: 3, Points: 1, CreatedAt: sunday}),
	})

	ids := make([]uint, 0, 3)
	for entry := range timeline.Ascending() {
		ids = append(ids, entry.SourceID)
	}
	require.Equal(t, []uint{3, 8, 7}, ids)
}

func TestLayoutKeepsOldestEntries(t *testing.T) {
	start := day("2024-01-01")
	events := make([]Event, 0, 45)
	for i := 44; i >= 0; i-- {
		events = append(events, Activity(ActivityPayload{ID: uint(i + 1), Points: 1, CreatedAt: start.AddDate(0, 0, i)}))
	}

	layout := Build(events).Layout(0)
	require.Len(t, layout, DefaultLayoutCap)
	require.Equal(t, "2024-01-01", layout[0].Date.Format("2006-01-02"))
	require.Equal(t, "2024-02-09", layout[39].Date.Format("2006-01-02"))
}

func TestEventVariantAccessors(t *testing.T) {
	event := Attendance(AttendancePayload{ID: 4})
	require.Equal(t, KindAttendance, event.Kind())

	_, isActivity := event.AsActivity()
	require.False(t, isActivity)

	payload, isAttendance := event.AsAttendance()
	require.True(t, isAttendance)
	require.Equal(t, uint(4), payload.ID)
}

func TestLimitStopsEarly(t *testing.T) {
	timeline := Build([]Event{
		Activity(ActivityPayload{ID: 1, CreatedAt: day("2024-01-01")}),
		Activity(ActivityPayload{ID: 2, CreatedAt: day("2024-01-02")}),
		Activity(ActivityPayload{ID: 3, CreatedAt: day("2024-01-03")}),
	})

	limited := slices.Collect(Limit(timeline.Descending(), 2))
	require.Len(t, limited, 2)
	require.Equal(t, uint(3), limited[0].SourceID)
	require.Len(t, slices.Collect(Limit(timeline.Ascending(), 0)), 3)
}

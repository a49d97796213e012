package models

import "time"

// AttendancePoints is the fixed reward for one attendance check.
const AttendancePoints = 1

// AttendanceLabel is the display label used for attendance in history views.
const AttendanceLabel = "출석체크"

// AttendanceCheck is recorded by a teacher and counts immediately.
type AttendanceCheck struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProfileID  uint      `gorm:"not null;uniqueIndex:idx_attendance_profile_date,priority:1" json:"profile_id"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:idx_attendance_profile_date,priority:2" json:"date"`
	Points     int       `gorm:"not null;default:1" json:"points"`
	RecordedBy uint      `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

package dto

import (
	"time"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// AttendanceCreateRequest records attendance for a student. An empty date means today.
type AttendanceCreateRequest struct {
	ProfileID uint   `json:"profile_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceResponse serializes an attendance check.
type AttendanceResponse struct {
	ID         uint      `json:"id"`
	ProfileID  uint      `json:"profile_id"`
	Date       string    `json:"date"`
	Points     int       `json:"points"`
	RecordedBy uint      `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAttendanceResponse converts an attendance model into a DTO.
func NewAttendanceResponse(model models.AttendanceCheck) AttendanceResponse {
	return AttendanceResponse{
		ID:         model.ID,
		ProfileID:  model.ProfileID,
		Date:       model.Date.Format("2006-01-02"),
		Points:     model.Points,
		RecordedBy: model.RecordedBy,
		CreatedAt:  model.CreatedAt,
	}
}

// AttendanceRecordResponse is returned after recording attendance.
type AttendanceRecordResponse struct {
	Attendance AttendanceResponse `json:"attendance"`
	Balance    int                `json:"balance"`
}

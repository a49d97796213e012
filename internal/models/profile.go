package models

import "time"

const (
	// RoleStudent identifies profiles that earn talent points.
	RoleStudent = "student"
	// RoleTeacher identifies profiles that approve activities and record attendance.
	RoleTeacher = "teacher"
)

// Profile is a learner or teacher account. TalentPoint is a materialised view
// over the approved submissions and attendance checks owned by the profile and
// is only written by the ledger.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Role        string    `gorm:"size:16;not null;default:student" json:"role"`
	TalentPoint int       `gorm:"not null;default:0" json:"talent_point"`
	Theme       string    `gorm:"size:20;not null;default:default" json:"theme"`
	ClassName   string    `gorm:"size:50" json:"class_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsStudent reports whether the profile can hold a talent balance.
func (p Profile) IsStudent() bool {
	return p.Role == RoleStudent
}

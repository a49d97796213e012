package models

import "time"

// ActivitySubmission is a devotional activity reported by a student or
// backfilled by a teacher. Points are fixed at creation time.
type ActivitySubmission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProfileID    uint       `gorm:"not null;index" json:"profile_id"`
	ActivityType string     `gorm:"size:20;not null" json:"activity_type"`
	Content      string     `gorm:"type:text" json:"content"`
	PhotoURL     string     `gorm:"size:512" json:"photo_url"`
	Points       int        `gorm:"not null;default:1" json:"points"`
	Status       string     `gorm:"size:16;not null;index" json:"status"`
	ApprovedBy   *uint      `json:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

const (
	// SubmissionStatusPending marks a submission awaiting teacher approval.
	SubmissionStatusPending = "pending"
	// SubmissionStatusApproved marks a submission counted towards the balance.
	SubmissionStatusApproved = "approved"
)

// Activity types accepted for submissions.
const (
	ActivityPrayer     = "prayer"
	ActivityWord       = "word"
	ActivityTranscribe = "transcribe"
	ActivityQT         = "qt"
	ActivityOther      = "other"
)

var activityLabels = map[string]string{
	ActivityPrayer:     "기도",
	ActivityWord:       "말씀 읽기",
	ActivityTranscribe: "성경 필사",
	ActivityQT:         "QT",
	ActivityOther:      "기타",
}

// ActivityLabel returns the display label for an activity type.
func ActivityLabel(activityType string) string {
	if label, ok := activityLabels[activityType]; ok {
		return label
	}
	return activityType
}

// IsApproved reports whether the submission counts towards the balance.
func (s ActivitySubmission) IsApproved() bool {
	return s.Status == SubmissionStatusApproved
}

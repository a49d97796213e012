package dto

import (
	"time"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// ActivitySubmitRequest is sent by a student for their own activity, or by a
// teacher with ProfileID set to backfill an already approved activity.
type ActivitySubmitRequest struct {
	ProfileID    uint   `json:"profile_id"`
	ActivityType string `json:"activity_type" validate:"required,oneof=prayer word transcribe qt other"`
	Content      string `json:"content" validate:"omitempty,max=2000"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,max=512"`
	Points       int    `json:"points" validate:"required,gte=1,lte=1000"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ActivitySubmissionFilter describes query string filters for listing submissions.
type ActivitySubmissionFilter struct {
	ProfileID *uint  `query:"profile_id"`
	Status    string `query:"status" validate:"omitempty,oneof=pending approved"`
}

// ActivitySubmissionResponse is returned to API clients when viewing submissions.
type ActivitySubmissionResponse struct {
	ID            uint       `json:"id"`
	ProfileID     uint       `json:"profile_id"`
	ActivityType  string     `json:"activity_type"`
	ActivityLabel string     `json:"activity_label"`
	Content       string     `json:"content"`
	PhotoURL      string     `json:"photo_url"`
	Points        int        `json:"points"`
	Status        string     `json:"status"`
	ApprovedBy    *uint      `json:"approved_by"`
	ApprovedAt    *time.Time `json:"approved_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewActivitySubmissionResponse converts a submission model into a DTO.
func NewActivitySubmissionResponse(model models.ActivitySubmission) ActivitySubmissionResponse {
	return ActivitySubmissionResponse{
		ID:            model.ID,
		ProfileID:     model.ProfileID,
		ActivityType:  model.ActivityType,
		ActivityLabel: models.ActivityLabel(model.ActivityType),
		Content:       model.Content,
		PhotoURL:      model.PhotoURL,
		Points:        model.Points,
		Status:        model.Status,
		ApprovedBy:    model.ApprovedBy,
		ApprovedAt:    model.ApprovedAt,
		CreatedAt:     model.CreatedAt,
	}
}

// NewActivitySubmissionResponseSlice converts submission models into DTOs.
func NewActivitySubmissionResponseSlice(items []models.ActivitySubmission) []ActivitySubmissionResponse {
	responses := make([]ActivitySubmissionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewActivitySubmissionResponse(item))
	}
	return responses
}

// ApprovalResponse reports the outcome of an approval. AlreadyApproved is
// informational: the call succeeded without changing the balance, and Signal
// carries the matching error kind so clients can tell it from a failure.
type ApprovalResponse struct {
	SubmissionID    uint   `json:"submission_id"`
	ProfileID       uint   `json:"profile_id"`
	Applied         bool   `json:"applied"`
	AlreadyApproved bool   `json:"already_approved"`
	Signal          string `json:"signal,omitempty"`
	Balance         int    `json:"balance"`
}

// BalanceResponse reports the balance after a committed ledger change.
type BalanceResponse struct {
	ProfileID uint `json:"profile_id"`
	Previous  int  `json:"previous"`
	Balance   int  `json:"balance"`
	Clamped   bool `json:"clamped"`
}

// BackfillResponse is returned when a teacher records an approved activity.
type BackfillResponse struct {
	Submission ActivitySubmissionResponse `json:"submission"`
	Balance    int                        `json:"balance"`
}

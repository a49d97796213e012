package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// ActivitySubmissionFilter allows narrowing submission queries.
type ActivitySubmissionFilter struct {
	ProfileID *uint
	Status    string
}

// ActivitySubmissionRepository defines data operations for activity submissions.
type ActivitySubmissionRepository interface {
	Create(ctx context.Context, submission *models.ActivitySubmission) error
	GetByID(ctx context.Context, id uint) (models.ActivitySubmission, error)
	List(ctx context.Context, filter ActivitySubmissionFilter) ([]models.ActivitySubmission, error)
	ListApproved(ctx context.Context, profileID uint) ([]models.ActivitySubmission, error)
	MarkApproved(ctx context.Context, id, approvedBy uint, at time.Time) (bool, error)
	Delete(ctx context.Context, id uint, status string) (bool, error)
	SumApprovedPoints(ctx context.Context, profileID uint) (int, error)
}

type activitySubmissionRepository struct {
	db *gorm.DB
}

// NewActivitySubmissionRepository instantiates the repository.
func NewActivitySubmissionRepository(db *gorm.DB) ActivitySubmissionRepository {
	return &activitySubmissionRepository{db: db}
}

func (r *activitySubmissionRepository) Create(ctx context.Context, submission *models.ActivitySubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *activitySubmissionRepository) GetByID(ctx context.Context, id uint) (models.ActivitySubmission, error) {
	var submission models.ActivitySubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.ActivitySubmission{}, err
	}

	return submission, nil
}

func (r *activitySubmissionRepository) List(ctx context.Context, filter ActivitySubmissionFilter) ([]models.ActivitySubmission, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivitySubmission{})

	if filter.ProfileID != nil {
		query = query.Where("profile_id = ?", *filter.ProfileID)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var submissions []models.ActivitySubmission
	if err := query.Order("created_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *activitySubmissionRepository) ListApproved(ctx context.Context, profileID uint) ([]models.ActivitySubmission, error) {
	var submissions []models.ActivitySubmission
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Where("status = ?", models.SubmissionStatusApproved).
		Order("created_at ASC").
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// MarkApproved flips a pending submission to approved. It reports false when
// the submission was no longer pending.
func (r *activitySubmissionRepository) MarkApproved(ctx context.Context, id, approvedBy uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ActivitySubmission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusPending).
		Updates(map[string]interface{}{
			"status":      models.SubmissionStatusApproved,
			"approved_by": approvedBy,
			"approved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// Delete removes the submission only while it is still in status.
func (r *activitySubmissionRepository) Delete(ctx context.Context, id uint, status string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, status).
		Delete(&models.ActivitySubmission{})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *activitySubmissionRepository) SumApprovedPoints(ctx context.Context, profileID uint) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ActivitySubmission{}).
		Where("profile_id = ? AND status = ?", profileID, models.SubmissionStatusApproved).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}

	return int(total), nil
}

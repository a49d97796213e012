package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// AttendanceRepository persists attendance checks.
type AttendanceRepository interface {
	Create(ctx context.Context, check *models.AttendanceCheck) error
	GetByID(ctx context.Context, id uint) (models.AttendanceCheck, error)
	Delete(ctx context.Context, id uint) (bool, error)
	ListByProfile(ctx context.Context, profileID uint) ([]models.AttendanceCheck, error)
	ExistsBetween(ctx context.Context, profileID uint, from, to time.Time) (bool, error)
	SumPoints(ctx context.Context, profileID uint) (int, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs the attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, check *models.AttendanceCheck) error {
	return r.db.WithContext(ctx).Create(check).Error
}

func (r *attendanceRepository) GetByID(ctx context.Context, id uint) (models.AttendanceCheck, error) {
	var check models.AttendanceCheck
	if err := r.db.WithContext(ctx).First(&check, id).Error; err != nil {
		return models.AttendanceCheck{}, err
	}

	return check, nil
}

func (r *attendanceRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.AttendanceCheck{}, id)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *attendanceRepository) ListByProfile(ctx context.Context, profileID uint) ([]models.AttendanceCheck, error) {
	var checks []models.AttendanceCheck
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("date ASC").
		Order("id ASC").
		Find(&checks).Error; err != nil {
		return nil, err
	}

	return checks, nil
}

// ExistsBetween reports whether a check exists with from <= date <= to.
func (r *attendanceRepository) ExistsBetween(ctx context.Context, profileID uint, from, to time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AttendanceCheck{}).
		Where("profile_id = ?", profileID).
		Where("date >= ? AND date <= ?", from, to).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *attendanceRepository) SumPoints(ctx context.Context, profileID uint) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.AttendanceCheck{}).
		Where("profile_id = ?", profileID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}

	return int(total), nil
}

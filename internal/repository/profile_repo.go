package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Role      string
	ClassName string
}

// ProfileRepository provides access to profiles and their cached balance.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uint) (models.Profile, error)
	GetByUsername(ctx context.Context, username string) (models.Profile, error)
	GetForUpdate(ctx context.Context, id uint) (models.Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	UpdateBalance(ctx context.Context, id uint, balance int) error
	UpdateTheme(ctx context.Context, id uint, theme string) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return models.Profile{}, err
	}

	return profile, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return models.Profile{}, err
	}

	return profile, nil
}

// GetForUpdate reads the profile with a row lock held until the surrounding
// transaction ends. SQLite ignores the locking clause.
func (r *profileRepository) GetForUpdate(ctx context.Context, id uint) (models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, id).Error; err != nil {
		return models.Profile{}, err
	}

	return profile, nil
}

func (r *profileRepository) List(ctx context.Context, filter ProfileFilter) ([]models.Profile, error) {
	query := r.db.WithContext(ctx).Model(&models.Profile{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.ClassName != "" {
		query = query.Where("class_name = ?", filter.ClassName)
	}

	var profiles []models.Profile
	if err := query.Order("talent_point DESC").Order("username ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}

	return profiles, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepository) UpdateBalance(ctx context.Context, id uint, balance int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("talent_point", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *profileRepository) UpdateTheme(ctx context.Context, id uint, theme string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("theme", theme)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

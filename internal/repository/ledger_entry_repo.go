package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/models"
)

// LedgerEntryFilter narrows ledger audit queries.
type LedgerEntryFilter struct {
	Page        int
	PageSize    int
	ProfileID   *uint
	Source      string
	ClampedOnly bool
}

// LedgerEntryRepository persists the append-only ledger audit trail.
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	List(ctx context.Context, filter LedgerEntryFilter) ([]models.LedgerEntry, int64, error)
}

type ledgerEntryRepository struct {
	db *gorm.DB
}

// NewLedgerEntryRepository constructs the ledger entry repository.
func NewLedgerEntryRepository(db *gorm.DB) LedgerEntryRepository {
	return &ledgerEntryRepository{db: db}
}

func (r *ledgerEntryRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerEntryRepository) List(ctx context.Context, filter LedgerEntryFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{})

	if filter.ProfileID != nil {
		query = query.Where("profile_id = ?", *filter.ProfileID)
	}

	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}

	if filter.ClampedOnly {
		query = query.Where("clamped = ?", true)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.LedgerEntry
	if err := query.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

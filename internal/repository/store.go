package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the ledger repositories bound to one database handle so that a
// unit of work can run every statement inside the same transaction.
type Store interface {
	Profiles() ProfileRepository
	Submissions() ActivitySubmissionRepository
	Attendance() AttendanceRepository
	Ledger() LedgerEntryRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore builds a store over db.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Profiles() ProfileRepository {
	return NewProfileRepository(s.db)
}

func (s *store) Submissions() ActivitySubmissionRepository {
	return NewActivitySubmissionRepository(s.db)
}

func (s *store) Attendance() AttendanceRepository {
	return NewAttendanceRepository(s.db)
}

func (s *store) Ledger() LedgerEntryRepository {
	return NewLedgerEntryRepository(s.db)
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
func (s *store) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

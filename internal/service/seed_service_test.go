package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/talent-tree-api/internal/repository"
)

func TestSeedServiceDisabled(t *testing.T) {
	svc := NewSeedService(nil, nil, nil, false, testLogger())

	_, err := svc.SeedAccounts(context.Background())
	require.ErrorIs(t, err, ErrSeedDisabled)
}

func TestSeedAccountsGrantsStarterPointsOnce(t *testing.T) {
	db := setupServiceDB(t)
	f := &ledgerFixture{db: db}
	f.store = repository.NewStore(db)
	f.ledger = NewLedgerService(f.store, LedgerOptions{MaxAttempts: 1, TxTimeout: time.Second}, testLogger())
	validate := validator.New()

	profiles := NewProfileService(f.store, f.ledger, nil, time.Minute, validate, testLogger())
	submissions := NewActivitySubmissionService(f.store, f.ledger, validate, testLogger())
	svc := NewSeedService(f.store, profiles, submissions, true, testLogger())

	first, err := svc.SeedAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, "teacher", first.Teacher.Username)
	require.Equal(t, "student1", first.Student.Username)
	require.Equal(t, "Faith Class", first.Student.ClassName)
	require.Equal(t, starterPoints, first.Granted)
	require.Equal(t, starterPoints, first.Student.Balance)

	second, err := svc.SeedAccounts(context.Background())
	require.NoError(t, err)
	require.Zero(t, second.Granted)
	require.Equal(t, starterPoints, second.Student.Balance)
	require.Equal(t, f.expectedBalance(t, first.Student.ID), f.balance(t, first.Student.ID))
}

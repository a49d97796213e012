package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

type ledgerFixture struct {
	db          *gorm.DB
	store       repository.Store
	ledger      LedgerService
	submissions ActivitySubmissionService
	attendance  AttendanceService
	teacher     Actor
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.ActivitySubmission{}, &models.AttendanceCheck{}, &models.LedgerEntry{}))
	return db
}

func newLedgerFixture(t *testing.T, logger zerolog.Logger, weeklyOnly bool) *ledgerFixture {
	t.Helper()
	db := setupServiceDB(t)
	store := repository.NewStore(db)
	validate := validator.New()

	ledger := NewLedgerService(store, LedgerOptions{MaxAttempts: 3, TxTimeout: 5 * time.Second}, logger)
	teacher := seedProfile(t, db, "teacher", models.RoleTeacher, 0)

	return &ledgerFixture{
		db:          db,
		store:       store,
		ledger:      ledger,
		submissions: NewActivitySubmissionService(store, ledger, validate, logger),
		attendance:  NewAttendanceService(store, ledger, validate, weeklyOnly, logger),
		teacher:     Actor{ID: teacher.ID, Role: models.RoleTeacher},
	}
}

func seedProfile(t *testing.T, db *gorm.DB, username, role string, balance int) models.Profile {
	t.Helper()
	profile := models.Profile{Username: username, Role: role, Theme: "default", TalentPoint: balance, ClassName: "Faith Class"}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}

func studentActor(profile models.Profile) Actor {
	return Actor{ID: profile.ID, Role: models.RoleStudent}
}

func (f *ledgerFixture) balance(t *testing.T, profileID uint) int {
	t.Helper()
	profile, err := f.store.Profiles().GetByID(t.Context(), profileID)
	require.NoError(t, err)
	return profile.TalentPoint
}

// expectedBalance recomputes the balance from the event log.
func (f *ledgerFixture) expectedBalance(t *testing.T, profileID uint) int {
	t.Helper()
	approved, err := f.store.Submissions().SumApprovedPoints(t.Context(), profileID)
	require.NoError(t, err)
	attendance, err := f.store.Attendance().SumPoints(t.Context(), profileID)
	require.NoError(t, err)
	return max(0, approved+attendance)
}

func (f *ledgerFixture) ledgerEntries(t *testing.T, profileID uint) []models.LedgerEntry {
	t.Helper()
	var entries []models.LedgerEntry
	require.NoError(t, f.db.Where("profile_id = ?", profileID).Order("id ASC").Find(&entries).Error)
	return entries
}

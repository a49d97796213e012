package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

// AttendanceService records teacher attendance checks. Checks count immediately.
type AttendanceService interface {
	Record(ctx context.Context, actor Actor, payload dto.AttendanceCreateRequest) (dto.AttendanceRecordResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) (dto.BalanceResponse, error)
	List(ctx context.Context, actor Actor, profileID uint) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	store      repository.Store
	ledger     LedgerService
	validator  *validator.Validate
	weeklyOnly bool
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAttendanceService constructs the attendance service. With weeklyOnly a
// profile can be checked at most once per Monday-Sunday week.
func NewAttendanceService(store repository.Store, ledger LedgerService, validate *validator.Validate, weeklyOnly bool, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		store:      store,
		ledger:     ledger,
		validator:  validate,
		weeklyOnly: weeklyOnly,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		now:        time.Now,
	}
}

func (s *attendanceService) Record(ctx context.Context, actor Actor, payload dto.AttendanceCreateRequest) (dto.AttendanceRecordResponse, error) {
	if !actor.IsTeacher() {
		return dto.AttendanceRecordResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttendanceRecordResponse{}, validationError("record_attendance", err)
	}

	day, err := parseDay(payload.Date, s.now())
	if err != nil {
		return dto.AttendanceRecordResponse{}, validationError("record_attendance", err)
	}

	var created models.AttendanceCheck
	outcome, err := s.ledger.Execute(ctx, payload.ProfileID, "record_attendance", func(ctx context.Context, tx repository.Store, profile models.Profile) (Delta, error) {
		if !profile.IsStudent() {
			return Delta{}, ErrNotAStudent
		}

		if s.weeklyOnly {
			from, to := weekBounds(day)
			exists, err := tx.Attendance().ExistsBetween(ctx, profile.ID, from, to)
			if err != nil {
				return Delta{}, err
			}
			if exists {
				return Delta{}, ErrAttendanceAlreadyRecorded
			}
		}

		check := models.AttendanceCheck{
			ProfileID:  profile.ID,
			Date:       day,
			Points:     models.AttendancePoints,
			RecordedBy: actor.ID,
		}
		if err := tx.Attendance().Create(ctx, &check); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Delta{}, ErrAttendanceAlreadyRecorded
			}
			return Delta{}, err
		}
		created = check

		return Delta{
			Amount:   check.Points,
			Source:   models.LedgerSourceAttendance,
			SourceID: check.ID,
			Reason:   ReasonRecord,
			Metadata: map[string]interface{}{"actor_id": actor.ID, "date": day.Format(dateLayout)},
		}, nil
	})
	if err != nil {
		return dto.AttendanceRecordResponse{}, err
	}

	s.logger.Info().
		Uint("profile_id", payload.ProfileID).
		Str("date", day.Format(dateLayout)).
		Int("balance", outcome.Balance).
		Msg("attendance recorded")

	return dto.AttendanceRecordResponse{
		Attendance: dto.NewAttendanceResponse(created),
		Balance:    outcome.Balance,
	}, nil
}

func (s *attendanceService) Delete(ctx context.Context, actor Actor, id uint) (dto.BalanceResponse, error) {
	if !actor.IsTeacher() {
		return dto.BalanceResponse{}, ErrForbidden
	}

	var check models.AttendanceCheck
	err := s.ledger.Run(ctx, "delete_attendance", func(ctx context.Context) error {
		found, err := s.store.Attendance().GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttendanceNotFound
		}
		check = found
		return err
	})
	if err != nil {
		return dto.BalanceResponse{}, err
	}

	outcome, err := s.ledger.Execute(ctx, check.ProfileID, "delete_attendance", func(ctx context.Context, tx repository.Store, _ models.Profile) (Delta, error) {
		current, err := tx.Attendance().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Delta{}, ErrAttendanceNotFound
			}
			return Delta{}, err
		}

		deleted, err := tx.Attendance().Delete(ctx, id)
		if err != nil {
			return Delta{}, err
		}
		if !deleted {
			return Delta{}, ErrAttendanceNotFound
		}

		return Delta{
			Amount:   -current.Points,
			Source:   models.LedgerSourceAttendance,
			SourceID: current.ID,
			Reason:   ReasonDelete,
			Metadata: map[string]interface{}{"actor_id": actor.ID, "date": current.Date.Format(dateLayout)},
		}, nil
	})
	if err != nil {
		return dto.BalanceResponse{}, err
	}

	return dto.BalanceResponse{
		ProfileID: outcome.ProfileID,
		Previous:  outcome.Previous,
		Balance:   outcome.Balance,
		Clamped:   outcome.Clamped,
	}, nil
}

func (s *attendanceService) List(ctx context.Context, actor Actor, profileID uint) ([]dto.AttendanceResponse, error) {
	if !actor.CanAccessProfile(profileID) {
		return nil, ErrProfileNotFound
	}
	if _, err := s.store.Profiles().GetByID(ctx, profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, classifyPersistence("list_attendance", err)
	}

	checks, err := s.store.Attendance().ListByProfile(ctx, profileID)
	if err != nil {
		return nil, classifyPersistence("list_attendance", err)
	}

	responses := make([]dto.AttendanceResponse, 0, len(checks))
	for _, check := range checks {
		responses = append(responses, dto.NewAttendanceResponse(check))
	}
	return responses, nil
}

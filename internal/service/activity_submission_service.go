package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

// ActivitySubmissionService implements the approval gate for activity submissions.
type ActivitySubmissionService interface {
	Submit(ctx context.Context, actor Actor, payload dto.ActivitySubmitRequest) (dto.ActivitySubmissionResponse, error)
	Backfill(ctx context.Context, actor Actor, payload dto.ActivitySubmitRequest) (dto.BackfillResponse, error)
	Approve(ctx context.Context, actor Actor, id uint) (dto.ApprovalResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) (dto.BalanceResponse, error)
	List(ctx context.Context, actor Actor, filter dto.ActivitySubmissionFilter) ([]dto.ActivitySubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.ActivitySubmissionResponse, error)
}

type activitySubmissionService struct {
	store     repository.Store
	ledger    LedgerService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActivitySubmissionService constructs the activity submission service.
func NewActivitySubmissionService(store repository.Store, ledger LedgerService, validate *validator.Validate, logger zerolog.Logger) ActivitySubmissionService {
	return &activitySubmissionService{
		store:     store,
		ledger:    ledger,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "activity_submission_service").Logger(),
		now:       time.Now,
	}
}

func (s *activitySubmissionService) Submit(ctx context.Context, actor Actor, payload dto.ActivitySubmitRequest) (dto.ActivitySubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ActivitySubmissionResponse{}, validationError("submit_activity", err)
	}

	var profile models.Profile
	err := s.ledger.Run(ctx, "submit_activity", func(ctx context.Context) error {
		found, err := s.store.Profiles().GetByID(ctx, actor.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		profile = found
		return err
	})
	if err != nil {
		return dto.ActivitySubmissionResponse{}, err
	}
	if !profile.IsStudent() {
		return dto.ActivitySubmissionResponse{}, ErrNotAStudent
	}

	submission := s.buildSubmission(profile.ID, payload)
	err = s.ledger.Run(ctx, "submit_activity", func(ctx context.Context) error {
		attempt := submission
		if err := s.store.Submissions().Create(ctx, &attempt); err != nil {
			return err
		}
		submission = attempt
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("profile_id", profile.ID).Msg("failed to persist activity submission")
		return dto.ActivitySubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("profile_id", profile.ID).
		Uint("submission_id", submission.ID).
		Str("activity_type", submission.ActivityType).
		Msg("activity submitted for approval")

	return dto.NewActivitySubmissionResponse(submission), nil
}

func (s *activitySubmissionService) Backfill(ctx context.Context, actor Actor, payload dto.ActivitySubmitRequest) (dto.BackfillResponse, error) {
	if !actor.IsTeacher() {
		return dto.BackfillResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.BackfillResponse{}, validationError("backfill_activity", err)
	}
	if payload.ProfileID == 0 {
		return dto.BackfillResponse{}, newError(KindValidation, "backfill_activity", "profile_id is required", nil)
	}

	now := s.now().UTC()
	createdAt := now
	if strings.TrimSpace(payload.Date) != "" {
		day, err := parseDay(payload.Date, now)
		if err != nil {
			return dto.BackfillResponse{}, validationError("backfill_activity", err)
		}
		createdAt = day
	}

	var created models.ActivitySubmission
	outcome, err := s.ledger.Execute(ctx, payload.ProfileID, "backfill_activity", func(ctx context.Context, tx repository.Store, profile models.Profile) (Delta, error) {
		if !profile.IsStudent() {
			return Delta{}, ErrNotAStudent
		}

		submission := s.buildSubmission(profile.ID, payload)
		approver := actor.ID
		submission.Status = models.SubmissionStatusApproved
		submission.ApprovedBy = &approver
		submission.ApprovedAt = &now
		submission.CreatedAt = createdAt

		if err := tx.Submissions().Create(ctx, &submission); err != nil {
			return Delta{}, err
		}
		created = submission

		return Delta{
			Amount:   submission.Points,
			Source:   models.LedgerSourceActivity,
			SourceID: submission.ID,
			Reason:   ReasonBackfill,
			Metadata: map[string]interface{}{"actor_id": actor.ID},
		}, nil
	})
	if err != nil {
		return dto.BackfillResponse{}, err
	}

	return dto.BackfillResponse{
		Submission: dto.NewActivitySubmissionResponse(created),
		Balance:    outcome.Balance,
	}, nil
}

func (s *activitySubmissionService) Approve(ctx context.Context, actor Actor, id uint) (dto.ApprovalResponse, error) {
	if !actor.IsTeacher() {
		return dto.ApprovalResponse{}, ErrForbidden
	}

	submission, err := s.lookup(ctx, "approve_submission", id)
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	var alreadyApproved bool
	outcome, err := s.ledger.Execute(ctx, submission.ProfileID, "approve_submission", func(ctx context.Context, tx repository.Store, _ models.Profile) (Delta, error) {
		alreadyApproved = false

		current, err := tx.Submissions().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Delta{}, ErrSubmissionNotFound
			}
			return Delta{}, err
		}
		if current.IsApproved() {
			alreadyApproved = true
			return Delta{}, nil
		}

		updated, err := tx.Submissions().MarkApproved(ctx, id, actor.ID, s.now().UTC())
		if err != nil {
			return Delta{}, err
		}
		if !updated {
			return Delta{}, newError(KindInvalidTransition, "approve_submission", "submission is no longer pending", nil)
		}

		return Delta{
			Amount:   current.Points,
			Source:   models.LedgerSourceActivity,
			SourceID: current.ID,
			Reason:   ReasonApprove,
			Metadata: map[string]interface{}{"actor_id": actor.ID},
		}, nil
	})
	if err != nil {
		return dto.ApprovalResponse{}, err
	}

	resp := dto.ApprovalResponse{
		SubmissionID:    id,
		ProfileID:       submission.ProfileID,
		Applied:         outcome.Applied,
		AlreadyApproved: alreadyApproved,
		Balance:         outcome.Balance,
	}
	if alreadyApproved {
		resp.Signal = string(ErrAlreadyApproved.Kind)
		s.logger.Info().
			Uint("submission_id", id).
			Uint("profile_id", submission.ProfileID).
			Msg(ErrAlreadyApproved.Message)
	}

	return resp, nil
}

func (s *activitySubmissionService) Delete(ctx context.Context, actor Actor, id uint) (dto.BalanceResponse, error) {
	submission, err := s.lookup(ctx, "delete_submission", id)
	if err != nil {
		return dto.BalanceResponse{}, err
	}
	if !actor.CanAccessProfile(submission.ProfileID) {
		return dto.BalanceResponse{}, ErrForbidden
	}

	outcome, err := s.ledger.Execute(ctx, submission.ProfileID, "delete_submission", func(ctx context.Context, tx repository.Store, _ models.Profile) (Delta, error) {
		current, err := tx.Submissions().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Delta{}, ErrSubmissionNotFound
			}
			return Delta{}, err
		}
		// Students may withdraw their own submission only while it is pending.
		if !actor.IsTeacher() && current.IsApproved() {
			return Delta{}, ErrForbidden
		}

		deleted, err := tx.Submissions().Delete(ctx, id, current.Status)
		if err != nil {
			return Delta{}, err
		}
		if !deleted {
			return Delta{}, newError(KindInvalidTransition, "delete_submission", "submission changed state during delete", nil)
		}

		if !current.IsApproved() {
			return Delta{}, nil
		}
		return Delta{
			Amount:   -current.Points,
			Source:   models.LedgerSourceActivity,
			SourceID: current.ID,
			Reason:   ReasonDelete,
			Metadata: map[string]interface{}{"actor_id": actor.ID, "activity_type": current.ActivityType},
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

func (s *activitySubmissionService) List(ctx context.Context, actor Actor, filter dto.ActivitySubmissionFilter) ([]dto.ActivitySubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, validationError("list_submissions", err)
	}

	repoFilter := repository.ActivitySubmissionFilter{
		ProfileID: filter.ProfileID,
		Status:    strings.TrimSpace(filter.Status),
	}
	if !actor.IsTeacher() {
		own := actor.ID
		repoFilter.ProfileID = &own
	}

	submissions, err := s.store.Submissions().List(ctx, repoFilter)
	if err != nil {
		return nil, classifyPersistence("list_submissions", err)
	}

	return dto.NewActivitySubmissionResponseSlice(submissions), nil
}

func (s *activitySubmissionService) Get(ctx context.Context, actor Actor, id uint) (dto.ActivitySubmissionResponse, error) {
	submission, err := s.lookup(ctx, "get_submission", id)
	if err != nil {
		return dto.ActivitySubmissionResponse{}, err
	}
	if !actor.CanAccessProfile(submission.ProfileID) {
		return dto.ActivitySubmissionResponse{}, ErrSubmissionNotFound
	}

	return dto.NewActivitySubmissionResponse(submission), nil
}

func (s *activitySubmissionService) lookup(ctx context.Context, op string, id uint) (models.ActivitySubmission, error) {
	var submission models.ActivitySubmission
	err := s.ledger.Run(ctx, op, func(ctx context.Context) error {
		found, err := s.store.Submissions().GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		submission = found
		return err
	})
	return submission, err
}

func (s *activitySubmissionService) buildSubmission(profileID uint, payload dto.ActivitySubmitRequest) models.ActivitySubmission {
	return models.ActivitySubmission{
		ProfileID:    profileID,
		ActivityType: strings.TrimSpace(payload.ActivityType),
		Content:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Content)),
		PhotoURL:     strings.TrimSpace(payload.PhotoURL),
		Points:       payload.Points,
		Status:       models.SubmissionStatusPending,
	}
}

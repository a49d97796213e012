package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/history"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

// HistoryService builds the merged activity and attendance views of a profile.
type HistoryService interface {
	Get(ctx context.Context, actor Actor, profileID uint, order dto.HistoryOrder, limit int) (dto.HistoryResponse, error)
	Layout(ctx context.Context, actor Actor, profileID uint) (dto.HistoryResponse, error)
}

type historyService struct {
	store     repository.Store
	layoutCap int
	logger    zerolog.Logger
}

// NewHistoryService constructs the history view builder.
func NewHistoryService(store repository.Store, layoutCap int, logger zerolog.Logger) HistoryService {
	if layoutCap <= 0 {
		layoutCap = history.DefaultLayoutCap
	}
	return &historyService{
		store:     store,
		layoutCap: layoutCap,
		logger:    logger.With().Str("component", "history_service").Logger(),
	}
}

// ParseHistoryOrder accepts asc/ascending and desc/descending. Empty means descending.
func ParseHistoryOrder(value string) (dto.HistoryOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "desc", "descending":
		return dto.HistoryDescending, nil
	case "asc", "ascending":
		return dto.HistoryAscending, nil
	default:
		return "", newError(KindValidation, "history", "order must be asc or desc", nil)
	}
}

func (s *historyService) Get(ctx context.Context, actor Actor, profileID uint, order dto.HistoryOrder, limit int) (dto.HistoryResponse, error) {
	timeline, err := s.timeline(ctx, actor, profileID)
	if err != nil {
		return dto.HistoryResponse{}, err
	}

	seq := timeline.Descending()
	if order == dto.HistoryAscending {
		seq = timeline.Ascending()
	} else {
		order = dto.HistoryDescending
	}

	items := make([]dto.HistoryEntryResponse, 0, timeline.Len())
	for entry := range history.Limit(seq, limit) {
		items = append(items, dto.NewHistoryEntryResponse(entry))
	}

	return dto.HistoryResponse{
		ProfileID: profileID,
		Order:     order,
		Total:     timeline.Len(),
		Items:     items,
	}, nil
}

func (s *historyService) Layout(ctx context.Context, actor Actor, profileID uint) (dto.HistoryResponse, error) {
	timeline, err := s.timeline(ctx, actor, profileID)
	if err != nil {
		return dto.HistoryResponse{}, err
	}

	layout := timeline.Layout(s.layoutCap)
	items := make([]dto.HistoryEntryResponse, 0, len(layout))
	for _, entry := range layout {
		items = append(items, dto.NewHistoryEntryResponse(entry))
	}

	return dto.HistoryResponse{
		ProfileID: profileID,
		Order:     dto.HistoryAscending,
		Total:     timeline.Len(),
		Items:     items,
	}, nil
}

// timeline reads both event streams from one snapshot.
func (s *historyService) timeline(ctx context.Context, actor Actor, profileID uint) (history.Timeline, error) {
	if !actor.CanAccessProfile(profileID) {
		return history.Timeline{}, ErrProfileNotFound
	}

	var (
		submissions []models.ActivitySubmission
		checks      []models.AttendanceCheck
	)
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Profiles().GetByID(ctx, profileID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProfileNotFound
			}
			return err
		}

		var err error
		if submissions, err = tx.Submissions().ListApproved(ctx, profileID); err != nil {
			return err
		}
		checks, err = tx.Attendance().ListByProfile(ctx, profileID)
		return err
	})
	if err != nil {
		return history.Timeline{}, classifyPersistence("history", err)
	}

	events := make([]history.Event, 0, len(submissions)+len(checks))
	for _, submission := range submissions {
		events = append(events, history.Activity(history.ActivityPayload{
			ID:           submission.ID,
			ActivityType: submission.ActivityType,
			Label:        models.ActivityLabel(submission.ActivityType),
			Content:      submission.Content,
			Points:       submission.Points,
			CreatedAt:    submission.CreatedAt,
		}))
	}
	for _, check := range checks {
		events = append(events, history.Attendance(history.AttendancePayload{
			ID:        check.ID,
			Label:     models.AttendanceLabel,
			Date:      check.Date,
			Points:    check.Points,
			CreatedAt: check.CreatedAt,
		}))
	}

	timeline := history.Build(events)
	s.logger.Debug().Uint("profile_id", profileID).Int("entries", timeline.Len()).Msg("history timeline built")
	return timeline, nil
}

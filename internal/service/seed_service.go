package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
var ErrSeedDisabled = errors.New("seeding is disabled")

// starterPoints is granted to the seeded student as an approved backfill so
// the balance stays derivable from the event log.
const starterPoints = 5

// SeedResult lists the accounts touched by a seed run.
type SeedResult struct {
	Teacher dto.ProfileViewResponse
	Student dto.ProfileViewResponse
	Granted int
}

// SeedService provisions the default development accounts.
type SeedService interface {
	SeedAccounts(ctx context.Context) (SeedResult, error)
}

type seedService struct {
	store       repository.Store
	profiles    ProfileService
	submissions ActivitySubmissionService
	enabled     bool
	logger      zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(store repository.Store, profiles ProfileService, submissions ActivitySubmissionService, enabled bool, logger zerolog.Logger) SeedService {
	return &seedService{
		store:       store,
		profiles:    profiles,
		submissions: submissions,
		enabled:     enabled,
		logger:      logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedAccounts(ctx context.Context) (SeedResult, error) {
	if !s.enabled {
		return SeedResult{}, ErrSeedDisabled
	}

	teacher, err := s.profiles.Provision(ctx, dto.ProvisionProfileRequest{
		Username: "teacher",
		Role:     models.RoleTeacher,
	})
	if err != nil {
		return SeedResult{}, err
	}

	student, err := s.profiles.Provision(ctx, dto.ProvisionProfileRequest{
		Username:    "student1",
		DisplayName: "Test Student",
		Role:        models.RoleStudent,
		ClassName:   "Faith Class",
	})
	if err != nil {
		return SeedResult{}, err
	}

	result := SeedResult{Teacher: teacher, Student: student}

	studentID := student.ID
	existing, err := s.store.Submissions().List(ctx, repository.ActivitySubmissionFilter{ProfileID: &studentID})
	if err != nil {
		return SeedResult{}, classifyPersistence("seed_accounts", err)
	}
	if len(existing) == 0 {
		actor := Actor{ID: teacher.ID, Role: models.RoleTeacher}
		backfill, err := s.submissions.Backfill(ctx, actor, dto.ActivitySubmitRequest{
			ProfileID:    studentID,
			ActivityType: models.ActivityOther,
			Content:      "starter points",
			Points:       starterPoints,
		})
		if err != nil {
			return SeedResult{}, err
		}
		result.Granted = starterPoints
		s.logger.Info().Uint("profile_id", studentID).Int("balance", backfill.Balance).Msg("starter points granted")
	}

	if result.Student, err = s.profiles.GetView(ctx, studentID); err != nil {
		return SeedResult{}, err
	}

	s.logger.Info().Uint("teacher_id", teacher.ID).Uint("student_id", studentID).Msg("accounts seeded")
	return result, nil
}

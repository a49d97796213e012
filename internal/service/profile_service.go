package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/progression"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

// ProfileService serves derived profile views. It also observes committed
// balance changes to drop cached views.
type ProfileService interface {
	BalanceObserver
	GetView(ctx context.Context, profileID uint) (dto.ProfileViewResponse, error)
	SelectTheme(ctx context.Context, actor Actor, profileID uint, payload dto.ThemeUpdateRequest) (dto.ProfileViewResponse, error)
	Forest(ctx context.Context, req dto.ForestRequest) ([]dto.ProfileViewResponse, error)
	Provision(ctx context.Context, payload dto.ProvisionProfileRequest) (dto.ProfileViewResponse, error)
}

type profileService struct {
	store     repository.Store
	ledger    LedgerService
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProfileService builds the profile view service. cache may be nil. The
// service registers itself as a ledger observer.
func NewProfileService(store repository.Store, ledger LedgerService, cache *redis.Client, ttl time.Duration, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	svc := &profileService{
		store:     store,
		ledger:    ledger,
		cache:     cache,
		cacheTTL:  ttl,
		validator: validate,
		logger:    logger.With().Str("component", "profile_service").Logger(),
	}
	ledger.Observe(svc)
	return svc
}

var errStaleProfileView = errors.New("profile view changed while it was being read")

func profileCacheKey(profileID uint) string {
	return fmt.Sprintf("profile:view:%d", profileID)
}

// profileVersionKey counts invalidations of a profile's cached view. A fill
// only lands while the counter still holds the value read before the store.
func profileVersionKey(profileID uint) string {
	return fmt.Sprintf("profile:view:ver:%d", profileID)
}

func (s *profileService) GetView(ctx context.Context, profileID uint) (dto.ProfileViewResponse, error) {
	cacheKey := profileCacheKey(profileID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProfileViewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("profile_id", profileID).Msg("profile view cache hit")
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read profile view cache")
		}
	}

	version, versioned := s.cacheVersion(ctx, profileID)

	profile, err := s.store.Profiles().GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileViewResponse{}, ErrProfileNotFound
		}
		return dto.ProfileViewResponse{}, classifyPersistence("get_profile_view", err)
	}

	response := dto.NewProfileViewResponse(profile)

	if versioned {
		s.fill(ctx, profileID, version, response)
	}

	return response, nil
}

func (s *profileService) cacheVersion(ctx context.Context, profileID uint) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	version, err := s.cache.Get(ctx, profileVersionKey(profileID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		s.logger.Warn().Err(err).Uint("profile_id", profileID).Msg("failed to read profile view version")
		return "", false
	}
	return version, true
}

func (s *profileService) fill(ctx context.Context, profileID uint, version string, response dto.ProfileViewResponse) {
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}

	versionKey := profileVersionKey(profileID)
	err = s.cache.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = "0"
		case err != nil:
			return err
		}
		if current != version {
			return errStaleProfileView
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileCacheKey(profileID), payload, s.cacheTTL)
			return nil
		})
		return err
	}, versionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleProfileView), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug().Uint("profile_id", profileID).Msg("skipped stale profile view fill")
	default:
		s.logger.Warn().Err(err).Msg("failed to store profile view cache")
	}
}

func (s *profileService) SelectTheme(ctx context.Context, actor Actor, profileID uint, payload dto.ThemeUpdateRequest) (dto.ProfileViewResponse, error) {
	if !actor.CanAccessProfile(profileID) {
		return dto.ProfileViewResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileViewResponse{}, validationError("select_theme", err)
	}
	theme := strings.TrimSpace(payload.Theme)

	apply := func(ctx context.Context, tx repository.Store, profile models.Profile) (Delta, error) {
		if !progression.IsUnlocked(profile.TalentPoint, theme) {
			return Delta{}, ErrThemeLocked
		}
		if err := tx.Profiles().UpdateTheme(ctx, profile.ID, theme); err != nil {
			return Delta{}, err
		}
		return Delta{}, nil
	}

	// Runs as a zero-delta unit of work so the unlock check sees the same
	// balance a concurrent delete would.
	if _, err := s.ledger.Execute(ctx, profileID, "select_theme", apply); err != nil {
		return dto.ProfileViewResponse{}, err
	}

	s.invalidate(ctx, profileID)
	return s.GetView(ctx, profileID)
}

func (s *profileService) Forest(ctx context.Context, req dto.ForestRequest) ([]dto.ProfileViewResponse, error) {
	profiles, err := s.store.Profiles().List(ctx, repository.ProfileFilter{
		Role:      models.RoleStudent,
		ClassName: strings.TrimSpace(req.ClassName),
	})
	if err != nil {
		return nil, classifyPersistence("forest", err)
	}

	views := make([]dto.ProfileViewResponse, 0, len(profiles))
	for _, profile := range profiles {
		views = append(views, dto.NewProfileViewResponse(profile))
	}
	return views, nil
}

func (s *profileService) Provision(ctx context.Context, payload dto.ProvisionProfileRequest) (dto.ProfileViewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileViewResponse{}, validationError("provision_profile", err)
	}

	username := strings.TrimSpace(payload.Username)
	if existing, err := s.store.Profiles().GetByUsername(ctx, username); err == nil {
		return dto.NewProfileViewResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileViewResponse{}, classifyPersistence("provision_profile", err)
	}

	displayName := strings.TrimSpace(payload.DisplayName)
	if displayName == "" {
		displayName = username
	}

	profile := models.Profile{
		Username:    username,
		DisplayName: displayName,
		Role:        payload.Role,
		ClassName:   strings.TrimSpace(payload.ClassName),
		Theme:       progression.ThemeDefault,
	}
	if err := s.store.Profiles().Create(ctx, &profile); err != nil {
		return dto.ProfileViewResponse{}, classifyPersistence("provision_profile", err)
	}

	s.logger.Info().Uint("profile_id", profile.ID).Str("username", username).Str("role", profile.Role).Msg("profile provisioned")
	return dto.NewProfileViewResponse(profile), nil
}

func (s *profileService) BalanceChanged(ctx context.Context, event dto.BalanceEvent) {
	s.invalidate(ctx, event.ProfileID)
}

func (s *profileService) invalidate(ctx context.Context, profileID uint) {
	if s.cache == nil {
		return
	}
	_, err := s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, profileVersionKey(profileID))
		pipe.Del(ctx, profileCacheKey(profileID))
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("profile_id", profileID).Msg("failed to invalidate profile view cache")
	}
}

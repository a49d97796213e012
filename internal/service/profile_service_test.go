package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
)

func newCacheClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func newProfileFixture(t *testing.T) (*ledgerFixture, ProfileService, *miniredis.Miniredis) {
	t.Helper()
	client, mini := newCacheClient(t)
	f := newLedgerFixture(t, testLogger(), false)
	svc := NewProfileService(f.store, f.ledger, client, time.Minute, validator.New(), testLogger())
	return f, svc, mini
}

// pausedProfiles holds the first GetByID after it has read the row until
// release is closed.
type pausedProfiles struct {
	repository.ProfileRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausedProfiles) GetByID(ctx context.Context, id uint) (models.Profile, error) {
	profile, err := p.ProfileRepository.GetByID(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return profile, err
}

type pausedStore struct {
	repository.Store
	profiles *pausedProfiles
}

func (s pausedStore) Profiles() repository.ProfileRepository {
	return s.profiles
}

func TestProfileViewReadBeforeBalanceChangeIsNotCached(t *testing.T) {
	client, mini := newCacheClient(t)
	f := newLedgerFixture(t, testLogger(), false)
	ctx := context.Background()
	student := seedProfile(t, f.db, "student1", models.RoleStudent, 29)

	paused := &pausedProfiles{
		ProfileRepository: f.store.Profiles(),
		read:              make(chan struct{}),
		release:           make(chan struct{}),
	}
	svc := NewProfileService(pausedStore{Store: f.store, profiles: paused}, f.ledger, client, time.Minute, validator.New(), testLogger())

	type result struct {
		view dto.ProfileViewResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		view, err := svc.GetView(ctx, student.ID)
		done <- result{view: view, err: err}
	}()

	<-paused.read
	recorded, err := f.attendance.Record(ctx, f.teacher, dto.AttendanceCreateRequest{ProfileID: student.ID, Date: "2024-01-03"})
	require.NoError(t, err)
	require.Equal(t, 30, recorded.Balance)
	close(paused.release)

	first := <-done
	require.NoError(t, first.err)
	require.Equal(t, 29, first.view.Balance)
	require.False(t, mini.Exists(profileCacheKey(student.ID)))

	view, err := svc.GetView(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 30, view.Balance)
	require.Equal(t, 2, view.Level)
	require.True(t, mini.Exists(profileCacheKey(student.ID)))
}

type cacheStateObserver struct {
	mini   *miniredis.Miniredis
	key    string
	cached []bool
}

func (o *cacheStateObserver) BalanceChanged(_ context.Context, _ dto.BalanceEvent) {
	o.cached = append(o.cached, o.mini.Exists(o.key))
}

func TestProfileViewDroppedBeforeLaterObservers(t *testing.T) {
	f, svc, mini := newProfileFixture(t)
	ctx := context.Background()
	student := seedProfile(t, f.db, "student1", models.RoleStudent, 29)

	_, err := svc.GetView(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, mini.Exists(profileCacheKey(student.ID)))

	observer := &cacheStateObserver{mini: mini, key: profileCacheKey(student.ID)}
	f.ledger.Observe(observer)

	_, err = f.attendance.Record(ctx, f.teacher, dto.AttendanceCreateRequest{ProfileID: student.ID, Date: "2024-01-03"})
	require.NoError(t, err)
	require.Equal(t, []bool{false}, observer.cached)
	require.Equal(t, "1", mustGet(t, mini, profileVersionKey(student.ID)))
}

func mustGet(t *testing.T, mini *miniredis.Miniredis, key string) string {
	t.Helper()
	value, err := mini.Get(key)
	require.NoError(t, err)
	return value
}

func TestProfileViewCachingAndInvalidation(t *testing.T) {
	f, svc, mini := newProfileFixture(t)
	ctx := context.Background()
	student := seedProfile(t, f.db, "student1", models.RoleStudent, 29)

	view, err := svc.GetView(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 29, view.Balance)
	require.Equal(t, 1, view.Level)
	require.Equal(t, []string{"default"}, view.UnlockedThemes)
	require.True(t, mini.Exists(profileCacheKey(student.ID)))

	submitted, err := f.submissions.Submit(ctx, studentActor(student), dto.ActivitySubmitRequest{ActivityType: models.ActivityPrayer, Points: 1})
	require.NoError(t, err)
	_, err = f.submissions.Approve(ctx, f.teacher, submitted.ID)
	require.NoError(t, err)
	require.False(t, mini.Exists(profileCacheKey(student.ID)), "committed balance change drops the cached view")

	view, err = svc.GetView(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, 30, view.Balance)
	require.Equal(t, 2, view.Level)
	require.Equal(t, "flourishing", view.LevelTitle)
	require.Contains(t, view.UnlockedThemes, "spring")
	require.Contains(t, view.UnlockedThemes, "summer")

	_, err = svc.GetView(ctx, 404)
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSelectThemeEnforcesUnlocks(t *testing.T) {
	f, svc, _ := newProfileFixture(t)
	ctx := context.Background()
	student := seedProfile(t, f.db, "student1", models.RoleStudent, 45)
	other := seedProfile(t, f.db, "student2", models.RoleStudent, 0)

	_, err := svc.SelectTheme(ctx, studentActor(student), student.ID, dto.ThemeUpdateRequest{Theme: "winter"})
	require.ErrorIs(t, err, ErrThemeLocked)

	view, err := svc.SelectTheme(ctx, studentActor(student), student.ID, dto.ThemeUpdateRequest{Theme: "summer"})
	require.NoError(t, err)
	require.Equal(t, "summer", view.Theme)

	_, err = svc.SelectTheme(ctx, studentActor(other), student.ID, dto.ThemeUpdateRequest{Theme: "default"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SelectTheme(ctx, studentActor(student), student.ID, dto.ThemeUpdateRequest{Theme: "neon"})
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, f.ledgerEntries(t, student.ID), "theme changes never touch the balance")
}

func TestForestOrdersByBalance(t *testing.T) {
	f, svc, _ := newProfileFixture(t)
	ctx := context.Background()
	seedProfile(t, f.db, "bora", models.RoleStudent, 12)
	seedProfile(t, f.db, "ari", models.RoleStudent, 12)
	seedProfile(t, f.db, "chan", models.RoleStudent, 95)

	forest, err := svc.Forest(ctx, dto.ForestRequest{})
	require.NoError(t, err)
	require.Len(t, forest, 3, "teachers are not part of the forest")

	names := []string{forest[0].Username, forest[1].Username, forest[2].Username}
	require.Equal(t, []string{"chan", "ari", "bora"}, names)
	require.Equal(t, "legendary", forest[0].GrowthStage)
	require.Equal(t, 100.0, forest[0].ProgressPercent)
}

func TestProvisionProfileIsIdempotent(t *testing.T) {
	_, svc, _ := newProfileFixture(t)
	ctx := context.Background()

	created, err := svc.Provision(ctx, dto.ProvisionProfileRequest{Username: "student9", Role: models.RoleStudent, ClassName: "Hope Class"})
	require.NoError(t, err)
	require.Zero(t, created.Balance)
	require.Equal(t, "student9", created.DisplayName)
	require.Equal(t, "default", created.Theme)

	again, err := svc.Provision(ctx, dto.ProvisionProfileRequest{Username: "student9", Role: models.RoleStudent})
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)

	_, err = svc.Provision(ctx, dto.ProvisionProfileRequest{Username: "x", Role: "admin"})
	require.ErrorIs(t, err, ErrValidation)
}

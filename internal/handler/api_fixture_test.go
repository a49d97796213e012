package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/talent-tree-api/internal/config"
	"github.com/noah-isme/talent-tree-api/internal/database"
	"github.com/noah-isme/talent-tree-api/internal/handler"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/repository"
	"github.com/noah-isme/talent-tree-api/internal/router"
	"github.com/noah-isme/talent-tree-api/internal/service"
)

const fixtureSecret = "handler-test-secret"

type apiFixture struct {
	app         *fiber.App
	db          *gorm.DB
	broadcaster service.BalanceBroadcaster
	teacher     models.Profile
	student     models.Profile
	other       models.Profile
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)

	ledger := service.NewLedgerService(store, service.LedgerOptions{MaxAttempts: 3, TxTimeout: 5 * time.Second}, logger)
	profiles := service.NewProfileService(store, ledger, nil, time.Minute, validate, logger)
	broadcaster := service.NewBalanceBroadcaster(nil, "", nil, logger)
	ledger.Observe(broadcaster)
	submissions := service.NewActivitySubmissionService(store, ledger, validate, logger)
	attendance := service.NewAttendanceService(store, ledger, validate, true, logger)
	historySvc := service.NewHistoryService(store, 40, logger)

	cfg := config.Config{AppName: "Talent Tree API", AppEnv: "test", JWTSecret: fixtureSecret}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: handler.NewActivitySubmissionHandler(submissions, logger),
		AttendanceHandler: handler.NewAttendanceHandler(attendance, logger),
		ProfileHandler:    handler.NewProfileHandler(profiles, logger),
		HistoryHandler:    handler.NewHistoryHandler(historySvc, logger),
		LedgerHandler:     handler.NewLedgerHandler(ledger, logger),
		LiveHandler:       handler.NewLiveHandler(profiles, broadcaster, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	fixture := &apiFixture{app: app, db: db, broadcaster: broadcaster}
	fixture.teacher = createProfile(t, db, "teacher", models.RoleTeacher, "")
	fixture.student = createProfile(t, db, "student1", models.RoleStudent, "Faith Class")
	fixture.other = createProfile(t, db, "student2", models.RoleStudent, "Faith Class")
	return fixture
}

func createProfile(t *testing.T, db *gorm.DB, username, role, className string) models.Profile {
	t.Helper()
	profile := models.Profile{Username: username, DisplayName: username, Role: role, Theme: "default", ClassName: className}
	require.NoError(t, db.Create(&profile).Error)
	return profile
}

func tokenFor(t *testing.T, profile models.Profile) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  profile.ID,
		"role": profile.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(fixtureSecret))
	require.NoError(t, err)
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path string, as models.Profile, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as.ID != 0 {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, as))
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) balance(t *testing.T, profileID uint) int {
	t.Helper()
	var profile models.Profile
	require.NoError(t, f.db.First(&profile, profileID).Error)
	return profile.TalentPoint
}

func readEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	var env envelope
	decodeResponse(t, resp, &env)
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

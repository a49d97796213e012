package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/service"
	"github.com/noah-isme/talent-tree-api/internal/utils"
)

// ProfileHandler serves balances with their derived progression.
type ProfileHandler struct {
	service service.ProfileService
	logger  zerolog.Logger
}

// NewProfileHandler builds the profile handler.
func NewProfileHandler(service service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger.With().Str("component", "profile_handler").Logger(),
	}
}

// Register attaches profile routes to the v2 root group.
func (h *ProfileHandler) Register(router fiber.Router) {
	router.Post("/profiles", middleware.RequireRole(models.RoleTeacher), h.provision)
	router.Get("/profiles/me", h.me)
	router.Get("/profiles/:id", h.get)
	router.Patch("/profiles/:id/theme", h.selectTheme)
	router.Get("/forest", h.forest)
}

func (h *ProfileHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	view, err := h.service.GetView(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "profile retrieved", view)
}

// provision creates a profile, or returns the existing one for a known username.
func (h *ProfileHandler) provision(c *fiber.Ctx) error {
	var payload dto.ProvisionProfileRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.service.Provision(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "profile provisioned", view)
}

func (h *ProfileHandler) get(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	view, err := h.service.GetView(requestContext(c), profileID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "profile retrieved", view)
}

func (h *ProfileHandler) selectTheme(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ThemeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	view, err := h.service.SelectTheme(requestContext(c), actorFromContext(c), profileID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "theme updated", view)
}

func (h *ProfileHandler) forest(c *fiber.Ctx) error {
	views, err := h.service.Forest(requestContext(c), dto.ForestRequest{ClassName: c.Query("class_name")})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "forest retrieved", views)
}

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

// ActivitySubmissionHandler exposes the approval gate.
type ActivitySubmissionHandler struct {
	service service.ActivitySubmissionService
	logger  zerolog.Logger
}

// NewActivitySubmissionHandler builds the submission handler.
func NewActivitySubmissionHandler(service service.ActivitySubmissionService, logger zerolog.Logger) *ActivitySubmissionHandler {
	return &ActivitySubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivitySubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/approve", middleware.RequireRole(models.RoleTeacher), h.approve)
	router.Delete("/:id", h.delete)
}

func (h *ActivitySubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.ActivitySubmissionFilter{Status: c.Query("status")}
	profileID, err := parseQueryUint(c, "profile_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ProfileID = profileID

	submissions, err := h.service.List(requestContext(c), actorFromContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *ActivitySubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.ActivitySubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := actorFromContext(c)
	ctx := requestContext(c)

	// Teachers recording an activity for a student backfill it as approved.
	if actor.IsTeacher() && payload.ProfileID != 0 {
		result, err := h.service.Backfill(ctx, actor, payload)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		requestLogger(h.logger, c).Info().
			Uint("profile_id", payload.ProfileID).
			Uint("submission_id", result.Submission.ID).
			Msg("activity backfilled")
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity recorded", result)
	}

	submission, err := h.service.Submit(ctx, actor, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *ActivitySubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *ActivitySubmissionHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Approve(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if result.Signal == string(service.KindAlreadyApproved) {
		return utils.SendSuccess(c, service.ErrAlreadyApproved.Message, result)
	}
	return utils.SendSuccess(c, "submission approved", result)
}

func (h *ActivitySubmissionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Delete(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission deleted", result)
}

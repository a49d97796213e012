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

// AttendanceHandler exposes attendance checks.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler builds the attendance handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches attendance routes to the v2 root group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	teacherOnly := middleware.RequireRole(models.RoleTeacher)
	router.Post("/attendance", teacherOnly, h.record)
	router.Delete("/attendance/:id", teacherOnly, h.delete)
	router.Get("/profiles/:id/attendance", h.list)
}

func (h *AttendanceHandler) record(c *fiber.Ctx) error {
	var payload dto.AttendanceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Record(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", result)
}

func (h *AttendanceHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Delete(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attendance deleted", result)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	checks, err := h.service.List(requestContext(c), actorFromContext(c), profileID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", checks)
}

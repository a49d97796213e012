package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/service"
	"github.com/noah-isme/talent-tree-api/internal/utils"
)

// HistoryHandler serves the merged activity and attendance views.
type HistoryHandler struct {
	service service.HistoryService
	logger  zerolog.Logger
}

// NewHistoryHandler builds the history handler.
func NewHistoryHandler(service service.HistoryService, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger.With().Str("component", "history_handler").Logger(),
	}
}

// Register attaches history routes to the v2 root group.
func (h *HistoryHandler) Register(router fiber.Router) {
	router.Get("/profiles/:id/history", h.history)
	router.Get("/profiles/:id/layout", h.layout)
}

func (h *HistoryHandler) history(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	order, err := service.ParseHistoryOrder(c.Query("order"))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	view, err := h.service.Get(requestContext(c), actorFromContext(c), profileID, order, limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "history retrieved", view)
}

func (h *HistoryHandler) layout(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	view, err := h.service.Layout(requestContext(c), actorFromContext(c), profileID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "layout retrieved", view)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/service"
	"github.com/noah-isme/talent-tree-api/internal/utils"
)

// LedgerHandler exposes the ledger audit trail and repair tooling.
type LedgerHandler struct {
	service service.LedgerService
	logger  zerolog.Logger
}

// NewLedgerHandler builds the ledger handler.
func NewLedgerHandler(service service.LedgerService, logger zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger.With().Str("component", "ledger_handler").Logger(),
	}
}

// Register attaches ledger routes to the v2 root group.
func (h *LedgerHandler) Register(router fiber.Router) {
	router.Get("/profiles/:id/ledger", h.list)
	router.Post("/profiles/:id/reconcile", middleware.WithAuth(h.reconcile, middleware.AuthOptions{Role: middleware.AuthRoleTeacher}))
}

func (h *LedgerHandler) list(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if !actorFromContext(c).CanAccessProfile(profileID) {
		return utils.SendError(c, fiber.StatusNotFound, "profile not found")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.LedgerListRequest{
		Page:        page,
		PageSize:    pageSize,
		Source:      c.Query("source"),
		ClampedOnly: c.QueryBool("clamped", false),
	}

	entries, err := h.service.List(requestContext(c), profileID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "ledger retrieved", entries)
}

func (h *LedgerHandler) reconcile(c *fiber.Ctx) error {
	profileID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Reconcile(requestContext(c), profileID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("profile_id", profileID).
		Int("drift", result.Drift).
		Uint("actor_id", userIDFromContext(c)).
		Msg("profile reconciled")

	return utils.SendSuccess(c, "profile reconciled", result)
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/service"
	"github.com/noah-isme/talent-tree-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding development accounts.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/accounts", h.accounts)
}

func (h *SeedHandler) accounts(c *fiber.Ctx) error {
	result, err := h.service.SeedAccounts(requestContext(c))
	if err != nil {
		if errors.Is(err, service.ErrSeedDisabled) {
			return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
		}
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "accounts seeded", fiber.Map{
		"teacher": result.Teacher,
		"student": result.Student,
		"granted": result.Granted,
	})
}

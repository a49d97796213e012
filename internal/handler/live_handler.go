package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/dto"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/service"
)

const livePingInterval = 30 * time.Second

// LiveHandler streams balance changes of one profile over a websocket.
type LiveHandler struct {
	profiles    service.ProfileService
	broadcaster service.BalanceBroadcaster
	logger      zerolog.Logger
}

// NewLiveHandler builds the live balance handler.
func NewLiveHandler(profiles service.ProfileService, broadcaster service.BalanceBroadcaster, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		profiles:    profiles,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register attaches the websocket route to the v2 root group.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/profiles/:id/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			c.Locals("correlation_id", middleware.GetCorrelationID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/profiles/:id/live", websocket.New(h.serve))
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	profileID, err := strconv.ParseUint(strings.TrimSpace(conn.Params("id")), 10, 64)
	if err != nil || profileID == 0 {
		h.closeWith(conn, websocket.CloseUnsupportedData, "invalid profile id")
		return
	}

	actor := service.Actor{ID: websocketUserID(conn), Role: websocketUserRole(conn)}
	if actor.ID == 0 {
		h.closeWith(conn, websocket.ClosePolicyViolation, "user id missing")
		return
	}
	if !actor.CanAccessProfile(uint(profileID)) {
		h.closeWith(conn, websocket.ClosePolicyViolation, "insufficient permissions")
		return
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	// Subscribe before the snapshot so no committed change falls in between.
	events, cleanup := h.broadcaster.Subscribe(uint(profileID))
	defer cleanup()

	view, err := h.profiles.GetView(ctx, uint(profileID))
	if err != nil {
		h.closeWith(conn, websocket.CloseInternalServerErr, "profile unavailable")
		return
	}
	snapshot := dto.BalanceEvent{
		ProfileID:   view.ID,
		Previous:    view.Balance,
		Balance:     view.Balance,
		Level:       view.Level,
		GrowthStage: view.GrowthStage,
		Source:      "snapshot",
		OccurredAt:  time.Now().UTC(),
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}

	logger := h.logger.With().Uint("profile_id", uint(profileID)).Uint("user_id", actor.ID).Logger()
	logger.Info().Msg("live balance websocket connected")
	defer logger.Info().Msg("live balance websocket disconnected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("live balance write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = conn.Close()
}

func websocketUserID(conn *websocket.Conn) uint {
	switch v := conn.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

func websocketUserRole(conn *websocket.Conn) string {
	if role, ok := conn.Locals("user_role").(string); ok {
		return role
	}
	return ""
}

// Package httpapi is the local control surface over one room attachment:
// a small JSON API that exposes the live RoomView and accepts the
// join/leave/switch/mute/end commands.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verbo-app/roomsync/internal/debate"
	"github.com/verbo-app/roomsync/internal/room"
	"github.com/verbo-app/roomsync/internal/shared"
)

type Handler struct {
	manager *room.Manager
	logger  *slog.Logger
}

func NewHandler(manager *room.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/room", h.Room)
	g.POST("/room/join", h.Join)
	g.POST("/room/leave", h.Leave)
	g.POST("/room/switch", h.Switch)
	g.POST("/room/mute", h.Mute)
	g.POST("/room/end", h.End)
}

func (h *Handler) Room(c echo.Context) error {
	return c.JSON(http.StatusOK, h.manager.RoomView())
}

type sideRequest struct {
	Side debate.Side `json:"side"`
}

func (h *Handler) Join(c echo.Context) error {
	var req sideRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if !req.Side.Valid() {
		return shared.BadRequest("invalid_side", "side must be agree, disagree, neutral or spectator")
	}

	if err := h.manager.Controller().Join(c.Request().Context(), req.Side); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return shared.Conflict("already_joined", "session already joined or leaving")
		}
		h.logger.Error("join failed", "error", err)
		return shared.BadGateway("join_failed", "backend rejected the join call")
	}
	return c.JSON(http.StatusOK, h.manager.RoomView())
}

func (h *Handler) Leave(c echo.Context) error {
	if err := h.manager.Controller().Leave(c.Request().Context()); err != nil {
		h.logger.Error("leave failed", "error", err)
		return shared.BadGateway("leave_failed", "backend rejected the leave call")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Switch(c echo.Context) error {
	var req sideRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	err := h.manager.Controller().SwitchSide(c.Request().Context(), req.Side)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, h.manager.RoomView())
	case errors.Is(err, shared.ErrForbidden):
		return shared.Forbidden("switch_forbidden", "hosts and spectators cannot switch sides")
	case errors.Is(err, shared.ErrConflict):
		return shared.Conflict("switch_exhausted", "side can be switched at most once")
	default:
		h.logger.Error("switch failed", "error", err)
		return shared.BadGateway("switch_failed", "backend rejected the switch call")
	}
}

type muteResponse struct {
	Muted bool `json:"muted"`
}

// Mute toggles the publish state of the local audio track.
func (h *Handler) Mute(c echo.Context) error {
	muted, err := h.manager.Controller().ToggleMute()
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return shared.Conflict("not_joined", "mute requires a joined session")
		}
		h.logger.Error("mute toggle failed", "error", err)
		return shared.BadGateway("mute_failed", "mute toggle failed")
	}
	return c.JSON(http.StatusOK, muteResponse{Muted: muted})
}

// End is the user-initiated end command. Unlike the background auto-end,
// an authorization rejection here goes back to the caller.
func (h *Handler) End(c echo.Context) error {
	if err := h.manager.End(c.Request().Context()); err != nil {
		if errors.Is(err, shared.ErrForbidden) || errors.Is(err, shared.ErrUnauthorized) {
			return shared.Forbidden("end_forbidden", "only the host may end the debate")
		}
		h.logger.Error("end failed", "error", err)
		return shared.BadGateway("end_failed", "backend rejected the end call")
	}
	return c.JSON(http.StatusOK, h.manager.RoomView())
}

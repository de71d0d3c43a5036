package httpapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verbo-app/roomsync/internal/room"
)

type healthResponse struct {
	Status        string `json:"status"`
	DebateID      string `json:"debateId,omitempty"`
	PushConnected bool   `json:"pushConnected"`
	Joined        bool   `json:"joined"`
	Goroutines    int    `json:"goroutines"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type HealthHandler struct {
	manager *room.Manager
	started time.Time
}

func NewHealthHandler(manager *room.Manager) *HealthHandler {
	return &HealthHandler{manager: manager, started: time.Now()}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

// Health reports engine liveness. Push-channel loss is not unhealthy;
// the poll loop carries the room.
func (h *HealthHandler) Health(c echo.Context) error {
	view := h.manager.RoomView()

	resp := healthResponse{
		Status:        "healthy",
		PushConnected: view.PushConnected,
		Joined:        view.Session.Phase == room.PhaseJoined,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if view.Debate != nil {
		resp.DebateID = view.Debate.ID
	}
	return c.JSON(http.StatusOK, resp)
}

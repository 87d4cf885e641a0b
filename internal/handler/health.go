package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// ServiceName is reported by the status endpoints.
const ServiceName = "cinema-booking-core"

// Health is the liveness check used by load balancers.  It answers "ok"
// as long as the process serves HTTP, even while draining.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// StatusHandler reports the lifecycle state of the reservation core.
type StatusHandler struct {
	Core    *reservation.Core
	Version string
	Now     func() time.Time
}

// NewStatusHandler panics on a nil core.
func NewStatusHandler(core *reservation.Core, version string) *StatusHandler {
	if core == nil {
		panic("nil core passed to NewStatusHandler")
	}
	return &StatusHandler{Core: core, Version: version, Now: time.Now}
}

// Status serves GET /api and GET /api/status.
func (h *StatusHandler) Status(c echo.Context) error {
	state := h.Core.State()
	status := "ok"
	if state != reservation.StateRunning {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"service":   ServiceName,
		"version":   h.Version,
		"status":    status,
		"state":     state,
		"timestamp": h.Now().UTC().Format(time.RFC3339),
	})
}

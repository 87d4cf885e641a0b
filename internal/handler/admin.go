package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// AdminHandler serves the dashboard endpoints.
type AdminHandler struct {
	Core *reservation.Core
	Log  *zap.Logger
}

func NewAdminHandler(core *reservation.Core, log *zap.Logger) *AdminHandler {
	if core == nil {
		panic("nil core passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Core: core, Log: log}
}

func (h *AdminHandler) Bookings(c echo.Context) error {
	items := h.Core.GetAllBookings()
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *AdminHandler) Analytics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Core.GetAnalytics())
}

// Flush rewrites every collection from memory, the recovery path after a
// response carried a persistence warning.
func (h *AdminHandler) Flush(c echo.Context) error {
	err := h.Core.SaveAll(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"flushed": true})
	case errors.Is(err, reservation.ErrDraining):
		return err
	}
	h.Log.Error("flush failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error(), "flushed": false})
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// BookingHandler exposes the booking lifecycle.
type BookingHandler struct {
	Core *reservation.Core
}

func NewBookingHandler(core *reservation.Core) *BookingHandler {
	if core == nil {
		panic("nil core passed to NewBookingHandler")
	}
	return &BookingHandler{Core: core}
}

// Create books seats for a showtime.  When the body has no userId the
// X-User-ID header is used instead.
func (h *BookingHandler) Create(c echo.Context) error {
	var req reservation.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		if uid, ok := c.Get("user_id").(string); ok {
			req.UserID = uid
		}
	}
	b, err := h.Core.CreateBooking(c.Request().Context(), req)
	return committed(c, http.StatusCreated, b, err)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id := c.Param("id")
	b, ok := h.Core.GetBookingByID(id)
	if !ok {
		return notFound("booking", id)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel releases the booking's seats.  Cancelling twice is not an error.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	b, ok, err := h.Core.Cancel(c.Request().Context(), id)
	if !ok {
		if err != nil {
			return err
		}
		return notFound("booking", id)
	}
	return committed(c, http.StatusOK, b, err)
}

// Restore reactivates a cancelled booking if its seats are still free.
func (h *BookingHandler) Restore(c echo.Context) error {
	id := c.Param("id")
	b, ok, err := h.Core.Restore(c.Request().Context(), id)
	if !ok {
		if err != nil {
			return err
		}
		if _, exists := h.Core.GetBookingByID(id); exists {
			return echo.NewHTTPError(http.StatusConflict, "booking "+id+" is not cancelled")
		}
		return notFound("booking", id)
	}
	return committed(c, http.StatusOK, b, err)
}

// ByUser lists every booking of a user, cancelled ones included.
func (h *BookingHandler) ByUser(c echo.Context) error {
	items := h.Core.GetBookingsByUser(c.Param("id"))
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

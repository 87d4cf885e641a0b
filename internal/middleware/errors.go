package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// HTTPErrorHandler maps errors returned by handlers onto JSON responses of
// the form {"error": "..."}:
//
//   ValidationError    400 (plus "field")
//   SeatConflictError  409 (plus "showtimeId" and "seats")
//   ErrNotFound        404
//   ErrDraining        503
//   *echo.HTTPError    its own code
//
// Anything else is a 500 whose cause is logged but not echoed to clients.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, body := errorResponse(err)
		if code >= 500 && code != http.StatusServiceUnavailable {
			log.Error("unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func errorResponse(err error) (int, echo.Map) {
	var (
		verr *reservation.ValidationError
		cerr *reservation.SeatConflictError
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field}
	case errors.As(err, &cerr):
		return http.StatusConflict, echo.Map{"error": cerr.Error(), "showtimeId": cerr.ShowtimeID, "seats": cerr.Seats}
	case errors.Is(err, reservation.ErrNotFound):
		return http.StatusNotFound, echo.Map{"error": err.Error()}
	case errors.Is(err, reservation.ErrDraining):
		return http.StatusServiceUnavailable, echo.Map{"error": "service is shutting down"}
	case errors.As(err, &herr):
		msg := http.StatusText(herr.Code)
		if m, ok := herr.Message.(string); ok {
			msg = m
		}
		return herr.Code, echo.Map{"error": msg}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal server error"}
}

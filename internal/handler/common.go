package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// intParam parses a positive integer path parameter.
func intParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil || n <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, reservation.ErrNotFound)
}

func badBody(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
}

// applied reports whether a mutation returning err changed state.
func applied(err error) bool {
	var perr *reservation.PersistenceError
	return err == nil || errors.As(err, &perr)
}

// committed writes v with the given status.  A *PersistenceError means the
// change was applied in memory but not stored; the response then keeps the
// success status and carries the failure in a "warning" field.  Any other
// error is returned for the error handler.
func committed(c echo.Context, code int, v interface{}, err error) error {
	if err == nil {
		return c.JSON(code, v)
	}
	var perr *reservation.PersistenceError
	if !errors.As(err, &perr) {
		return err
	}
	raw, merr := json.Marshal(v)
	if merr != nil {
		return merr
	}
	body := map[string]interface{}{}
	if uerr := json.Unmarshal(raw, &body); uerr != nil {
		body = map[string]interface{}{"data": v}
	}
	body["warning"] = perr.Error()
	return c.JSON(code, body)
}

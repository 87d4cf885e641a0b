package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// CatalogHandler serves movies, cinemas and showtimes.  InvalidateMovies,
// when set, runs after every movie upsert so cached catalog reads do not
// outlive the change.
type CatalogHandler struct {
	Core             *reservation.Core
	Log              *zap.Logger
	InvalidateMovies func(ctx context.Context) error
}

func NewCatalogHandler(core *reservation.Core, log *zap.Logger) *CatalogHandler {
	if core == nil {
		panic("nil core passed to NewCatalogHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{Core: core, Log: log}
}

// ListMovies returns the catalog ordered by id.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Core.Movies()})
}

func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	m, ok := h.Core.FindMovieByID(id)
	if !ok {
		return notFound("movie", id)
	}
	return c.JSON(http.StatusOK, m)
}

// UpsertMovie creates or replaces a movie by id.  A body without an id
// creates a new movie and answers 201.
func (h *CatalogHandler) UpsertMovie(c echo.Context) error {
	var in model.Movie
	if err := c.Bind(&in); err != nil {
		return badBody(err)
	}
	code := upsertStatus(in.ID)
	m, err := h.Core.UpsertMovie(c.Request().Context(), in)
	if h.InvalidateMovies != nil && applied(err) {
		if ierr := h.InvalidateMovies(c.Request().Context()); ierr != nil {
			h.Log.Warn("movie cache invalidation failed", zap.Int("movie_id", m.ID), zap.Error(ierr))
		}
	}
	return committed(c, code, m, err)
}

func (h *CatalogHandler) ListCinemas(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Core.Cinemas()})
}

func (h *CatalogHandler) GetCinema(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	cin, ok := h.Core.FindCinemaByID(id)
	if !ok {
		return notFound("cinema", id)
	}
	return c.JSON(http.StatusOK, cin)
}

// CinemaShowtimes lists the showtimes of one cinema with their occupancy.
func (h *CatalogHandler) CinemaShowtimes(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	cin, ok := h.Core.FindCinemaByID(id)
	if !ok {
		return notFound("cinema", id)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cin.Showtimes})
}

// UpsertCinema replaces the cinema with the same id, showtimes included.
// Without an id a new cinema is created.
func (h *CatalogHandler) UpsertCinema(c echo.Context) error {
	var in model.Cinema
	if err := c.Bind(&in); err != nil {
		return badBody(err)
	}
	code := upsertStatus(in.ID)
	v, err := h.Core.UpsertCinema(c.Request().Context(), in)
	return committed(c, code, v, err)
}

// UpdateCinema merges the fields present in the body into a cinema.
func (h *CatalogHandler) UpdateCinema(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	var p reservation.CinemaPatch
	if err := c.Bind(&p); err != nil {
		return badBody(err)
	}
	v, err := h.Core.UpdateCinema(c.Request().Context(), id, p)
	return committed(c, http.StatusOK, v, err)
}

// DeleteCinema removes a cinema with its showtimes.
func (h *CatalogHandler) DeleteCinema(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	err = h.Core.DeleteCinema(c.Request().Context(), id)
	return committed(c, http.StatusOK, echo.Map{"message": fmt.Sprintf("cinema %d deleted", id)}, err)
}

func upsertStatus(id int) int {
	if id == 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}

// ListShowtimes filters by the optional movieId and date query parameters.
func (h *CatalogHandler) ListShowtimes(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	raw := strings.TrimSpace(c.QueryParam("movieId"))

	var items []model.ShowtimeView
	switch {
	case raw != "":
		movieID, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid movieId")
		}
		if date != "" {
			items = h.Core.GetShowtimesByMovieAndDate(movieID, date)
		} else {
			items = h.Core.GetShowtimesByMovie(movieID)
		}
	case date != "":
		items = h.Core.GetShowtimesByDate(date)
	default:
		items = h.Core.GetAllShowtimes()
	}
	if items == nil {
		items = []model.ShowtimeView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CatalogHandler) GetShowtime(c echo.Context) error {
	id := c.Param("id")
	st, ok := h.Core.GetShowtimeByID(id)
	if !ok {
		return notFound("showtime", id)
	}
	return c.JSON(http.StatusOK, st)
}

// ShowtimeSeats returns the occupied seats of a showtime.  With ?seat=X it
// also reports whether that seat is free.  Bookings may reference
// showtimes missing from the catalog, so an unknown id is not an error.
func (h *CatalogHandler) ShowtimeSeats(c echo.Context) error {
	id := c.Param("id")
	body := echo.Map{
		"showtimeId":  id,
		"bookedSeats": h.Core.GetShowtimeSeats(id),
	}
	if seat := strings.TrimSpace(c.QueryParam("seat")); seat != "" {
		body["seat"] = seat
		body["free"] = h.Core.IsSeatFree(id, seat)
	}
	return c.JSON(http.StatusOK, body)
}

// AddShowtime schedules a showtime in its cinema.
func (h *CatalogHandler) AddShowtime(c echo.Context) error {
	var in model.Showtime
	if err := c.Bind(&in); err != nil {
		return badBody(err)
	}
	v, err := h.Core.AddShowtime(c.Request().Context(), in)
	return committed(c, http.StatusCreated, v, err)
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
	"github.com/iliyamo/cinema-booking-core/internal/store"
)

// failingStorage loads nothing and fails every write.
type failingStorage struct{}

func (failingStorage) Load(context.Context) (store.LoadResult, error) { return store.LoadResult{}, nil }
func (failingStorage) LoadMovies(context.Context) ([]model.Movie, []store.RecordOutcome, error) {
	return nil, nil, nil
}
func (failingStorage) LoadCinemas(context.Context) ([]model.Cinema, []store.RecordOutcome, error) {
	return nil, nil, nil
}
func (failingStorage) Save(context.Context, []model.Booking, map[int]model.Movie) error {
	return errors.New("disk full")
}
func (failingStorage) SaveMovies(context.Context, []model.Movie) error { return errors.New("disk full") }
func (failingStorage) SaveCinemas(context.Context, []model.CinemaView) error {
	return errors.New("disk full")
}

func newTestServer(t *testing.T, s reservation.Storage) (*echo.Echo, *reservation.Core) {
	t.Helper()
	n := 0
	core := reservation.New(s,
		reservation.WithClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }),
		reservation.WithIDGenerator(func() string { n++; return fmt.Sprintf("b%d", n) }),
	)

	e := echo.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(nil)
	e.Use(middleware.UserIdentity())

	cat := NewCatalogHandler(core, nil)
	bk := NewBookingHandler(core)
	adm := NewAdminHandler(core, nil)
	st := NewStatusHandler(core, "test")

	e.GET("/healthz", Health)
	e.GET("/api/status", st.Status)
	e.GET("/api/movies", cat.ListMovies)
	e.GET("/api/movies/:id", cat.GetMovie)
	e.POST("/api/movies", cat.UpsertMovie)
	e.GET("/api/cinemas", cat.ListCinemas)
	e.GET("/api/cinemas/:id", cat.GetCinema)
	e.GET("/api/cinemas/:id/showtimes", cat.CinemaShowtimes)
	e.POST("/api/cinemas", cat.UpsertCinema)
	e.GET("/api/showtimes", cat.ListShowtimes)
	e.POST("/api/showtimes", cat.AddShowtime)
	e.GET("/api/showtimes/:id", cat.GetShowtime)
	e.GET("/api/showtimes/:id/seats", cat.ShowtimeSeats)
	e.POST("/api/bookings", bk.Create)
	e.GET("/api/bookings/:id", bk.Get)
	e.POST("/api/bookings/:id/cancel", bk.Cancel)
	e.POST("/api/bookings/:id/restore", bk.Restore)
	e.GET("/api/users/:id/bookings", bk.ByUser)
	e.GET("/api/admin/bookings", adm.Bookings)
	e.GET("/api/admin/analytics", adm.Analytics)
	e.POST("/api/admin/flush", adm.Flush)
	e.POST("/api/admin/cinemas", cat.UpsertCinema)
	e.PUT("/api/admin/cinemas/:id", cat.UpdateCinema)
	e.DELETE("/api/admin/cinemas/:id", cat.DeleteCinema)
	return e, core
}

func do(e *echo.Echo, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const bookingBody = `{"userId":"u1","movieId":1,"showtimeId":"S1","seats":["A1","A2"],"totalPrice":25}`

func TestHealthAndStatus(t *testing.T) {
	e, core := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(e, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"running"`)
	assert.Contains(t, rec.Body.String(), `"timestamp"`)

	require.NoError(t, core.Drain(context.Background()))
	rec = do(e, http.MethodGet, "/api/status", "")
	assert.Contains(t, rec.Body.String(), `"state":"draining"`)
}

func TestBookingFlow(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/api/bookings", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":"b1"`)
	assert.Contains(t, rec.Body.String(), `"bookingDate":"2024-03-01"`)

	rec = do(e, http.MethodPost, "/api/bookings", `{"userId":"u2","movieId":1,"showtimeId":"S1","seats":["A2","A3"],"totalPrice":25}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"seats already booked for showtime S1: A2","showtimeId":"S1","seats":["A2"]}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/showtimes/S1/seats?seat=A3", "")
	assert.JSONEq(t, `{"showtimeId":"S1","bookedSeats":["A1","A2"],"seat":"A3","free":true}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/bookings/b1/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cancelled":true`)

	rec = do(e, http.MethodPost, "/api/bookings/b1/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/api/bookings", `{"userId":"u2","movieId":1,"showtimeId":"S1","seats":["A2"],"totalPrice":12.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, http.MethodPost, "/api/bookings/b1/restore", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"seats":["A2"]`)

	rec = do(e, http.MethodPost, "/api/bookings/b2/restore", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "is not cancelled")

	rec = do(e, http.MethodGet, "/api/users/u1/bookings", "")
	assert.Contains(t, rec.Body.String(), `"id":"b1"`)
	rec = do(e, http.MethodGet, "/api/users/nobody/bookings", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestBookingErrors(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/api/bookings", `{"userId":"u1","movieId":1,"showtimeId":"S1","seats":[],"totalPrice":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"seats"`)

	rec = do(e, http.MethodPost, "/api/bookings", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, p := range []string{"/api/bookings/nope", "/api/bookings/nope/cancel", "/api/bookings/nope/restore"} {
		method := http.MethodPost
		if !strings.HasSuffix(p, "cancel") && !strings.HasSuffix(p, "restore") {
			method = http.MethodGet
		}
		assert.Equal(t, http.StatusNotFound, do(e, method, p, "").Code, p)
	}
}

func TestCreateUsesUserHeader(t *testing.T) {
	e, core := newTestServer(t, nil)
	rec := do(e, http.MethodPost, "/api/bookings", `{"movieId":1,"showtimeId":"S1","seats":["B1"],"totalPrice":10}`,
		middleware.HeaderUserID, "u9")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, core.GetBookingsByUser("u9"), 1)
}

func TestCatalogEndpoints(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/api/movies", `{"id":1,"title":"Dune","genres":["Sci-Fi"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/movies", `{"id":2,"title":""}`).Code)

	rec = do(e, http.MethodGet, "/api/movies/1", "")
	assert.Contains(t, rec.Body.String(), `"title":"Dune"`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/movies/9", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/movies/abc", "").Code)

	rec = do(e, http.MethodPost, "/api/cinemas", `{"id":3,"name":"Grand","showtimes":[{"id":"S1","movieId":1,"date":"2024-03-10","time":"18:00"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"totalSeats":100`)

	rec = do(e, http.MethodPost, "/api/showtimes", `{"id":"S2","movieId":2,"cinemaId":3,"date":"2024-03-11","time":"20:00","screenType":"IMAX"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"cinemaName":"Grand"`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPost, "/api/showtimes", `{"movieId":2,"cinemaId":99,"date":"2024-03-11","time":"20:00"}`).Code)

	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/bookings", bookingBody).Code)

	rec = do(e, http.MethodGet, "/api/showtimes/S1", "")
	assert.Contains(t, rec.Body.String(), `"bookedSeats":["A1","A2"]`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/showtimes/S9", "").Code)

	rec = do(e, http.MethodGet, "/api/showtimes?movieId=2", "")
	assert.Contains(t, rec.Body.String(), `"id":"S2"`)
	assert.NotContains(t, rec.Body.String(), `"id":"S1"`)
	rec = do(e, http.MethodGet, "/api/showtimes?date=2024-03-10", "")
	assert.Contains(t, rec.Body.String(), `"id":"S1"`)
	rec = do(e, http.MethodGet, "/api/showtimes?movieId=1&date=2024-03-11", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/showtimes?movieId=x", "").Code)

	rec = do(e, http.MethodGet, "/api/cinemas/3/showtimes", "")
	assert.Contains(t, rec.Body.String(), `"id":"S2"`)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/cinemas/4", "").Code)
}

func TestUpsertMovieInvalidatesCache(t *testing.T) {
	core := reservation.New(nil)
	calls := 0
	h := NewCatalogHandler(core, nil)
	h.InvalidateMovies = func(context.Context) error { calls++; return errors.New("redis down") }

	e := echo.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(nil)
	e.POST("/api/movies", h.UpsertMovie)

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/movies", `{"id":1,"title":"A"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/movies", `{"id":0,"title":"A"}`).Code)
	assert.Equal(t, 1, calls)
}

func TestPersistenceWarning(t *testing.T) {
	e, core := newTestServer(t, failingStorage{})

	rec := do(e, http.MethodPost, "/api/bookings", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"b1"`)
	assert.Contains(t, rec.Body.String(), `"warning":"persist after create: disk full"`)
	_, ok := core.GetBookingByID("b1")
	assert.True(t, ok)

	rec = do(e, http.MethodPost, "/api/bookings/b1/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"warning"`)

	rec = do(e, http.MethodPost, "/api/admin/flush", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"flushed":false`)
}

func TestAdminEndpoints(t *testing.T) {
	e, core := newTestServer(t, nil)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/bookings", bookingBody).Code)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/api/bookings",
		`{"userId":"u2","movieId":2,"showtimeId":"S2","seats":["C1"],"totalPrice":15,"screenType":"IMAX"}`).Code)
	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/bookings/b2/cancel", "").Code)

	rec := do(e, http.MethodGet, "/api/admin/bookings", "")
	assert.Contains(t, rec.Body.String(), `"id":"b2"`)

	rec = do(e, http.MethodGet, "/api/admin/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalBookings":1`)
	assert.Contains(t, rec.Body.String(), `"cancellationRate":0.5`)

	rec = do(e, http.MethodPost, "/api/admin/flush", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, core.Drain(context.Background()))
	rec = do(e, http.MethodPost, "/api/admin/flush", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminCinemaManagement(t *testing.T) {
	e, core := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/api/admin/cinemas", `{"id":4,"name":"Grand","location":"Downtown"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(e, http.MethodPost, "/api/admin/cinemas", `{"name":"Roxy"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":5`)

	rec = do(e, http.MethodPut, "/api/admin/cinemas/4", `{"screens":8}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Grand"`)
	assert.Contains(t, rec.Body.String(), `"location":"Downtown"`)
	assert.Contains(t, rec.Body.String(), `"screens":8`)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPut, "/api/admin/cinemas/4", `{"name":"  "}`).Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodPut, "/api/admin/cinemas/99", `{"screens":2}`).Code)

	rec = do(e, http.MethodDelete, "/api/admin/cinemas/5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "cinema 5 deleted")
	_, ok := core.FindCinemaByID(5)
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/api/admin/cinemas/5", "").Code)

	rec = do(e, http.MethodPost, "/api/movies", `{"title":"Arrival"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":1`)
}

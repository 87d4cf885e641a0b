package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// memCollections is an in-memory Collections used by gateway tests.
type memCollections struct {
	data     map[string][]json.RawMessage
	writeErr error
}

func newMem() *memCollections {
	return &memCollections{data: map[string][]json.RawMessage{}}
}

func (m *memCollections) ReadCollection(_ context.Context, name string) ([]json.RawMessage, error) {
	recs, ok := m.data[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return recs, nil
}

func (m *memCollections) WriteCollection(_ context.Context, name string, records []json.RawMessage) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[name] = records
	return nil
}

func (m *memCollections) put(name string, raw ...string) {
	recs := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		recs[i] = json.RawMessage(r)
	}
	m.data[name] = recs
}

func fixedClock() time.Time { return time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC) }

func TestGateway_LoadMissingCollectionIsEmpty(t *testing.T) {
	g := NewGateway(newMem(), nil)
	res, err := g.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Bookings)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, 0, res.Skipped())
}

func TestGateway_LoadPropagatesBackendError(t *testing.T) {
	boom := errors.New("disk on fire")
	g := NewGateway(&failingReader{err: boom}, nil)
	_, err := g.Load(context.Background())
	assert.ErrorIs(t, err, boom)
}

type failingReader struct{ err error }

func (f *failingReader) ReadCollection(context.Context, string) ([]json.RawMessage, error) {
	return nil, f.err
}
func (f *failingReader) WriteCollection(context.Context, string, []json.RawMessage) error {
	return f.err
}

func TestGateway_LoadReportsPerRecordOutcomes(t *testing.T) {
	mem := newMem()
	mem.put(CollectionBookings,
		`{"id":"b1","userId":"u1","movieId":1,"showtimeId":"s1","seats":["A1","A2"],"totalPrice":20,"bookingDate":"2024-03-01","cancelled":false}`,
		`{"id":"b2","movieId":1,"showtimeId":"s1","seats":["B1"]}`,
		`not json at all`,
		`{"id":"b1","userId":"u2","movieId":1,"showtimeId":"s1","seats":["C1"]}`,
		`{"id":"b3","userId":"u3","movieId":1,"showtimeId":"s1","seats":["A2"]}`,
		`{"userId":"u4","movieId":2,"showtimeId":"s2","seats":["D1"]}`,
		`{"id":"b5","userId":"u5","movieId":1,"showtimeId":"s1","seats":["A2"],"cancelled":true}`,
	)
	g := NewGateway(mem, nil, WithClock(fixedClock), WithIDGenerator(func() string { return "gen-1" }))

	res, err := g.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 7)

	want := []RecordStatus{RecordLoaded, RecordSkipped, RecordSkipped, RecordSkipped, RecordSkipped, RecordLoaded, RecordLoaded}
	for i, o := range res.Outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, want[i], o.Status, "record %d", i)
	}
	assert.Equal(t, "missing userId", res.Outcomes[1].Reason)
	assert.Contains(t, res.Outcomes[2].Reason, "malformed record")
	assert.Equal(t, "duplicate id", res.Outcomes[3].Reason)
	assert.Contains(t, res.Outcomes[4].Reason, "A2")
	assert.Equal(t, "gen-1", res.Outcomes[5].ID)
	assert.Equal(t, 4, res.Skipped())

	require.Len(t, res.Bookings, 3)
	gen := res.Bookings[1]
	assert.Equal(t, "gen-1", gen.ID)
	assert.Equal(t, model.DefaultScreenType, gen.ScreenType)
	assert.Equal(t, "2024-03-09", gen.BookingDate)
	assert.False(t, gen.Cancelled)
	assert.True(t, res.Bookings[2].Cancelled, "cancelled bookings never conflict")
}

func TestGateway_LoadRejectsDuplicateSeatsWithinRecord(t *testing.T) {
	mem := newMem()
	mem.put(CollectionBookings, `{"id":"b1","userId":"u1","movieId":1,"showtimeId":"s1","seats":["A1","A1"]}`)
	res, err := NewGateway(mem, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Bookings)
	assert.Equal(t, "duplicate seat A1", res.Outcomes[0].Reason)
}

func TestGateway_SaveLoadRoundTrip(t *testing.T) {
	mem := newMem()
	g := NewGateway(mem, nil)
	ctx := context.Background()

	movie := model.Movie{ID: 7, Title: "Dune", Genres: []string{"Sci-Fi", "Drama"}, Cast: []string{"A", "B"}}
	bookings := []model.Booking{
		{ID: "b1", UserID: "u1", MovieID: 7, MovieTitle: "Dune", ShowtimeID: "s1", ScreenType: "IMAX",
			Seats: []string{"A1", "A2"}, TotalPrice: 30, BookingDate: "2024-03-01"},
		{ID: "b2", UserID: "u2", MovieID: 99, ShowtimeID: "s1", ScreenType: "Standard",
			Seats: []string{"A1"}, TotalPrice: 10, BookingDate: "2024-03-02", Cancelled: true},
	}
	require.NoError(t, g.Save(ctx, bookings, map[int]model.Movie{7: movie}))

	var first map[string]any
	require.NoError(t, json.Unmarshal(mem.data[CollectionBookings][0], &first))
	details, ok := first["movieDetails"].(map[string]any)
	require.True(t, ok, "known movie is embedded")
	assert.Equal(t, []any{"Sci-Fi", "Drama"}, details["genres"])

	var second map[string]any
	require.NoError(t, json.Unmarshal(mem.data[CollectionBookings][1], &second))
	_, has := second["movieDetails"]
	assert.False(t, has, "unknown movie has no snapshot")

	res, err := g.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, bookings, res.Bookings)
	require.Len(t, res.Movies, 1)
	assert.Equal(t, movie, res.Movies[0])
}

func TestGateway_SavePropagatesWriteError(t *testing.T) {
	mem := newMem()
	mem.writeErr = errors.New("read-only fs")
	err := NewGateway(mem, nil).Save(context.Background(), nil, nil)
	assert.ErrorIs(t, err, mem.writeErr)
}

func TestGateway_LoadMoviesAcceptsLegacyLists(t *testing.T) {
	mem := newMem()
	mem.put(CollectionMovies,
		`{"id":1,"title":"Heat","genres":"Crime, Drama","cast":["Pacino","De Niro"],"rating":8.3}`,
		`{"id":2}`,
		`{"id":1,"title":"Heat again"}`,
	)
	movies, outcomes, err := NewGateway(mem, nil).LoadMovies(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, []string{"Crime", "Drama"}, movies[0].Genres)
	assert.Equal(t, []string{"Pacino", "De Niro"}, movies[0].Cast)
	assert.Equal(t, 8.3, movies[0].Rating)

	require.Len(t, outcomes, 3)
	assert.Equal(t, "missing title", outcomes[1].Reason)
	assert.Equal(t, "2", outcomes[1].ID)
	assert.Equal(t, "duplicate id", outcomes[2].Reason)
}

func TestGateway_LoadCinemasAppliesDefaults(t *testing.T) {
	mem := newMem()
	mem.put(CollectionCinemas,
		`{"id":1,"name":"Grand","showtimes":[
			{"id":"s1","movieId":1,"cinemaId":1,"date":"2024-03-10","time":"18:00","price":10,"bookedSeats":["Z9"]},
			{"id":"s2","cinemaId":1},
			{"id":"s1","movieId":2,"cinemaId":1}
		]}`,
		`{"name":"No id"}`,
	)
	cinemas, outcomes, err := NewGateway(mem, nil).LoadCinemas(context.Background())
	require.NoError(t, err)
	require.Len(t, cinemas, 1)
	c := cinemas[0]
	assert.Equal(t, 1, c.Screens)
	assert.Equal(t, 100, c.TotalSeats)
	require.Len(t, c.Showtimes, 1)
	assert.Equal(t, model.DefaultScreenType, c.Showtimes[0].ScreenType)

	require.Len(t, outcomes, 2)
	assert.Equal(t, RecordLoaded, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Reason, "showtime 1 dropped: missing movieId")
	assert.Contains(t, outcomes[0].Reason, "showtime 2 dropped: duplicate id s1")
	assert.Equal(t, RecordSkipped, outcomes[1].Status)
}

func TestGateway_SaveCatalog(t *testing.T) {
	mem := newMem()
	g := NewGateway(mem, nil)
	ctx := context.Background()

	require.NoError(t, g.SaveMovies(ctx, []model.Movie{{ID: 2, Title: "B"}, {ID: 1, Title: "A"}}))
	movies, _, err := g.LoadMovies(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, 1, movies[0].ID)

	view := model.CinemaView{ID: 1, Name: "Grand", Screens: 2, TotalSeats: 50, Showtimes: []model.ShowtimeView{{
		Showtime:    model.Showtime{ID: "s1", MovieID: 1, CinemaID: 1, ScreenType: "IMAX"},
		BookedSeats: []string{"A1"},
	}}}
	require.NoError(t, g.SaveCinemas(ctx, []model.CinemaView{view}))
	assert.Contains(t, string(mem.data[CollectionCinemas][0]), `"bookedSeats":["A1"]`)

	cinemas, _, err := g.LoadCinemas(ctx)
	require.NoError(t, err)
	require.Len(t, cinemas, 1)
	assert.Equal(t, 2, cinemas[0].Screens)
	assert.Equal(t, "IMAX", cinemas[0].Showtimes[0].ScreenType)
}

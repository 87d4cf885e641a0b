// Package reservation is the booking reservation core.  Core owns the
// movie catalog, the cinemas with their showtimes and the booking
// collection, and is the only place any of them change.
//
// Every mutation runs under one exclusive lock: validation, the seat
// check, the state change and the durability write all happen inside the
// same critical section, so two requests can never both see a seat as
// free.  Queries share the lock and hand out deep copies.
package reservation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/ledger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
	"github.com/iliyamo/cinema-booking-core/internal/store"
)

// Storage is the persistence collaborator.  *store.Gateway implements it.
type Storage interface {
	Load(ctx context.Context) (store.LoadResult, error)
	LoadMovies(ctx context.Context) ([]model.Movie, []store.RecordOutcome, error)
	LoadCinemas(ctx context.Context) ([]model.Cinema, []store.RecordOutcome, error)
	Save(ctx context.Context, bookings []model.Booking, movies map[int]model.Movie) error
	SaveMovies(ctx context.Context, movies []model.Movie) error
	SaveCinemas(ctx context.Context, cinemas []model.CinemaView) error
}

// EventPublisher receives booking lifecycle events after the change is
// committed.  *queue.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Core is the reservation aggregate.  The zero value is not usable; call
// New.
type Core struct {
	mu       sync.RWMutex
	state    State
	movies   map[int]model.Movie
	cinemas  []model.Cinema
	bookings []model.Booking
	byID     map[string]int

	store  Storage
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string

	events *dispatcher
}

// Option customises a Core.
type Option func(*Core)

func WithLogger(l *zap.Logger) Option { return func(c *Core) { c.log = l } }

// WithPublisher enables lifecycle events.  Events are queued and sent by a
// background worker so a slow broker never holds the lock.
func WithPublisher(p EventPublisher) Option {
	return func(c *Core) {
		if p != nil {
			c.events = newDispatcher(p, defaultEventBuffer)
		}
	}
}

func WithClock(now func() time.Time) Option { return func(c *Core) { c.now = now } }

func WithIDGenerator(f func() string) Option { return func(c *Core) { c.newID = f } }

func WithTracer(t trace.Tracer) Option { return func(c *Core) { c.tracer = t } }

// New returns an empty running Core persisting through s.  A nil s keeps
// everything in memory.
func New(s Storage, opts ...Option) *Core {
	c := &Core{
		state:   StateRunning,
		movies:  map[int]model.Movie{},
		byID:    map[string]int{},
		store:   s,
		log:     zap.NewNop(),
		tracer:  otel.Tracer("github.com/iliyamo/cinema-booking-core/internal/reservation"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	if c.events != nil {
		c.events.log = c.log
		c.events.start()
	}
	return c
}

// LoadReport lists the per-record outcome of each collection read by Load.
type LoadReport struct {
	Movies   []store.RecordOutcome `json:"movies"`
	Cinemas  []store.RecordOutcome `json:"cinemas"`
	Bookings []store.RecordOutcome `json:"bookings"`
	// Placeholders lists movie ids synthesized for bookings whose movie
	// was in neither the catalog nor an embedded snapshot.
	Placeholders []int `json:"placeholders"`
}

// Load replaces the in-memory state with what the storage holds.  Movies
// come from the movies collection first; snapshots embedded in bookings
// fill the gaps, and any movie still unknown gets a placeholder built from
// the booking.  Nothing is written back.
func (c *Core) Load(ctx context.Context) (LoadReport, error) {
	var rep LoadReport
	if c.store == nil {
		return rep, nil
	}
	movies, movieOut, err := c.store.LoadMovies(ctx)
	if err != nil {
		return rep, err
	}
	cinemas, cinemaOut, err := c.store.LoadCinemas(ctx)
	if err != nil {
		return rep, err
	}
	res, err := c.store.Load(ctx)
	if err != nil {
		return rep, err
	}
	rep.Movies, rep.Cinemas, rep.Bookings = movieOut, cinemaOut, res.Outcomes
	rep.Placeholders = []int{}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.movies = make(map[int]model.Movie, len(movies))
	for _, m := range movies {
		c.movies[m.ID] = m.Clone()
	}
	for _, m := range res.Movies {
		if _, ok := c.movies[m.ID]; !ok {
			c.movies[m.ID] = m.Clone()
		}
	}
	c.cinemas = make([]model.Cinema, 0, len(cinemas))
	for _, cin := range cinemas {
		c.cinemas = append(c.cinemas, cin.Clone())
	}
	c.bookings = model.CloneBookings(res.Bookings)
	c.reindex()

	for _, b := range c.bookings {
		if _, ok := c.movies[b.MovieID]; !ok {
			c.movies[b.MovieID] = model.PlaceholderMovie(b)
			rep.Placeholders = append(rep.Placeholders, b.MovieID)
		}
	}

	c.log.Info("state loaded",
		zap.Int("movies", len(c.movies)),
		zap.Int("cinemas", len(c.cinemas)),
		zap.Int("bookings", len(c.bookings)),
		zap.Int("placeholders", len(rep.Placeholders)))
	return rep, nil
}

func (c *Core) reindex() {
	c.byID = make(map[string]int, len(c.bookings))
	for i, b := range c.bookings {
		c.byID[b.ID] = i
	}
}

// GetBookingByID returns a copy of the booking and whether it exists.
func (c *Core) GetBookingByID(id string) (model.Booking, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return model.Booking{}, false
	}
	return c.bookings[i].Clone(), true
}

// GetBookingsByUser returns the user's bookings, cancelled ones included,
// in creation order.
func (c *Core) GetBookingsByUser(userID string) []model.Booking {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Booking{}
	for _, b := range c.bookings {
		if b.UserID == userID {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (c *Core) GetAllBookings() []model.Booking {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneBookings(c.bookings)
}

// GetShowtimeSeats returns the occupied seats of the showtime, sorted.
func (c *Core) GetShowtimeSeats(showtimeID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ledger.Occupied(c.bookings, showtimeID).Sorted()
}

func (c *Core) IsSeatFree(showtimeID, seat string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ledger.IsFree(c.bookings, showtimeID, seat)
}

// GetAnalytics aggregates the current booking collection.
func (c *Core) GetAnalytics() model.Analytics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.ComputeAnalytics(c.bookings)
}

// ListShowtimesMatching returns views of every showtime accepted by keep,
// in cinema order then showtime order.
func (c *Core) ListShowtimesMatching(keep func(model.Showtime) bool) []model.ShowtimeView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.showtimesLocked(keep)
}

func (c *Core) showtimesLocked(keep func(model.Showtime) bool) []model.ShowtimeView {
	out := []model.ShowtimeView{}
	for _, cin := range c.cinemas {
		for _, st := range cin.Showtimes {
			if keep == nil || keep(st) {
				out = append(out, c.viewLocked(st))
			}
		}
	}
	return out
}

func (c *Core) viewLocked(st model.Showtime) model.ShowtimeView {
	return model.ShowtimeView{
		Showtime:    st,
		BookedSeats: ledger.Occupied(c.bookings, st.ID).Sorted(),
	}
}

func (c *Core) GetShowtimesByMovie(movieID int) []model.ShowtimeView {
	return c.ListShowtimesMatching(func(st model.Showtime) bool { return st.MovieID == movieID })
}

func (c *Core) GetShowtimesByDate(date string) []model.ShowtimeView {
	return c.ListShowtimesMatching(func(st model.Showtime) bool { return st.Date == date })
}

func (c *Core) GetShowtimesByMovieAndDate(movieID int, date string) []model.ShowtimeView {
	return c.ListShowtimesMatching(func(st model.Showtime) bool {
		return st.MovieID == movieID && st.Date == date
	})
}

func (c *Core) GetAllShowtimes() []model.ShowtimeView {
	return c.ListShowtimesMatching(nil)
}

// GetShowtimeByID returns the showtime view and whether it exists.
func (c *Core) GetShowtimeByID(id string) (model.ShowtimeView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, _, ok := c.findShowtimeLocked(id)
	if !ok {
		return model.ShowtimeView{}, false
	}
	return c.viewLocked(st), true
}

func (c *Core) findShowtimeLocked(id string) (model.Showtime, int, bool) {
	for ci, cin := range c.cinemas {
		for _, st := range cin.Showtimes {
			if st.ID == id {
				return st, ci, true
			}
		}
	}
	return model.Showtime{}, -1, false
}

// Movies returns the catalog ordered by id.
func (c *Core) Movies() []model.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedMoviesLocked()
}

func (c *Core) sortedMoviesLocked() []model.Movie {
	out := make([]model.Movie, 0, len(c.movies))
	for _, m := range c.movies {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Core) FindMovieByID(id int) (model.Movie, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.movies[id]
	if !ok {
		return model.Movie{}, false
	}
	return m.Clone(), true
}

// Cinemas returns every cinema with computed showtime occupancy.
func (c *Core) Cinemas() []model.CinemaView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cinemaViewsLocked()
}

func (c *Core) cinemaViewsLocked() []model.CinemaView {
	out := make([]model.CinemaView, 0, len(c.cinemas))
	for _, cin := range c.cinemas {
		out = append(out, c.cinemaViewLocked(cin))
	}
	return out
}

func (c *Core) cinemaViewLocked(cin model.Cinema) model.CinemaView {
	v := model.CinemaView{
		ID:         cin.ID,
		Name:       cin.Name,
		Location:   cin.Location,
		Screens:    cin.Screens,
		TotalSeats: cin.TotalSeats,
		Showtimes:  make([]model.ShowtimeView, 0, len(cin.Showtimes)),
	}
	for _, st := range cin.Showtimes {
		v.Showtimes = append(v.Showtimes, c.viewLocked(st))
	}
	return v
}

func (c *Core) FindCinemaByID(id int) (model.CinemaView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.cinemaIndexLocked(id)
	if i < 0 {
		return model.CinemaView{}, false
	}
	return c.cinemaViewLocked(c.cinemas[i]), true
}

func (c *Core) cinemaIndexLocked(id int) int {
	for i, cin := range c.cinemas {
		if cin.ID == id {
			return i
		}
	}
	return -1
}

package reservation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// UpsertMovie inserts m or replaces the movie with the same id, then
// writes the movies collection.  A zero id is replaced by one past the
// highest id in the catalog.  Bookings keep the title and poster they were
// created with.
func (c *Core) UpsertMovie(ctx context.Context, m model.Movie) (model.Movie, error) {
	if m.ID < 0 {
		return model.Movie{}, &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if strings.TrimSpace(m.Title) == "" {
		return model.Movie{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	m = m.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if m.ID == 0 {
		m.ID = c.nextMovieIDLocked()
	}
	_, existed := c.movies[m.ID]
	c.movies[m.ID] = m
	c.log.Info("movie upserted", zap.Int("movie_id", m.ID), zap.Bool("updated", existed))
	return m.Clone(), c.persistMoviesLocked(ctx, "upsert movie")
}

func (c *Core) nextMovieIDLocked() int {
	next := 1
	for id := range c.movies {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

func (c *Core) nextCinemaIDLocked() int {
	next := 1
	for _, cin := range c.cinemas {
		if cin.ID >= next {
			next = cin.ID + 1
		}
	}
	return next
}

// UpsertCinema inserts cin or replaces the cinema with the same id
// wholesale, showtimes included.  A zero id is replaced by one past the
// highest cinema id.  Screens and seats default to 1 and 100.  Showtime
// ids must stay unique across all cinemas.
func (c *Core) UpsertCinema(ctx context.Context, cin model.Cinema) (model.CinemaView, error) {
	if cin.ID < 0 {
		return model.CinemaView{}, &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	if strings.TrimSpace(cin.Name) == "" {
		return model.CinemaView{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	cin = cin.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cin.ID == 0 {
		cin.ID = c.nextCinemaIDLocked()
	}
	return c.storeCinemaLocked(ctx, cin, "upsert cinema")
}

// CinemaPatch lists the cinema fields UpdateCinema may change.  Nil
// fields keep their current value.
type CinemaPatch struct {
	Name       *string           `json:"name"`
	Location   *string           `json:"location"`
	Screens    *int              `json:"screens"`
	TotalSeats *int              `json:"totalSeats"`
	Showtimes  *[]model.Showtime `json:"showtimes"`
}

// UpdateCinema merges p into the cinema with the given id.  Unknown ids
// yield ErrNotFound.
func (c *Core) UpdateCinema(ctx context.Context, id int, p CinemaPatch) (model.CinemaView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.cinemaIndexLocked(id)
	if i < 0 {
		return model.CinemaView{}, notFound("cinema", fmt.Sprint(id))
	}
	cin := c.cinemas[i].Clone()
	if p.Name != nil {
		cin.Name = *p.Name
	}
	if p.Location != nil {
		cin.Location = *p.Location
	}
	if p.Screens != nil {
		cin.Screens = *p.Screens
	}
	if p.TotalSeats != nil {
		cin.TotalSeats = *p.TotalSeats
	}
	if p.Showtimes != nil {
		cin.Showtimes = append([]model.Showtime(nil), (*p.Showtimes)...)
	}
	if strings.TrimSpace(cin.Name) == "" {
		return model.CinemaView{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	return c.storeCinemaLocked(ctx, cin, "update cinema")
}

// storeCinemaLocked normalises cin and its showtimes, then inserts or
// replaces it and writes the cinemas collection.
func (c *Core) storeCinemaLocked(ctx context.Context, cin model.Cinema, op string) (model.CinemaView, error) {
	if cin.Screens <= 0 {
		cin.Screens = 1
	}
	if cin.TotalSeats <= 0 {
		cin.TotalSeats = 100
	}

	seen := map[string]struct{}{}
	for i := range cin.Showtimes {
		st := &cin.Showtimes[i]
		if st.ID == "" {
			st.ID = c.newID()
		}
		if _, dup := seen[st.ID]; dup {
			return model.CinemaView{}, &ValidationError{Field: "showtimes", Reason: "duplicate showtime id " + st.ID}
		}
		seen[st.ID] = struct{}{}
		if _, owner, ok := c.findShowtimeLocked(st.ID); ok && c.cinemas[owner].ID != cin.ID {
			return model.CinemaView{}, &ValidationError{Field: "showtimes", Reason: "showtime id " + st.ID + " belongs to another cinema"}
		}
		st.CinemaID = cin.ID
		st.CinemaName = cin.Name
		if st.ScreenType == "" {
			st.ScreenType = model.DefaultScreenType
		}
	}

	if i := c.cinemaIndexLocked(cin.ID); i >= 0 {
		c.cinemas[i] = cin
	} else {
		c.cinemas = append(c.cinemas, cin)
	}
	c.log.Info("cinema stored", zap.String("op", op), zap.Int("cinema_id", cin.ID), zap.Int("showtimes", len(cin.Showtimes)))
	return c.cinemaViewLocked(cin), c.persistCinemasLocked(ctx, op)
}

// DeleteCinema removes the cinema and its showtimes.  Bookings that refer
// to them are kept.  Unknown ids yield ErrNotFound.
func (c *Core) DeleteCinema(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.cinemaIndexLocked(id)
	if i < 0 {
		return notFound("cinema", fmt.Sprint(id))
	}
	c.cinemas = append(c.cinemas[:i], c.cinemas[i+1:]...)
	c.log.Info("cinema deleted", zap.Int("cinema_id", id))
	return c.persistCinemasLocked(ctx, "delete cinema")
}

// AddShowtime appends st to the showtimes of its cinema.  An empty id is
// generated, the cinema name is taken from the cinema and the screen type
// defaults to Standard.  Unknown cinemas yield ErrNotFound.
func (c *Core) AddShowtime(ctx context.Context, st model.Showtime) (model.ShowtimeView, error) {
	switch {
	case st.MovieID <= 0:
		return model.ShowtimeView{}, &ValidationError{Field: "movieId", Reason: "is required"}
	case st.CinemaID <= 0:
		return model.ShowtimeView{}, &ValidationError{Field: "cinemaId", Reason: "is required"}
	case strings.TrimSpace(st.Date) == "":
		return model.ShowtimeView{}, &ValidationError{Field: "date", Reason: "is required"}
	case strings.TrimSpace(st.Time) == "":
		return model.ShowtimeView{}, &ValidationError{Field: "time", Reason: "is required"}
	case st.Price < 0:
		return model.ShowtimeView{}, &ValidationError{Field: "price", Reason: "must not be negative"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ci := c.cinemaIndexLocked(st.CinemaID)
	if ci < 0 {
		return model.ShowtimeView{}, notFound("cinema", fmt.Sprint(st.CinemaID))
	}
	if st.ID == "" {
		st.ID = c.newID()
	} else if _, _, exists := c.findShowtimeLocked(st.ID); exists {
		return model.ShowtimeView{}, &ValidationError{Field: "id", Reason: "showtime " + st.ID + " already exists"}
	}
	st.CinemaName = c.cinemas[ci].Name
	if st.ScreenType == "" {
		st.ScreenType = model.DefaultScreenType
	}
	c.cinemas[ci].Showtimes = append(c.cinemas[ci].Showtimes, st)
	c.log.Info("showtime added", zap.String("showtime_id", st.ID), zap.Int("cinema_id", st.CinemaID))
	return c.viewLocked(st), c.persistCinemasLocked(ctx, "add showtime")
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/ledger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// LoadResult is what Load recovers from the bookings collection.
//
// Movies holds the movieDetails snapshots embedded in booking records, one
// per movie id (the first snapshot wins).  They only seed the catalog and
// never override a movie the catalog already knows.
type LoadResult struct {
	Bookings []model.Booking
	Movies   []model.Movie
	Outcomes []RecordOutcome
}

// Skipped counts the records that were not loaded.
func (r LoadResult) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == RecordSkipped {
			n++
		}
	}
	return n
}

// Gateway converts between the in-memory aggregate and stored collections.
type Gateway struct {
	col   Collections
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithClock overrides the clock used for defaulted booking dates.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDGenerator overrides the id source for records stored without one.
func WithIDGenerator(f func() string) Option {
	return func(g *Gateway) { g.newID = f }
}

func NewGateway(col Collections, log *zap.Logger, opts ...Option) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{
		col:   col,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) read(ctx context.Context, name string) ([]json.RawMessage, error) {
	records, err := g.col.ReadCollection(ctx, name)
	if errors.Is(err, ErrCollectionNotFound) {
		g.log.Info("collection not found, starting empty", zap.String("collection", name))
		return nil, nil
	}
	return records, err
}

// Load reads the bookings collection.  Records that cannot be decoded,
// lack userId, movieId or showtimeId, repeat an earlier id or would
// double-book a seat are skipped and reported; the rest are loaded with
// defaults applied (new id, screen type Standard, today's booking date,
// not cancelled).
func (g *Gateway) Load(ctx context.Context) (LoadResult, error) {
	records, err := g.read(ctx, CollectionBookings)
	if err != nil {
		return LoadResult{}, err
	}
	res := LoadResult{
		Bookings: make([]model.Booking, 0, len(records)),
		Movies:   []model.Movie{},
		Outcomes: make([]RecordOutcome, 0, len(records)),
	}
	seenIDs := make(map[string]struct{}, len(records))
	seenMovies := make(map[int]struct{})

	for i, raw := range records {
		var rec bookingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			res.Outcomes = append(res.Outcomes, skipped(i, "", "malformed record: "+err.Error()))
			continue
		}
		id := ""
		if rec.ID != nil {
			id = *rec.ID
		}
		b, reason := g.bookingFromRecord(rec)
		if reason != "" {
			res.Outcomes = append(res.Outcomes, skipped(i, id, reason))
			continue
		}
		if _, dup := seenIDs[b.ID]; dup {
			res.Outcomes = append(res.Outcomes, skipped(i, b.ID, "duplicate id"))
			continue
		}
		if b.Active() {
			if taken := ledger.Conflicts(res.Bookings, b.ShowtimeID, b.Seats, ""); len(taken) > 0 {
				res.Outcomes = append(res.Outcomes, skipped(i, b.ID, "seats already booked: "+strings.Join(taken, ",")))
				continue
			}
		}
		seenIDs[b.ID] = struct{}{}
		res.Bookings = append(res.Bookings, b)

		out := RecordOutcome{Index: i, ID: b.ID, Status: RecordLoaded}
		if id == "" {
			out.Reason = "id generated"
		}
		if rec.MovieDetails != nil {
			m, why := rec.MovieDetails.toModel()
			if why != "" {
				out.Reason = joinReason(out.Reason, "movieDetails ignored: "+why)
			} else if _, ok := seenMovies[m.ID]; !ok {
				seenMovies[m.ID] = struct{}{}
				res.Movies = append(res.Movies, m)
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	if n := res.Skipped(); n > 0 {
		g.log.Warn("skipped malformed booking records",
			zap.Int("skipped", n), zap.Int("loaded", len(res.Bookings)))
	}
	return res, nil
}

func (g *Gateway) bookingFromRecord(rec bookingRecord) (model.Booking, string) {
	switch {
	case rec.UserID == nil || *rec.UserID == "":
		return model.Booking{}, "missing userId"
	case rec.MovieID == nil:
		return model.Booking{}, "missing movieId"
	case rec.ShowtimeID == nil || *rec.ShowtimeID == "":
		return model.Booking{}, "missing showtimeId"
	}
	seats := make([]string, 0, len(rec.Seats))
	dupe := make(map[string]struct{}, len(rec.Seats))
	for _, s := range rec.Seats {
		if _, ok := dupe[s]; ok {
			return model.Booking{}, "duplicate seat " + s
		}
		dupe[s] = struct{}{}
		seats = append(seats, s)
	}
	b := model.Booking{
		UserID:       *rec.UserID,
		MovieID:      *rec.MovieID,
		MovieTitle:   rec.MovieTitle,
		MoviePoster:  rec.MoviePoster,
		ShowtimeID:   *rec.ShowtimeID,
		ShowtimeDate: rec.ShowtimeDate,
		ShowtimeTime: rec.ShowtimeTime,
		CinemaID:     rec.CinemaID,
		CinemaName:   rec.CinemaName,
		ScreenType:   model.DefaultScreenType,
		Seats:        seats,
		TotalPrice:   rec.TotalPrice,
	}
	if rec.ID != nil && *rec.ID != "" {
		b.ID = *rec.ID
	} else {
		b.ID = g.newID()
	}
	if rec.ScreenType != nil && *rec.ScreenType != "" {
		b.ScreenType = *rec.ScreenType
	}
	if rec.BookingDate != nil && *rec.BookingDate != "" {
		b.BookingDate = *rec.BookingDate
	} else {
		b.BookingDate = g.now().Format(model.BookingDateLayout)
	}
	if rec.Cancelled != nil {
		b.Cancelled = *rec.Cancelled
	}
	return b, ""
}

// Save replaces the bookings collection.  Each record embeds a snapshot of
// its movie when movies knows the movie id.
func (g *Gateway) Save(ctx context.Context, bookings []model.Booking, movies map[int]model.Movie) error {
	records := make([]json.RawMessage, 0, len(bookings))
	for _, b := range bookings {
		exp := bookingExport{Booking: b}
		if exp.Seats == nil {
			exp.Seats = []string{}
		}
		if m, ok := movies[b.MovieID]; ok {
			snap := m.Clone()
			exp.MovieDetails = &snap
		}
		raw, err := json.Marshal(exp)
		if err != nil {
			return fmt.Errorf("encode booking %s: %w", b.ID, err)
		}
		records = append(records, raw)
	}
	return g.col.WriteCollection(ctx, CollectionBookings, records)
}

// LoadMovies reads the movies collection.  Records without id or title and
// repeated ids are skipped.
func (g *Gateway) LoadMovies(ctx context.Context) ([]model.Movie, []RecordOutcome, error) {
	records, err := g.read(ctx, CollectionMovies)
	if err != nil {
		return nil, nil, err
	}
	movies := make([]model.Movie, 0, len(records))
	outcomes := make([]RecordOutcome, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	for i, raw := range records {
		var rec movieRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			outcomes = append(outcomes, skipped(i, "", "malformed record: "+err.Error()))
			continue
		}
		m, reason := rec.toModel()
		if reason != "" {
			outcomes = append(outcomes, skipped(i, intID(rec.ID), reason))
			continue
		}
		if _, dup := seen[m.ID]; dup {
			outcomes = append(outcomes, skipped(i, intID(rec.ID), "duplicate id"))
			continue
		}
		seen[m.ID] = struct{}{}
		movies = append(movies, m)
		outcomes = append(outcomes, RecordOutcome{Index: i, ID: intID(rec.ID), Status: RecordLoaded})
	}
	g.logSkipped(CollectionMovies, outcomes)
	return movies, outcomes, nil
}

// LoadCinemas reads the cinemas collection.  Cinemas without id or name
// are skipped.  Within a loaded cinema, showtimes without id, movieId or
// cinemaId, or whose id was already seen anywhere, are dropped and noted
// on the cinema's outcome.  Stored bookedSeats are ignored.
func (g *Gateway) LoadCinemas(ctx context.Context) ([]model.Cinema, []RecordOutcome, error) {
	records, err := g.read(ctx, CollectionCinemas)
	if err != nil {
		return nil, nil, err
	}
	cinemas := make([]model.Cinema, 0, len(records))
	outcomes := make([]RecordOutcome, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	seenShowtimes := make(map[string]struct{})
	for i, raw := range records {
		var rec cinemaRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			outcomes = append(outcomes, skipped(i, "", "malformed record: "+err.Error()))
			continue
		}
		id := intID(rec.ID)
		switch {
		case rec.ID == nil:
			outcomes = append(outcomes, skipped(i, "", "missing id"))
			continue
		case rec.Name == nil:
			outcomes = append(outcomes, skipped(i, id, "missing name"))
			continue
		}
		if _, dup := seen[*rec.ID]; dup {
			outcomes = append(outcomes, skipped(i, id, "duplicate id"))
			continue
		}
		seen[*rec.ID] = struct{}{}

		c := model.Cinema{
			ID:         *rec.ID,
			Name:       *rec.Name,
			Location:   rec.Location,
			Screens:    1,
			TotalSeats: 100,
			Showtimes:  make([]model.Showtime, 0, len(rec.Showtimes)),
		}
		if rec.Screens != nil {
			c.Screens = *rec.Screens
		}
		if rec.TotalSeats != nil {
			c.TotalSeats = *rec.TotalSeats
		}
		out := RecordOutcome{Index: i, ID: id, Status: RecordLoaded}
		for j, sr := range rec.Showtimes {
			st, why := sr.toModel()
			if why == "" {
				if _, dup := seenShowtimes[st.ID]; dup {
					why = "duplicate id " + st.ID
				}
			}
			if why != "" {
				out.Reason = joinReason(out.Reason, fmt.Sprintf("showtime %d dropped: %s", j, why))
				continue
			}
			seenShowtimes[st.ID] = struct{}{}
			c.Showtimes = append(c.Showtimes, st)
		}
		cinemas = append(cinemas, c)
		outcomes = append(outcomes, out)
	}
	g.logSkipped(CollectionCinemas, outcomes)
	return cinemas, outcomes, nil
}

// SaveMovies replaces the movies collection, ordered by id.
func (g *Gateway) SaveMovies(ctx context.Context, movies []model.Movie) error {
	sorted := make([]model.Movie, len(movies))
	copy(sorted, movies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	records := make([]json.RawMessage, 0, len(sorted))
	for _, m := range sorted {
		raw, err := json.Marshal(m.Clone())
		if err != nil {
			return fmt.Errorf("encode movie %d: %w", m.ID, err)
		}
		records = append(records, raw)
	}
	return g.col.WriteCollection(ctx, CollectionMovies, records)
}

// SaveCinemas replaces the cinemas collection.  The views carry computed
// bookedSeats, which are written for readers of the file but never read
// back.
func (g *Gateway) SaveCinemas(ctx context.Context, cinemas []model.CinemaView) error {
	records := make([]json.RawMessage, 0, len(cinemas))
	for _, c := range cinemas {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode cinema %d: %w", c.ID, err)
		}
		records = append(records, raw)
	}
	return g.col.WriteCollection(ctx, CollectionCinemas, records)
}

func (g *Gateway) logSkipped(name string, outcomes []RecordOutcome) {
	for _, o := range outcomes {
		if o.Status == RecordSkipped {
			g.log.Warn("skipped record",
				zap.String("collection", name), zap.Int("index", o.Index),
				zap.String("id", o.ID), zap.String("reason", o.Reason))
		}
	}
}

func skipped(i int, id, reason string) RecordOutcome {
	return RecordOutcome{Index: i, ID: id, Status: RecordSkipped, Reason: reason}
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

func intID(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

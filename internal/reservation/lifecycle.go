package reservation

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/ledger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
)

// State is the lifecycle state of the Core.
type State string

const (
	// StateRunning accepts mutations and persists each one.
	StateRunning State = "running"
	// StateDraining still accepts mutations but no longer writes to
	// storage or emits events.  There is no way back to running.
	StateDraining State = "draining"
)

// State reports the current lifecycle state.
func (c *Core) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Drain switches the Core to StateDraining and waits, up to ctx, for
// queued events to be handed to the publisher.  Calling it again is a
// no-op.
func (c *Core) Drain(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateDraining {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDraining
	ev := c.events
	if ev != nil {
		ev.close()
	}
	c.mu.Unlock()

	c.log.Info("reservation core draining, persistence disabled")
	if ev != nil {
		return ev.wait(ctx)
	}
	return nil
}

// BookingRequest carries the caller's input for CreateBooking.  MovieID
// and TotalPrice are pointers so that an absent value can be told apart
// from zero.  Denormalized fields left empty are filled from the catalog
// when the showtime or movie is known.
type BookingRequest struct {
	UserID       string   `json:"userId"`
	MovieID      *int     `json:"movieId"`
	MovieTitle   string   `json:"movieTitle"`
	MoviePoster  string   `json:"moviePoster"`
	ShowtimeID   string   `json:"showtimeId"`
	ShowtimeDate string   `json:"showtimeDate"`
	ShowtimeTime string   `json:"showtimeTime"`
	CinemaID     int      `json:"cinemaId"`
	CinemaName   string   `json:"cinemaName"`
	ScreenType   string   `json:"screenType"`
	Seats        []string `json:"seats"`
	TotalPrice   *float64 `json:"totalPrice"`
}

func (r BookingRequest) validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return &ValidationError{Field: "userId", Reason: "is required"}
	case r.MovieID == nil:
		return &ValidationError{Field: "movieId", Reason: "is required"}
	case strings.TrimSpace(r.ShowtimeID) == "":
		return &ValidationError{Field: "showtimeId", Reason: "is required"}
	case r.Seats == nil:
		return &ValidationError{Field: "seats", Reason: "is required"}
	case len(r.Seats) == 0:
		return &ValidationError{Field: "seats", Reason: "must not be empty"}
	case r.TotalPrice == nil:
		return &ValidationError{Field: "totalPrice", Reason: "is required"}
	case *r.TotalPrice < 0:
		return &ValidationError{Field: "totalPrice", Reason: "must not be negative"}
	}
	seen := make(map[string]struct{}, len(r.Seats))
	for _, s := range r.Seats {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: "seats", Reason: "seat label must not be blank"}
		}
		if _, dup := seen[s]; dup {
			return &ValidationError{Field: "seats", Reason: "seat " + s + " requested twice"}
		}
		seen[s] = struct{}{}
	}
	return nil
}

// CreateBooking validates req, checks every requested seat against the
// active bookings of the showtime and appends the new active booking, all
// under the exclusive lock.  A *PersistenceError is returned together with
// the committed booking when the durability write fails.
func (c *Core) CreateBooking(ctx context.Context, req BookingRequest) (model.Booking, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.CreateBooking",
		trace.WithAttributes(
			attribute.String("booking.showtime_id", req.ShowtimeID),
			attribute.Int("booking.seat_count", len(req.Seats)),
		))
	defer span.End()

	if err := req.validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.Booking{}, err
	}

	c.mu.Lock()
	if taken := ledger.Conflicts(c.bookings, req.ShowtimeID, req.Seats, ""); len(taken) > 0 {
		c.mu.Unlock()
		err := &SeatConflictError{ShowtimeID: req.ShowtimeID, Seats: taken}
		span.SetStatus(codes.Error, err.Error())
		return model.Booking{}, err
	}

	b := c.newBookingLocked(req)
	c.bookings = append(c.bookings, b)
	c.byID[b.ID] = len(c.bookings) - 1
	perr := c.persistBookingsLocked(ctx, "create")
	c.emitLocked(queue.BookingCreated, b)
	out := b.Clone()
	c.mu.Unlock()

	span.SetAttributes(attribute.String("booking.id", out.ID))
	c.log.Info("booking created",
		zap.String("booking_id", out.ID), zap.String("user_id", out.UserID),
		zap.String("showtime_id", out.ShowtimeID), zap.Strings("seats", out.Seats))
	if perr != nil {
		span.RecordError(perr)
		return out, perr
	}
	return out, nil
}

func (c *Core) newBookingLocked(req BookingRequest) model.Booking {
	b := model.Booking{
		ID:           c.newID(),
		UserID:       req.UserID,
		MovieID:      *req.MovieID,
		MovieTitle:   req.MovieTitle,
		MoviePoster:  req.MoviePoster,
		ShowtimeID:   req.ShowtimeID,
		ShowtimeDate: req.ShowtimeDate,
		ShowtimeTime: req.ShowtimeTime,
		CinemaID:     req.CinemaID,
		CinemaName:   req.CinemaName,
		ScreenType:   req.ScreenType,
		Seats:        append([]string(nil), req.Seats...),
		TotalPrice:   *req.TotalPrice,
		BookingDate:  c.now().Format(model.BookingDateLayout),
	}
	if st, _, ok := c.findShowtimeLocked(req.ShowtimeID); ok {
		if b.ShowtimeDate == "" {
			b.ShowtimeDate = st.Date
		}
		if b.ShowtimeTime == "" {
			b.ShowtimeTime = st.Time
		}
		if b.CinemaID == 0 {
			b.CinemaID = st.CinemaID
		}
		if b.CinemaName == "" {
			b.CinemaName = st.CinemaName
		}
		if b.ScreenType == "" {
			b.ScreenType = st.ScreenType
		}
	}
	if m, ok := c.movies[b.MovieID]; ok {
		if b.MovieTitle == "" {
			b.MovieTitle = m.Title
		}
		if b.MoviePoster == "" {
			b.MoviePoster = m.Poster
		}
	}
	if b.ScreenType == "" {
		b.ScreenType = model.DefaultScreenType
	}
	return b
}

// CancelBooking moves the booking to cancelled and releases its seats.
// An unknown id returns false.  Cancelling a booking that is already
// cancelled succeeds without writing or publishing anything.
func (c *Core) CancelBooking(ctx context.Context, id string) (bool, error) {
	_, ok, err := c.Cancel(ctx, id)
	return ok, err
}

// Cancel is CancelBooking that also returns the booking as it stood when
// the lock was released.
func (c *Core) Cancel(ctx context.Context, id string) (model.Booking, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.CancelBooking",
		trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	c.mu.Lock()
	i, ok := c.byID[id]
	if !ok {
		c.mu.Unlock()
		return model.Booking{}, false, nil
	}
	if c.bookings[i].Cancelled {
		out := c.bookings[i].Clone()
		c.mu.Unlock()
		return out, true, nil
	}
	c.bookings[i].Cancelled = true
	perr := c.persistBookingsLocked(ctx, "cancel")
	c.emitLocked(queue.BookingCancelled, c.bookings[i])
	out := c.bookings[i].Clone()
	c.mu.Unlock()

	c.log.Info("booking cancelled", zap.String("booking_id", id))
	if perr != nil {
		span.RecordError(perr)
		return out, true, perr
	}
	return out, true, nil
}

// RestoreBooking moves a cancelled booking back to active when none of its
// seats has since been taken by another active booking of the showtime.
// An unknown or already active booking returns false.  A conflict returns
// false with a *SeatConflictError and leaves the booking cancelled.
func (c *Core) RestoreBooking(ctx context.Context, id string) (bool, error) {
	_, ok, err := c.Restore(ctx, id)
	return ok, err
}

// Restore is RestoreBooking that also returns the restored booking.
func (c *Core) Restore(ctx context.Context, id string) (model.Booking, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reservation.RestoreBooking",
		trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	c.mu.Lock()
	i, ok := c.byID[id]
	if !ok || !c.bookings[i].Cancelled {
		c.mu.Unlock()
		return model.Booking{}, false, nil
	}
	b := c.bookings[i]
	if taken := ledger.Conflicts(c.bookings, b.ShowtimeID, b.Seats, b.ID); len(taken) > 0 {
		c.mu.Unlock()
		err := &SeatConflictError{ShowtimeID: b.ShowtimeID, Seats: taken}
		span.SetStatus(codes.Error, err.Error())
		return model.Booking{}, false, err
	}
	c.bookings[i].Cancelled = false
	perr := c.persistBookingsLocked(ctx, "restore")
	c.emitLocked(queue.BookingRestored, c.bookings[i])
	out := c.bookings[i].Clone()
	c.mu.Unlock()

	c.log.Info("booking restored", zap.String("booking_id", id))
	if perr != nil {
		span.RecordError(perr)
		return out, true, perr
	}
	return out, true, nil
}

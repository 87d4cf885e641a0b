package reservation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
)

// ErrDraining is returned by SaveAll once the Core has started draining.
var ErrDraining = errors.New("reservation core is draining")

const (
	defaultEventBuffer  = 256
	eventPublishTimeout = 5 * time.Second
)

// persistBookingsLocked writes the full booking collection.  The caller
// holds the write lock, so writes are serialised and each one reflects a
// linearised state.  A failure is logged and wrapped; the in-memory change
// stands.
func (c *Core) persistBookingsLocked(ctx context.Context, op string) error {
	if c.store == nil || c.state == StateDraining {
		return nil
	}
	if err := c.store.Save(ctx, c.bookings, c.movies); err != nil {
		c.log.Warn("booking state committed but not persisted", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (c *Core) persistMoviesLocked(ctx context.Context, op string) error {
	if c.store == nil || c.state == StateDraining {
		return nil
	}
	if err := c.store.SaveMovies(ctx, c.sortedMoviesLocked()); err != nil {
		c.log.Warn("movie catalog committed but not persisted", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (c *Core) persistCinemasLocked(ctx context.Context, op string) error {
	if c.store == nil || c.state == StateDraining {
		return nil
	}
	if err := c.store.SaveCinemas(ctx, c.cinemaViewsLocked()); err != nil {
		c.log.Warn("cinemas committed but not persisted", zap.String("op", op), zap.Error(err))
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// SaveAll writes movies, cinemas and bookings, in that order, stopping at
// the first failure.  It is the retry path after a *PersistenceError.
func (c *Core) SaveAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDraining {
		return ErrDraining
	}
	if err := c.persistMoviesLocked(ctx, "flush"); err != nil {
		return err
	}
	if err := c.persistCinemasLocked(ctx, "flush"); err != nil {
		return err
	}
	return c.persistBookingsLocked(ctx, "flush")
}

// emitLocked queues an event for b.  It never blocks: when the buffer is
// full the event is dropped with a warning.  Holding the lock guarantees
// Drain cannot close the queue underneath the send.
func (c *Core) emitLocked(kind queue.EventKind, b model.Booking) {
	if c.events == nil || c.state == StateDraining {
		return
	}
	c.events.enqueue(queue.NewBookingEvent(kind, b, c.now()))
}

// dispatcher hands events to the publisher from a single goroutine so they
// leave in commit order.
type dispatcher struct {
	pub  EventPublisher
	log  *zap.Logger
	ch   chan queue.BookingEvent
	done chan struct{}
	once sync.Once
}

func newDispatcher(p EventPublisher, size int) *dispatcher {
	return &dispatcher{
		pub:  p,
		log:  zap.NewNop(),
		ch:   make(chan queue.BookingEvent, size),
		done: make(chan struct{}),
	}
}

func (d *dispatcher) start() {
	go func() {
		defer close(d.done)
		for ev := range d.ch {
			ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
			if err := d.pub.Publish(ctx, ev); err != nil {
				d.log.Warn("booking event not published",
					zap.String("kind", string(ev.Kind)), zap.String("booking_id", ev.BookingID), zap.Error(err))
			}
			cancel()
		}
	}()
}

func (d *dispatcher) enqueue(ev queue.BookingEvent) {
	select {
	case d.ch <- ev:
	default:
		d.log.Warn("event buffer full, dropping booking event",
			zap.String("kind", string(ev.Kind)), zap.String("booking_id", ev.BookingID))
	}
}

func (d *dispatcher) close() { d.once.Do(func() { close(d.ch) }) }

func (d *dispatcher) wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

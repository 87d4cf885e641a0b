// Package queue defines the booking lifecycle messages exchanged over the
// message broker, the publisher used by the reservation core and the
// consumer that keeps the booking audit log.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// EventKind names a booking state change.  It doubles as the routing key
// when an exchange is configured.
type EventKind string

const (
	BookingCreated   EventKind = "booking.created"
	BookingCancelled EventKind = "booking.cancelled"
	BookingRestored  EventKind = "booking.restored"
)

// BookingEvent is published after a booking state change has been
// committed.  It contains enough information for downstream consumers to
// log, notify or trigger analytics without querying the service.
type BookingEvent struct {
	Kind         EventKind `json:"kind"`
	BookingID    string    `json:"booking_id"`
	UserID       string    `json:"user_id"`
	MovieID      int       `json:"movie_id"`
	MovieTitle   string    `json:"movie_title"`
	ShowtimeID   string    `json:"showtime_id"`
	ShowtimeDate string    `json:"showtime_date"`
	ShowtimeTime string    `json:"showtime_time"`
	CinemaID     int       `json:"cinema_id"`
	CinemaName   string    `json:"cinema_name"`
	ScreenType   string    `json:"screen_type"`
	SeatLabels   []string  `json:"seats"`
	TotalPrice   float64   `json:"total_price"`
	OccurredAt   string    `json:"occurred_at"`
}

// NewBookingEvent snapshots b for the given transition.
func NewBookingEvent(kind EventKind, b model.Booking, at time.Time) BookingEvent {
	seats := make([]string, len(b.Seats))
	copy(seats, b.Seats)
	return BookingEvent{
		Kind:         kind,
		BookingID:    b.ID,
		UserID:       b.UserID,
		MovieID:      b.MovieID,
		MovieTitle:   b.MovieTitle,
		ShowtimeID:   b.ShowtimeID,
		ShowtimeDate: b.ShowtimeDate,
		ShowtimeTime: b.ShowtimeTime,
		CinemaID:     b.CinemaID,
		CinemaName:   b.CinemaName,
		ScreenType:   b.ScreenType,
		SeatLabels:   seats,
		TotalPrice:   b.TotalPrice,
		OccurredAt:   at.UTC().Format(time.RFC3339),
	}
}

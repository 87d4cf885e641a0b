// Package ledger answers seat occupancy questions.  It holds no state of
// its own: occupancy is always recomputed from the booking collection, so
// it can never drift from the bookings that justify it.
package ledger

import (
	"sort"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Set is an unordered set of seat labels.
type Set map[string]struct{}

// Has reports whether seat is in the set.
func (s Set) Has(seat string) bool {
	_, ok := s[seat]
	return ok
}

// Len returns the number of seats in the set.
func (s Set) Len() int { return len(s) }

// Sorted returns the seats in lexical order.  The result is never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for seat := range s {
		out = append(out, seat)
	}
	sort.Strings(out)
	return out
}

// Occupied returns the union of seats held by active bookings of the
// showtime.  An unknown showtime yields an empty set.
func Occupied(bookings []model.Booking, showtimeID string) Set {
	return OccupiedExcept(bookings, showtimeID, "")
}

// OccupiedExcept is Occupied with the booking identified by bookingID left
// out.  An empty bookingID excludes nothing.
func OccupiedExcept(bookings []model.Booking, showtimeID, bookingID string) Set {
	set := Set{}
	for i := range bookings {
		b := &bookings[i]
		if b.Cancelled || b.ShowtimeID != showtimeID {
			continue
		}
		if bookingID != "" && b.ID == bookingID {
			continue
		}
		for _, seat := range b.Seats {
			set[seat] = struct{}{}
		}
	}
	return set
}

// IsFree reports whether no active booking of the showtime holds seat.
func IsFree(bookings []model.Booking, showtimeID, seat string) bool {
	for i := range bookings {
		b := &bookings[i]
		if b.Cancelled || b.ShowtimeID != showtimeID {
			continue
		}
		for _, s := range b.Seats {
			if s == seat {
				return false
			}
		}
	}
	return true
}

// Conflicts returns the requested seats that are already held by active
// bookings of the showtime other than exceptID, in request order.
func Conflicts(bookings []model.Booking, showtimeID string, seats []string, exceptID string) []string {
	taken := OccupiedExcept(bookings, showtimeID, exceptID)
	var out []string
	for _, seat := range seats {
		if taken.Has(seat) {
			out = append(out, seat)
		}
	}
	return out
}

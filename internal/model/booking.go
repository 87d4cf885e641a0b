package model

// BookingState is the lifecycle state of a booking.  It is derived from the
// persisted Cancelled flag.
type BookingState string

const (
	StateActive    BookingState = "active"
	StateCancelled BookingState = "cancelled"
)

// BookingDateLayout is the format of Booking.BookingDate.
const BookingDateLayout = "2006-01-02"

// Booking records a user's seats for one showtime.  Movie, showtime and
// cinema fields are copied at booking time so that history stays readable
// after catalog changes.  Bookings are never removed: cancellation only
// sets Cancelled.
//
// Fields:
//  ID           – generated identifier, never reused.
//  UserID       – user who made the booking.
//  MovieID      – booked movie.
//  MovieTitle   – movie title at booking time.
//  MoviePoster  – movie poster at booking time.
//  ShowtimeID   – booked showtime.
//  ShowtimeDate – showtime date at booking time.
//  ShowtimeTime – showtime time at booking time.
//  CinemaID     – cinema of the showtime.
//  CinemaName   – cinema name at booking time.
//  ScreenType   – screen type at booking time.
//  Seats        – ordered seat labels, unique within the booking.
//  TotalPrice   – amount charged.
//  BookingDate  – creation date (YYYY-MM-DD), immutable.
//  Cancelled    – soft-delete flag.
type Booking struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	MovieID      int      `json:"movieId"`
	MovieTitle   string   `json:"movieTitle"`
	MoviePoster  string   `json:"moviePoster"`
	ShowtimeID   string   `json:"showtimeId"`
	ShowtimeDate string   `json:"showtimeDate"`
	ShowtimeTime string   `json:"showtimeTime"`
	CinemaID     int      `json:"cinemaId"`
	CinemaName   string   `json:"cinemaName"`
	ScreenType   string   `json:"screenType"`
	Seats        []string `json:"seats"`
	TotalPrice   float64  `json:"totalPrice"`
	BookingDate  string   `json:"bookingDate"`
	Cancelled    bool     `json:"cancelled"`
}

// State reports the lifecycle state of the booking.
func (b Booking) State() BookingState {
	if b.Cancelled {
		return StateCancelled
	}
	return StateActive
}

// Active reports whether the booking currently holds its seats.
func (b Booking) Active() bool { return !b.Cancelled }

// Clone returns a deep copy so callers cannot reach the seat slice of a
// stored booking.
func (b Booking) Clone() Booking {
	b.Seats = cloneStrings(b.Seats)
	return b
}

// CloneBookings deep-copies a slice of bookings.
func CloneBookings(in []Booking) []Booking {
	out := make([]Booking, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}

package model

// DefaultScreenType is assigned to showtimes and bookings that do not name
// a screen type.
const DefaultScreenType = "Standard"

// Cinema is a venue with a fixed number of screens and seats.  A cinema
// owns its showtimes: a showtime is only reachable through the cinema it
// was added to.
//
// Fields:
//  ID         – unique cinema identifier.
//  Name       – display name.
//  Location   – address or area.
//  Screens    – number of screens (defaults to 1).
//  TotalSeats – seat capacity (defaults to 100).
//  Showtimes  – scheduled screenings in insertion order.
type Cinema struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	Location   string     `json:"location"`
	Screens    int        `json:"screens"`
	TotalSeats int        `json:"totalSeats"`
	Showtimes  []Showtime `json:"showtimes"`
}

// Clone returns a deep copy of the cinema including its showtimes.
func (c Cinema) Clone() Cinema {
	st := make([]Showtime, len(c.Showtimes))
	copy(st, c.Showtimes)
	c.Showtimes = st
	return c
}

// Showtime is a scheduled screening of a movie at a cinema.  MovieID and
// CinemaID are advisory references; nothing enforces that they resolve.
// Occupied seats are deliberately absent: they are derived from bookings
// whenever they are needed (see ShowtimeView).
//
// Fields:
//  ID         – system-wide unique identifier.
//  MovieID    – movie being screened.
//  CinemaID   – cinema hosting the screening.
//  CinemaName – denormalized cinema name.
//  Date       – screening date (YYYY-MM-DD).
//  Time       – screening time (HH:MM).
//  ScreenType – screen label such as Standard, IMAX or 4DX.
//  Price      – price per seat.
type Showtime struct {
	ID         string  `json:"id"`
	MovieID    int     `json:"movieId"`
	CinemaID   int     `json:"cinemaId"`
	CinemaName string  `json:"cinemaName"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	ScreenType string  `json:"screenType"`
	Price      float64 `json:"price"`
}

// ShowtimeView is the exported shape of a showtime.  BookedSeats is
// computed from the active bookings at the moment the view is built and
// is never read back as a source of truth.
type ShowtimeView struct {
	Showtime
	BookedSeats []string `json:"bookedSeats"`
}

// CinemaView is the exported shape of a cinema with computed showtime
// occupancy.
type CinemaView struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Location   string         `json:"location"`
	Screens    int            `json:"screens"`
	TotalSeats int            `json:"totalSeats"`
	Showtimes  []ShowtimeView `json:"showtimes"`
}

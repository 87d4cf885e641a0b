package store

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// RecordStatus is the fate of one stored record during a load.
type RecordStatus string

const (
	RecordLoaded  RecordStatus = "loaded"
	RecordSkipped RecordStatus = "skipped"
)

// RecordOutcome reports what happened to the record at Index of a
// collection.  ID is empty when the record carried no usable id.  Reason
// explains a skip, or notes a repair on a loaded record.
type RecordOutcome struct {
	Index  int          `json:"index"`
	ID     string       `json:"id,omitempty"`
	Status RecordStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// stringList accepts either a JSON array of strings or a single
// comma-separated string, which older data files used for genres and cast.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("expected array of strings or comma-separated string")
	}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

type movieRecord struct {
	ID          *int       `json:"id"`
	Title       *string    `json:"title"`
	Poster      string     `json:"poster"`
	Banner      string     `json:"banner"`
	Description string     `json:"description"`
	Rating      float64    `json:"rating"`
	Duration    string     `json:"duration"`
	ReleaseDate string     `json:"releaseDate"`
	Genres      stringList `json:"genres"`
	Language    string     `json:"language"`
	Director    string     `json:"director"`
	Cast        stringList `json:"cast"`
}

func (r movieRecord) toModel() (model.Movie, string) {
	switch {
	case r.ID == nil:
		return model.Movie{}, "missing id"
	case r.Title == nil:
		return model.Movie{}, "missing title"
	}
	m := model.Movie{
		ID:          *r.ID,
		Title:       *r.Title,
		Poster:      r.Poster,
		Banner:      r.Banner,
		Description: r.Description,
		Rating:      r.Rating,
		Duration:    r.Duration,
		ReleaseDate: r.ReleaseDate,
		Genres:      []string(r.Genres),
		Language:    r.Language,
		Director:    r.Director,
		Cast:        []string(r.Cast),
	}
	return m.Clone(), ""
}

type showtimeRecord struct {
	ID         *string  `json:"id"`
	MovieID    *int     `json:"movieId"`
	CinemaID   *int     `json:"cinemaId"`
	CinemaName string   `json:"cinemaName"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	ScreenType *string  `json:"screenType"`
	Price      float64  `json:"price"`
	// BookedSeats is export-only; occupancy is rebuilt from bookings.
	BookedSeats []string `json:"bookedSeats"`
}

func (r showtimeRecord) toModel() (model.Showtime, string) {
	switch {
	case r.ID == nil || *r.ID == "":
		return model.Showtime{}, "missing id"
	case r.MovieID == nil:
		return model.Showtime{}, "missing movieId"
	case r.CinemaID == nil:
		return model.Showtime{}, "missing cinemaId"
	}
	st := model.Showtime{
		ID:         *r.ID,
		MovieID:    *r.MovieID,
		CinemaID:   *r.CinemaID,
		CinemaName: r.CinemaName,
		Date:       r.Date,
		Time:       r.Time,
		ScreenType: model.DefaultScreenType,
		Price:      r.Price,
	}
	if r.ScreenType != nil && *r.ScreenType != "" {
		st.ScreenType = *r.ScreenType
	}
	return st, ""
}

type cinemaRecord struct {
	ID         *int             `json:"id"`
	Name       *string          `json:"name"`
	Location   string           `json:"location"`
	Screens    *int             `json:"screens"`
	TotalSeats *int             `json:"totalSeats"`
	Showtimes  []showtimeRecord `json:"showtimes"`
}

type bookingRecord struct {
	ID           *string      `json:"id"`
	UserID       *string      `json:"userId"`
	MovieID      *int         `json:"movieId"`
	MovieTitle   string       `json:"movieTitle"`
	MoviePoster  string       `json:"moviePoster"`
	ShowtimeID   *string      `json:"showtimeId"`
	ShowtimeDate string       `json:"showtimeDate"`
	ShowtimeTime string       `json:"showtimeTime"`
	CinemaID     int          `json:"cinemaId"`
	CinemaName   string       `json:"cinemaName"`
	ScreenType   *string      `json:"screenType"`
	Seats        []string     `json:"seats"`
	TotalPrice   float64      `json:"totalPrice"`
	BookingDate  *string      `json:"bookingDate"`
	Cancelled    *bool        `json:"cancelled"`
	MovieDetails *movieRecord `json:"movieDetails"`
}

// bookingExport is the persisted shape of a booking: the booking fields
// plus an optional snapshot of the movie it refers to.
type bookingExport struct {
	model.Booking
	MovieDetails *model.Movie `json:"movieDetails,omitempty"`
}

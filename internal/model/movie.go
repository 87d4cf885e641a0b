package model

// Movie describes a film in the catalog.  Movies are keyed by an
// integer ID and are replaced wholesale by an upsert on the same ID.
// Bookings copy the title and poster at booking time, so a later
// catalog change never rewrites booking history.
//
// Fields:
//  ID          – unique movie identifier.
//  Title       – display title.
//  Poster      – poster image URL.
//  Banner      – banner image URL.
//  Description – synopsis.
//  Rating      – average rating (0 when unknown).
//  Duration    – free-form running time such as "2h 28m".
//  ReleaseDate – release date string.
//  Genres      – ordered list of genres.
//  Language    – original language.
//  Director    – director name.
//  Cast        – ordered list of cast members.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Poster      string   `json:"poster"`
	Banner      string   `json:"banner"`
	Description string   `json:"description"`
	Rating      float64  `json:"rating"`
	Duration    string   `json:"duration"`
	ReleaseDate string   `json:"releaseDate"`
	Genres      []string `json:"genres"`
	Language    string   `json:"language"`
	Director    string   `json:"director"`
	Cast        []string `json:"cast"`
}

// PlaceholderMovie builds the minimal movie used when a booking refers to a
// movie ID that the catalog does not know.  Only the fields the booking
// captured are available.
func PlaceholderMovie(b Booking) Movie {
	return Movie{
		ID:     b.MovieID,
		Title:  b.MovieTitle,
		Poster: b.MoviePoster,
		Genres: []string{},
		Cast:   []string{},
	}
}

// Clone returns a deep copy of the movie.
func (m Movie) Clone() Movie {
	m.Genres = cloneStrings(m.Genres)
	m.Cast = cloneStrings(m.Cast)
	return m
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

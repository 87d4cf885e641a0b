package model

// Analytics summarises the booking collection for the admin dashboard.
// Every figure except CancellationRate is computed over active bookings.
type Analytics struct {
	TotalBookings        int                `json:"totalBookings"`
	TotalRevenue         float64            `json:"totalRevenue"`
	UniqueUsers          int                `json:"uniqueUsers"`
	RevenueByDay         map[string]float64 `json:"revenueByDay"`
	MoviePopularity      map[int]int        `json:"moviePopularity"`
	ScreenTypePopularity map[string]int     `json:"screenTypePopularity"`
	AverageBookingValue  float64            `json:"averageBookingValue"`
	CancellationRate     float64            `json:"cancellationRate"`
}

// ComputeAnalytics aggregates the given bookings.  The cancellation rate is
// cancelled / (active + cancelled) and is 0 for an empty collection.
func ComputeAnalytics(bookings []Booking) Analytics {
	a := Analytics{
		RevenueByDay:         map[string]float64{},
		MoviePopularity:      map[int]int{},
		ScreenTypePopularity: map[string]int{},
	}
	users := make(map[string]struct{})
	cancelled := 0
	for _, b := range bookings {
		if b.Cancelled {
			cancelled++
			continue
		}
		a.TotalBookings++
		a.TotalRevenue += b.TotalPrice
		users[b.UserID] = struct{}{}
		a.RevenueByDay[b.BookingDate] += b.TotalPrice
		a.MoviePopularity[b.MovieID]++
		a.ScreenTypePopularity[b.ScreenType]++
	}
	a.UniqueUsers = len(users)
	if a.TotalBookings > 0 {
		a.AverageBookingValue = a.TotalRevenue / float64(a.TotalBookings)
	}
	if total := a.TotalBookings + cancelled; total > 0 {
		a.CancellationRate = float64(cancelled) / float64(total)
	}
	return a
}

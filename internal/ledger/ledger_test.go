package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

func fixture() []model.Booking {
	return []model.Booking{
		{ID: "b1", ShowtimeID: "s1", Seats: []string{"A2", "A1"}},
		{ID: "b2", ShowtimeID: "s1", Seats: []string{"B1"}, Cancelled: true},
		{ID: "b3", ShowtimeID: "s2", Seats: []string{"A1"}},
		{ID: "b4", ShowtimeID: "s1", Seats: []string{"C3"}},
	}
}

func TestOccupied(t *testing.T) {
	set := Occupied(fixture(), "s1")
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"A1", "A2", "C3"}, set.Sorted())
	assert.False(t, set.Has("B1"), "cancelled bookings do not hold seats")
}

func TestOccupiedUnknownShowtime(t *testing.T) {
	set := Occupied(fixture(), "nope")
	assert.Equal(t, 0, set.Len())
	assert.NotNil(t, set.Sorted())
	assert.Empty(t, set.Sorted())
}

func TestOccupiedExcept(t *testing.T) {
	set := OccupiedExcept(fixture(), "s1", "b1")
	assert.Equal(t, []string{"C3"}, set.Sorted())
}

func TestIsFree(t *testing.T) {
	bs := fixture()
	assert.False(t, IsFree(bs, "s1", "A1"))
	assert.True(t, IsFree(bs, "s1", "B1"))
	assert.True(t, IsFree(bs, "s3", "A1"))
}

func TestConflicts(t *testing.T) {
	bs := fixture()
	assert.Equal(t, []string{"C3", "A1"}, Conflicts(bs, "s1", []string{"C3", "D1", "A1"}, ""))
	assert.Equal(t, []string{"C3"}, Conflicts(bs, "s1", []string{"C3", "A1"}, "b1"))
	assert.Empty(t, Conflicts(bs, "s1", []string{"B1"}, ""))
}

package schedule

import (
	"testing"
	"time"

	"ms-meetings/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantAcceptsBrowserAndNativeFormats(t *testing.T) {
	want := time.Date(2025, 2, 23, 15, 0, 0, 0, time.UTC)
	for _, clock := range []string{
		"3:00 PM",
		"03:00 PM",
		"3:00PM",
		"3:00 pm",
		"3:00:00 PM",
		"3:00\u202fPM",
		"3:00\u00a0PM",
		"15:00",
		"15:00:00",
		"  15:00 ",
	} {
		got, err := Instant("2025-02-23", clock, time.UTC)
		require.NoError(t, err, clock)
		assert.Equal(t, want, got, clock)
	}
}

func TestInstantMidnightAndNoon(t *testing.T) {
	got, err := Instant("2025-02-23", "12:00 AM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())

	got, err = Instant("2025-02-23", "12:00 PM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())
}

func TestInstantRejectsMalformedInput(t *testing.T) {
	for _, c := range [][2]string{
		{"2025-02-23", ""},
		{"2025-02-23", "soon"},
		{"2025-02-23", "13:00 PM"},
		{"2025-02-23", "24:00"},
		{"23/02/2025", "10:00"},
		{"2025-02-30", "10:00"},
	} {
		_, err := Instant(c[0], c[1], time.UTC)
		assert.ErrorIs(t, err, ErrMalformedEventTime, c)
	}
}

func TestInstantIsLocalToLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, err := Instant("2025-07-04", "9:00 AM", ny)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 4, 13, 0, 0, 0, time.UTC), got.UTC())
}

func TestNormalizeDateKeepsPickedDay(t *testing.T) {
	for _, name := range []string{"UTC", "Pacific/Kiritimati", "Pacific/Pago_Pago", "America/St_Johns"} {
		loc, err := time.LoadLocation(name)
		require.NoError(t, err)
		assert.Equal(t, "2025-03-10", normalizeDate(models.CivilDate{Year: 2025, Month: time.March, Day: 10}, loc), name)
	}
	assert.Equal(t, "2024-02-01", normalizeDate(models.CivilDate{Year: 2023, Month: 14, Day: 1}, time.UTC))
}

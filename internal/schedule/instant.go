package schedule

import (
	"fmt"
	"strings"
	"time"

	"ms-meetings/internal/models"
)

// timeLayouts are tried in order. Browsers format times as "3:00 PM" or
// "3:00:00 PM"; the native time input yields "15:00".
var timeLayouts = []string{
	"3:04 PM",
	"3:04PM",
	"3:04 pm",
	"3:04pm",
	"3:04:05 PM",
	"3:04:05 pm",
	"15:04",
	"15:04:05",
}

var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

func cleanTime(s string) string {
	return strings.TrimSpace(spaceReplacer.Replace(s))
}

// parseClock returns hour, minute and second of a wall-clock string.
func parseClock(s string) (int, int, int, error) {
	s = cleanTime(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: unrecognised time %q", ErrMalformedEventTime, s)
}

// Instant combines a stored "YYYY-MM-DD" date and a wall-clock time into
// one point in time, reading both as local to loc.
func Instant(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrMalformedEventTime, date)
	}
	h, m, s, err := parseClock(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc), nil
}

// EventInstant is Instant applied to a stored event.
func EventInstant(e models.Event, loc *time.Location) (time.Time, error) {
	return Instant(e.Date, e.Time, loc)
}

// draftInstant combines the picked civil date with the draft time. Out of
// range parts roll over the way time.Date normalises them.
func draftInstant(d models.EventDraft, loc *time.Location) (time.Time, error) {
	h, m, s, err := parseClock(d.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Date.Year, d.Date.Month, d.Date.Day, h, m, s, 0, loc), nil
}

// normalizeDate formats local midnight of the picked date in loc, so the
// stored string is the date the user saw regardless of UTC offset.
func normalizeDate(d models.CivilDate, loc *time.Location) string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Format(models.DateLayout)
}

// normalizedMonth re-reads the month from a normalized date string.
func normalizedMonth(date string) (time.Month, error) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0, err
	}
	return t.Month(), nil
}

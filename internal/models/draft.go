package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CivilDate is the calendar date a user picked, before any range checks.
// Month may hold 13 and Day may hold 30 for February; callers validate.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// CivilDateOf returns the date t falls on as seen from loc.
func CivilDateOf(t time.Time, loc *time.Location) CivilDate {
	y, m, d := t.In(loc).Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// ParseCivilDate splits "YYYY-MM-DD" into its parts without checking that
// the day exists in that month.
func ParseCivilDate(s string) (CivilDate, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) == 0 || len(parts[2]) == 0 {
		return CivilDate{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return CivilDate{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
		}
		nums[i] = n
	}
	return CivilDate{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}, nil
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// EventDraft is what a user submits from the create or edit form.
type EventDraft struct {
	Title       string
	Date        CivilDate
	Time        string
	MeetingLink string
	UserEmail   string
}

package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"ms-meetings/internal/models"
	"ms-meetings/internal/schedule"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//ms-meetings//Meeting Dashboard//EN"

// MeetingDuration is the length given to exported meetings; events carry
// only a start.
const MeetingDuration = time.Hour

var ErrEmptyCalendar = errors.New("no exportable events")

// EventUID is stable for the same occurrence of the same meeting, so
// calendar clients update instead of duplicating on re-import.
func EventUID(user string, e models.Event) string {
	name := fmt.Sprintf("%s|%s|%s|%s", user, e.Date, e.Time, e.MeetingLink)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String() + "@ms-meetings"
}

// Build turns a user's events into a VCALENDAR. Events whose time cannot
// be read are left out and returned as skipped indexes.
func Build(user string, events []models.Event, loc *time.Location, stamp time.Time) (*ical.Calendar, []int) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	var skipped []int
	for i, e := range events {
		start, err := schedule.EventInstant(e, loc)
		if err != nil {
			skipped = append(skipped, i)
			continue
		}

		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, EventUID(user, e))
		vevent.Props.SetText(ical.PropSummary, e.Title)
		vevent.Props.SetText(ical.PropLocation, e.MeetingLink)
		vevent.Props.SetText(ical.PropDescription, "Join: "+e.MeetingLink)
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(MeetingDuration).UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		cal.Children = append(cal.Children, vevent.Component)
	}
	return cal, skipped
}

// Write encodes the user's calendar to w.
func Write(w io.Writer, user string, events []models.Event, loc *time.Location, stamp time.Time) ([]int, error) {
	cal, skipped := Build(user, events, loc, stamp)
	if len(cal.Children) == 0 {
		return skipped, ErrEmptyCalendar
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return skipped, fmt.Errorf("encode calendar: %w", err)
	}
	return skipped, nil
}

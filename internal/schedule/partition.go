package schedule

import (
	"sort"
	"time"

	"ms-meetings/internal/models"
)

const DiagnosticMalformedEventTime = "MalformedEventTime"

// ScheduledEvent is an event with its position in the source list and its
// instant. Instant is zero when the event's time could not be parsed.
type ScheduledEvent struct {
	Index     int          `json:"index"`
	Event     models.Event `json:"event"`
	Instant   time.Time    `json:"instant"`
	Malformed bool         `json:"malformed,omitempty"`
}

type Diagnostic struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	Err   error  `json:"-"`
}

func (d Diagnostic) Message() string {
	if d.Err == nil {
		return d.Code
	}
	return d.Err.Error()
}

type Partition struct {
	Upcoming    []ScheduledEvent `json:"upcoming"`
	Completed   []ScheduledEvent `json:"completed"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
}

// PartitionEvents splits events into upcoming (instant >= now) and
// completed (instant < now), both ascending by instant with ties kept in
// list order. Events with an unparseable time follow the orderable
// upcoming events and are reported in Diagnostics.
func PartitionEvents(events []models.Event, now time.Time, loc *time.Location) Partition {
	p := Partition{
		Upcoming:  []ScheduledEvent{},
		Completed: []ScheduledEvent{},
	}
	var unorderable []ScheduledEvent

	for i, e := range events {
		instant, err := EventInstant(e, loc)
		if err != nil {
			unorderable = append(unorderable, ScheduledEvent{Index: i, Event: e, Malformed: true})
			p.Diagnostics = append(p.Diagnostics, Diagnostic{
				Index: i,
				Code:  DiagnosticMalformedEventTime,
				Err:   err,
			})
			continue
		}

		se := ScheduledEvent{Index: i, Event: e, Instant: instant}
		if instant.Before(now) {
			p.Completed = append(p.Completed, se)
		} else {
			p.Upcoming = append(p.Upcoming, se)
		}
	}

	byInstant := func(list []ScheduledEvent) func(a, b int) bool {
		return func(a, b int) bool { return list[a].Instant.Before(list[b].Instant) }
	}
	sort.SliceStable(p.Upcoming, byInstant(p.Upcoming))
	sort.SliceStable(p.Completed, byInstant(p.Completed))

	p.Upcoming = append(p.Upcoming, unorderable...)
	return p
}

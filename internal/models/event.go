package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of Event.Date.
const DateLayout = "2006-01-02"

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusJoined    EventStatus = "joined"
	EventStatusCompleted EventStatus = "completed"
)

// Event is one record of a user's event list as the backend returns it.
// It has no key of its own; the backend addresses it by list position.
type Event struct {
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	MeetingLink string      `json:"meeting_link"`
	UserEmail   string      `json:"user_email,omitempty"`
	Status      EventStatus `json:"status,omitempty"`
}

var ErrMalformedRecord = errors.New("malformed event record")

// Validate checks the fields every record must carry before it is
// accepted from the backend.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrMalformedRecord)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrMalformedRecord, e.Date)
	}
	if strings.TrimSpace(e.Time) == "" {
		return fmt.Errorf("%w: missing time", ErrMalformedRecord)
	}
	if strings.TrimSpace(e.MeetingLink) == "" {
		return fmt.Errorf("%w: missing meeting_link", ErrMalformedRecord)
	}
	switch e.Status {
	case "", EventStatusScheduled, EventStatusJoined, EventStatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrMalformedRecord, e.Status)
	}
	return nil
}

// EventPayload is the body sent to the backend on create and update.
type EventPayload struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	MeetingLink string `json:"meeting_link"`
	UserEmail   string `json:"user_email"`
}

// EventsResponse wraps lists returned by list, create and update.
type EventsResponse struct {
	Events []Event `json:"events"`
}

// MessageResponse is the backend's acknowledgement and error body.
type MessageResponse struct {
	Message string `json:"message"`
}

// EventChange is published after a successful mutation of a user's list.
type EventChange struct {
	UserEmail string    `json:"user_email"`
	Action    string    `json:"action"` // created, updated, deleted
	Index     int       `json:"index"`
	At        time.Time `json:"at"`
}

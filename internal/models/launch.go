package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LaunchSourceManual    = "manual"
	LaunchSourceScheduler = "scheduler"

	LaunchStatusLaunched = "launched"
	LaunchStatusFailed   = "failed"
)

// LaunchRequest asks for the meeting assistant to join one event.
type LaunchRequest struct {
	UserEmail  string
	EventIndex int
	Event      Event
	Instant    time.Time
	Source     string
}

// LaunchRecord is one attempt to send the assistant into a meeting.
type LaunchRecord struct {
	bun.BaseModel `bun:"table:assistant_launches"`

	ID           string    `bun:"id,pk" json:"id"`
	UserEmail    string    `bun:"user_email,notnull" json:"user_email"`
	EventIndex   int       `bun:"event_index" json:"event_index"`
	Title        string    `bun:"title" json:"title"`
	MeetingLink  string    `bun:"meeting_link,notnull" json:"meeting_link"`
	ScheduledFor time.Time `bun:"scheduled_for,nullzero" json:"scheduled_for,omitempty"`
	Source       string    `bun:"source,notnull" json:"source"`
	Status       string    `bun:"status,notnull" json:"status"`
	Error        string    `bun:"error,nullzero" json:"error,omitempty"`
	LaunchedAt   time.Time `bun:"launched_at,notnull" json:"launched_at"`
}

// JoinRequest is the backend's manual-join body.
type JoinRequest struct {
	MeetingLink string `json:"meeting_link"`
	UserName    string `json:"user_name"`
}

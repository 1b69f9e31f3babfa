package schedule_test

import (
	"errors"
	"testing"
	"time"

	"ms-meetings/internal/models"
	"ms-meetings/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(list []schedule.ScheduledEvent) []string {
	out := make([]string, 0, len(list))
	for _, se := range list {
		out = append(out, se.Event.Title)
	}
	return out
}

func TestPartitionBothUpcomingInGivenOrder(t *testing.T) {
	now := time.Date(2025, 2, 22, 9, 0, 0, 0, time.UTC)
	p := schedule.PartitionEvents(sampleEvents(), now, time.UTC)

	assert.Equal(t, []string{"Standup", "Review"}, titles(p.Upcoming))
	assert.Empty(t, p.Completed)
	assert.Empty(t, p.Diagnostics)
	assert.Equal(t, 0, p.Upcoming[0].Index)
	assert.Equal(t, time.Date(2025, 2, 23, 15, 0, 0, 0, time.UTC), p.Upcoming[1].Instant)
}

func TestPartitionBothCompletedOldestFirst(t *testing.T) {
	now := time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC)
	events := sampleEvents()
	// Reverse the input so ordering comes from the sort, not the list.
	events[0], events[1] = events[1], events[0]

	p := schedule.PartitionEvents(events, now, time.UTC)

	assert.Empty(t, p.Upcoming)
	assert.Equal(t, []string{"Standup", "Review"}, titles(p.Completed))
	assert.Equal(t, 1, p.Completed[0].Index)
}

func TestPartitionBoundaryIsUpcoming(t *testing.T) {
	now := time.Date(2025, 2, 22, 10, 0, 0, 0, time.UTC)
	p := schedule.PartitionEvents(sampleEvents()[:1], now, time.UTC)
	require.Len(t, p.Upcoming, 1)
	assert.Empty(t, p.Completed)
}

func TestPartitionSortsAscendingWithStableTies(t *testing.T) {
	events := []models.Event{
		{Title: "late", Date: "2025-05-02", Time: "09:00"},
		{Title: "tie-a", Date: "2025-05-01", Time: "2:00 PM"},
		{Title: "early", Date: "2025-05-01", Time: "8:15 am"},
		{Title: "tie-b", Date: "2025-05-01", Time: "14:00"},
		{Title: "old", Date: "2025-04-01", Time: "14:00"},
		{Title: "older", Date: "2025-03-01", Time: "14:00"},
	}
	now := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)

	p := schedule.PartitionEvents(events, now, time.UTC)

	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, titles(p.Upcoming))
	assert.Equal(t, []string{"older", "old"}, titles(p.Completed))
	for i := 1; i < len(p.Upcoming); i++ {
		assert.False(t, p.Upcoming[i].Instant.Before(p.Upcoming[i-1].Instant))
	}
}

func TestPartitionIsIdempotent(t *testing.T) {
	events := append(sampleEvents(), models.Event{Title: "broken", Date: "2025-02-22", Time: "noonish"})
	now := time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC)

	first := schedule.PartitionEvents(events, now, time.UTC)
	second := schedule.PartitionEvents(events, now, time.UTC)

	assert.Equal(t, first, second)
}

func TestPartitionMalformedTimeStaysVisible(t *testing.T) {
	events := []models.Event{
		{Title: "broken", Date: "2025-02-22", Time: "25:99"},
		{Title: "Standup", Date: "2025-02-22", Time: "10:00 AM"},
		{Title: "no-date", Date: "", Time: "10:00 AM"},
	}
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	var p schedule.Partition
	assert.NotPanics(t, func() {
		p = schedule.PartitionEvents(events, now, time.UTC)
	})

	assert.Equal(t, []string{"Standup", "broken", "no-date"}, titles(p.Upcoming))
	assert.True(t, p.Upcoming[1].Malformed)
	require.Len(t, p.Diagnostics, 2)
	assert.Equal(t, schedule.DiagnosticMalformedEventTime, p.Diagnostics[0].Code)
	assert.Equal(t, 0, p.Diagnostics[0].Index)
	assert.Equal(t, 2, p.Diagnostics[1].Index)
	assert.True(t, errors.Is(p.Diagnostics[0].Err, schedule.ErrMalformedEventTime))
}

func TestPartitionUsesLocalTimeSemantics(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	events := []models.Event{{Title: "Standup", Date: "2025-02-22", Time: "10:00 AM"}}
	// 10:00 in Kolkata is 04:30 UTC.
	justBefore := time.Date(2025, 2, 22, 4, 29, 0, 0, time.UTC)
	justAfter := time.Date(2025, 2, 22, 4, 31, 0, 0, time.UTC)

	assert.Len(t, schedule.PartitionEvents(events, justBefore, kolkata).Upcoming, 1)
	assert.Len(t, schedule.PartitionEvents(events, justAfter, kolkata).Completed, 1)
}

func TestPartitionEmptyInput(t *testing.T) {
	p := schedule.PartitionEvents(nil, time.Now(), time.UTC)
	assert.NotNil(t, p.Upcoming)
	assert.NotNil(t, p.Completed)
	assert.Empty(t, p.Upcoming)
	assert.Empty(t, p.Completed)
}

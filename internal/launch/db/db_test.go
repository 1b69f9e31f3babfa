package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	launchdb "ms-meetings/internal/launch/db"
	"ms-meetings/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *launchdb.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = bunDB.Close() })

	d := &launchdb.DB{Bun: bunDB}
	require.NoError(t, d.CreateSchema(context.Background()))
	// CreateSchema is safe to run again on startup.
	require.NoError(t, d.CreateSchema(context.Background()))
	return d
}

func record(user, title string, at time.Time) models.LaunchRecord {
	return models.LaunchRecord{
		ID:          uuid.NewString(),
		UserEmail:   user,
		Title:       title,
		MeetingLink: "https://meet.google.com/" + title,
		Source:      models.LaunchSourceManual,
		Status:      models.LaunchStatusLaunched,
		LaunchedAt:  at,
	}
}

func TestRecordAndListLaunches(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 22, 10, 0, 0, 0, time.UTC)

	require.NoError(t, d.RecordLaunch(ctx, record("alice@example.com", "first", base)))
	require.NoError(t, d.RecordLaunch(ctx, record("alice@example.com", "second", base.Add(time.Hour))))
	require.NoError(t, d.RecordLaunch(ctx, record("bob@example.com", "other", base)))

	got, err := d.ListLaunchesByUser(ctx, "alice@example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title)
	assert.Equal(t, "first", got[1].Title)

	got, err = d.ListLaunchesByUser(ctx, "alice@example.com", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Title)
}

func TestListLaunchesEmpty(t *testing.T) {
	d := setupTestDB(t)

	got, err := d.ListLaunchesByUser(context.Background(), "nobody@example.com", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecordFailedLaunchKeepsError(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	rec := record("carol@example.com", "broken", time.Now().UTC())
	rec.Status = models.LaunchStatusFailed
	rec.Error = "backend unavailable"
	require.NoError(t, d.RecordLaunch(ctx, rec))

	got, err := d.ListLaunchesByUser(ctx, "carol@example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.LaunchStatusFailed, got[0].Status)
	assert.Equal(t, "backend unavailable", got[0].Error)
	assert.True(t, got[0].ScheduledFor.IsZero())
}

package launch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-meetings/internal/launch"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJoiner struct {
	mock.Mock
}

func (m *MockJoiner) ManualJoin(ctx context.Context, join models.JoinRequest) (string, error) {
	args := m.Called(ctx, join)
	return args.String(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordLaunch(ctx context.Context, rec models.LaunchRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecorder) ListLaunchesByUser(ctx context.Context, user string, limit int) ([]models.LaunchRecord, error) {
	args := m.Called(ctx, user, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LaunchRecord), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLaunch(ctx context.Context, rec models.LaunchRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

var launchAt = time.Date(2025, 2, 22, 9, 59, 0, 0, time.UTC)

func request() models.LaunchRequest {
	return models.LaunchRequest{
		UserEmail:  "alice@example.com",
		EventIndex: 0,
		Event: models.Event{
			Title: "Standup", Date: "2025-02-22", Time: "10:00 AM",
			MeetingLink: "https://meet.google.com/abc",
		},
		Instant: time.Date(2025, 2, 22, 10, 0, 0, 0, time.UTC),
		Source:  models.LaunchSourceManual,
	}
}

func newService(joiner launch.Joiner, claims launch.Claims, rec launch.Recorder, pub launch.Publisher) *launch.Service {
	s := launch.NewService(joiner, claims, rec, pub, "Dialogon Assistant", logger.Discard())
	s.Clock = func() time.Time { return launchAt }
	return s
}

func TestLaunchJoinsRecordsAndPublishes(t *testing.T) {
	_, client := setupRedis(t)
	joiner := new(MockJoiner)
	recorder := new(MockRecorder)
	publisher := new(MockPublisher)

	joiner.On("ManualJoin", mock.Anything, models.JoinRequest{
		MeetingLink: "https://meet.google.com/abc", UserName: "Dialogon Assistant",
	}).Return("Bot launched", nil).Once()
	recorder.On("RecordLaunch", mock.Anything, mock.MatchedBy(func(r models.LaunchRecord) bool {
		return r.Status == models.LaunchStatusLaunched && r.UserEmail == "alice@example.com"
	})).Return(nil).Once()
	publisher.On("PublishLaunch", mock.Anything, mock.Anything).Return(nil).Once()

	s := newService(joiner, launch.NewRedisClaims(client, 10*time.Minute), recorder, publisher)
	rec, err := s.Launch(context.Background(), request())

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Standup", rec.Title)
	assert.Equal(t, launchAt, rec.LaunchedAt)
	assert.Equal(t, models.LaunchSourceManual, rec.Source)
	joiner.AssertExpectations(t)
	recorder.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestLaunchTwiceIsRejected(t *testing.T) {
	mr, client := setupRedis(t)
	joiner := new(MockJoiner)
	recorder := new(MockRecorder)
	joiner.On("ManualJoin", mock.Anything, mock.Anything).Return("ok", nil).Once()
	recorder.On("RecordLaunch", mock.Anything, mock.Anything).Return(nil)

	s := newService(joiner, launch.NewRedisClaims(client, 10*time.Minute), recorder, nil)
	_, err := s.Launch(context.Background(), request())
	require.NoError(t, err)

	_, err = s.Launch(context.Background(), request())
	assert.ErrorIs(t, err, launch.ErrAlreadyLaunched)
	joiner.AssertNumberOfCalls(t, "ManualJoin", 1)

	key := launch.ClaimKey("alice@example.com", "2025-02-22", "10:00 AM", "https://meet.google.com/abc")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Minute, mr.TTL(key))
}

func TestLaunchFailureReleasesClaim(t *testing.T) {
	mr, client := setupRedis(t)
	joiner := new(MockJoiner)
	recorder := new(MockRecorder)
	boom := errors.New("backend unavailable")

	joiner.On("ManualJoin", mock.Anything, mock.Anything).Return("", boom).Once()
	recorder.On("RecordLaunch", mock.Anything, mock.MatchedBy(func(r models.LaunchRecord) bool {
		return r.Status == models.LaunchStatusFailed && r.Error == "backend unavailable"
	})).Return(nil).Once()

	s := newService(joiner, launch.NewRedisClaims(client, 10*time.Minute), recorder, nil)
	_, err := s.Launch(context.Background(), request())

	assert.ErrorIs(t, err, launch.ErrLaunchFailed)
	assert.ErrorIs(t, err, boom)
	key := launch.ClaimKey("alice@example.com", "2025-02-22", "10:00 AM", "https://meet.google.com/abc")
	assert.False(t, mr.Exists(key))
	recorder.AssertExpectations(t)
}

func TestLaunchRequiresMeetingLink(t *testing.T) {
	joiner := new(MockJoiner)
	s := newService(joiner, launch.NewMemoryClaims(time.Minute), nil, nil)

	req := request()
	req.Event.MeetingLink = "  "
	_, err := s.Launch(context.Background(), req)

	assert.ErrorIs(t, err, launch.ErrMissingMeetingLink)
	joiner.AssertNotCalled(t, "ManualJoin", mock.Anything, mock.Anything)
}

func TestLaunchRecorderFailureIsNotReturned(t *testing.T) {
	joiner := new(MockJoiner)
	recorder := new(MockRecorder)
	publisher := new(MockPublisher)
	joiner.On("ManualJoin", mock.Anything, mock.Anything).Return("ok", nil)
	recorder.On("RecordLaunch", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	publisher.On("PublishLaunch", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	s := newService(joiner, launch.NewMemoryClaims(time.Minute), recorder, publisher)
	rec, err := s.Launch(context.Background(), request())

	require.NoError(t, err)
	assert.Equal(t, models.LaunchStatusLaunched, rec.Status)
}

func TestMemoryClaims(t *testing.T) {
	c := launch.NewMemoryClaims(time.Minute)
	ctx := context.Background()

	ok, err := c.Claim(ctx, "k", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Claim(ctx, "k", "b")
	assert.False(t, ok)

	require.NoError(t, c.Release(ctx, "k", "b"))
	ok, _ = c.Claim(ctx, "k", "b")
	assert.False(t, ok, "release by a non-owner keeps the claim")

	require.NoError(t, c.Release(ctx, "k", "a"))
	ok, _ = c.Claim(ctx, "k", "b")
	assert.True(t, ok)
}

func TestRedisClaimsExpire(t *testing.T) {
	mr, client := setupRedis(t)
	c := launch.NewRedisClaims(client, time.Minute)
	ctx := context.Background()

	ok, err := c.Claim(ctx, "k", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = c.Claim(ctx, "k", "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHistory(t *testing.T) {
	recorder := new(MockRecorder)
	recorder.On("ListLaunchesByUser", mock.Anything, "alice@example.com", 20).
		Return([]models.LaunchRecord{{ID: "1"}}, nil)

	s := newService(new(MockJoiner), launch.NewMemoryClaims(time.Minute), recorder, nil)
	got, err := s.History(context.Background(), "alice@example.com", 20)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	empty, err := newService(new(MockJoiner), launch.NewMemoryClaims(time.Minute), nil, nil).
		History(context.Background(), "alice@example.com", 20)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

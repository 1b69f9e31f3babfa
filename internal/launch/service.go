package launch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"

	"github.com/google/uuid"
)

var (
	ErrMissingMeetingLink = errors.New("meeting link is required")
	ErrAlreadyLaunched    = errors.New("assistant already launched for this meeting")
	ErrLaunchFailed       = errors.New("failed to launch meeting assistant")
)

// Joiner sends the assistant into a meeting.
type Joiner interface {
	ManualJoin(ctx context.Context, join models.JoinRequest) (string, error)
}

// Recorder is the launch log.
type Recorder interface {
	RecordLaunch(ctx context.Context, rec models.LaunchRecord) error
	ListLaunchesByUser(ctx context.Context, user string, limit int) ([]models.LaunchRecord, error)
}

type Publisher interface {
	PublishLaunch(ctx context.Context, rec models.LaunchRecord) error
}

type Service struct {
	Joiner    Joiner
	Claims    Claims
	Log       Recorder
	Publisher Publisher // optional
	Logger    *logger.Logger
	BotName   string
	Clock     func() time.Time
}

func NewService(joiner Joiner, claims Claims, log Recorder, publisher Publisher, botName string, l *logger.Logger) *Service {
	return &Service{
		Joiner:    joiner,
		Claims:    claims,
		Log:       log,
		Publisher: publisher,
		Logger:    l,
		BotName:   botName,
		Clock:     time.Now,
	}
}

// Launch sends the assistant into req's meeting once per occurrence.
func (s *Service) Launch(ctx context.Context, req models.LaunchRequest) (*models.LaunchRecord, error) {
	link := strings.TrimSpace(req.Event.MeetingLink)
	if link == "" {
		return nil, ErrMissingMeetingLink
	}

	id := uuid.NewString()
	key := ClaimKey(req.UserEmail, req.Event.Date, req.Event.Time, link)
	ok, err := s.Claims.Claim(ctx, key, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}
	if !ok {
		s.Logger.LogLaunch(req.UserEmail, link, "already launched, skipping")
		return nil, ErrAlreadyLaunched
	}

	rec := models.LaunchRecord{
		ID:           id,
		UserEmail:    req.UserEmail,
		EventIndex:   req.EventIndex,
		Title:        req.Event.Title,
		MeetingLink:  link,
		ScheduledFor: req.Instant,
		Source:       req.Source,
		Status:       models.LaunchStatusLaunched,
		LaunchedAt:   s.Clock().UTC(),
	}

	msg, joinErr := s.Joiner.ManualJoin(ctx, models.JoinRequest{MeetingLink: link, UserName: s.BotName})
	if joinErr != nil {
		if err := s.Claims.Release(ctx, key, id); err != nil {
			s.Logger.Error("LAUNCH", fmt.Sprintf("release claim %s: %v", key, err))
		}
		rec.Status = models.LaunchStatusFailed
		rec.Error = joinErr.Error()
		s.record(ctx, rec)
		s.Logger.Error("LAUNCH", fmt.Sprintf("join %s for %s: %v", link, req.UserEmail, joinErr))
		return nil, fmt.Errorf("%w: %w", ErrLaunchFailed, joinErr)
	}

	s.Logger.LogLaunch(req.UserEmail, link, fmt.Sprintf("%s (%s)", msg, req.Source))
	s.record(ctx, rec)
	return &rec, nil
}

// record writes rec to the launch log and the launch topic. Failures are
// logged; the join already happened.
func (s *Service) record(ctx context.Context, rec models.LaunchRecord) {
	if s.Log != nil {
		if err := s.Log.RecordLaunch(ctx, rec); err != nil {
			s.Logger.Error("LAUNCH", fmt.Sprintf("record launch %s: %v", rec.ID, err))
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishLaunch(ctx, rec); err != nil {
			s.Logger.Warn("LAUNCH", fmt.Sprintf("publish launch %s: %v", rec.ID, err))
		}
	}
}

func (s *Service) History(ctx context.Context, user string, limit int) ([]models.LaunchRecord, error) {
	if s.Log == nil {
		return []models.LaunchRecord{}, nil
	}
	return s.Log.ListLaunchesByUser(ctx, user, limit)
}

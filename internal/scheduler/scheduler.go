package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ms-meetings/internal/launch"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"
	"ms-meetings/internal/schedule"

	"github.com/robfig/cron/v3"
)

type EventLister interface {
	List(ctx context.Context, user string) ([]models.Event, error)
}

type Launcher interface {
	Launch(ctx context.Context, req models.LaunchRequest) (*models.LaunchRecord, error)
}

type Options struct {
	Location *time.Location
	Interval time.Duration
	// Window is how far ahead of its start a meeting is launched.
	Window time.Duration
	Users  []string
	Clock  func() time.Time
}

// Scheduler periodically sends the assistant into meetings that are about
// to start for every watched user.
type Scheduler struct {
	cron     *cron.Cron
	store    EventLister
	launcher Launcher
	opts     Options
	logger   *logger.Logger

	mu    sync.Mutex
	users map[string]struct{}
}

func New(store EventLister, launcher Launcher, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Window <= 0 {
		opts.Window = 2 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(opts.Location)),
		store:    store,
		launcher: launcher,
		opts:     opts,
		logger:   log,
		users:    make(map[string]struct{}),
	}
	for _, u := range opts.Users {
		s.Watch(u)
	}
	return s
}

// Start runs the periodic check until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.opts.Interval)
	if _, err := s.cron.AddFunc(spec, func() { s.CheckUpcoming(ctx) }); err != nil {
		return fmt.Errorf("add upcoming check: %w", err)
	}

	s.cron.Start()
	s.logger.Info("SCHEDULER", fmt.Sprintf("Scheduler started (TZ: %s, every %s, window %s)",
		s.opts.Location, s.opts.Interval, s.opts.Window))

	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("SCHEDULER", "Scheduler stopped")
}

// Watch adds user to the set checked on every tick.
func (s *Scheduler) Watch(user string) {
	user = strings.TrimSpace(user)
	if user == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user]; !ok {
		s.users[user] = struct{}{}
		s.logger.Debug("SCHEDULER", fmt.Sprintf("watching %s", user))
	}
}

func (s *Scheduler) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.users))
	for u := range s.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// CheckUpcoming checks every watched user and returns how many launches
// happened.
func (s *Scheduler) CheckUpcoming(ctx context.Context) int {
	launched := 0
	for _, user := range s.Users() {
		n, err := s.CheckUser(ctx, user)
		if err != nil {
			s.logger.Error("SCHEDULER", fmt.Sprintf("check %s: %v", user, err))
		}
		launched += n
	}
	return launched
}

// CheckUser launches the assistant into each of user's meetings starting
// within the window.
func (s *Scheduler) CheckUser(ctx context.Context, user string) (int, error) {
	events, err := s.store.List(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", schedule.ErrLoadFailed, err)
	}

	now := s.opts.Clock()
	launched := 0
	for i, e := range events {
		if !launchable(e) {
			continue
		}

		instant, err := schedule.EventInstant(e, s.opts.Location)
		if err != nil {
			s.logger.Warn("SCHEDULER", fmt.Sprintf("skip %s index %d: %v", user, i, err))
			continue
		}
		if diff := instant.Sub(now); diff < 0 || diff > s.opts.Window {
			continue
		}

		_, err = s.launcher.Launch(ctx, models.LaunchRequest{
			UserEmail:  user,
			EventIndex: i,
			Event:      e,
			Instant:    instant,
			Source:     models.LaunchSourceScheduler,
		})
		switch {
		case err == nil:
			launched++
		case errors.Is(err, launch.ErrAlreadyLaunched):
			s.logger.Debug("SCHEDULER", fmt.Sprintf("%q for %s already launched", e.Title, user))
		default:
			s.logger.Error("SCHEDULER", fmt.Sprintf("launch %q for %s: %v", e.Title, user, err))
		}
	}
	return launched, nil
}

// HandleChange reacts to a change of a user's list published by the
// dashboard: the user is watched from now on and checked right away.
func (s *Scheduler) HandleChange(ctx context.Context, change models.EventChange) {
	s.Watch(change.UserEmail)
	if _, err := s.CheckUser(ctx, change.UserEmail); err != nil {
		s.logger.Error("SCHEDULER", fmt.Sprintf("check %s after %s: %v", change.UserEmail, change.Action, err))
	}
}

func launchable(e models.Event) bool {
	if strings.TrimSpace(e.Date) == "" || strings.TrimSpace(e.Time) == "" || strings.TrimSpace(e.MeetingLink) == "" {
		return false
	}
	return e.Status != models.EventStatusJoined && e.Status != models.EventStatusCompleted
}

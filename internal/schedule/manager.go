package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"
)

// EventStoreClient is the remote owner of a user's event list. Update and
// delete address events by their position in the list the backend returns.
type EventStoreClient interface {
	List(ctx context.Context, user string) ([]models.Event, error)
	Create(ctx context.Context, payload models.EventPayload) ([]models.Event, error)
	Update(ctx context.Context, user string, index int, payload models.EventPayload) ([]models.Event, error)
	Delete(ctx context.Context, user string, index int) error
}

// Manager holds the local view of one user's events and mirrors the
// store's list after every successful call. It does not serialize
// operations; callers keep one outstanding mutation per user.
type Manager struct {
	store  EventStoreClient
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger

	mu     sync.RWMutex
	user   string
	events []models.Event
	loaded bool
}

type Option func(*Manager)

func WithLocation(loc *time.Location) Option {
	return func(m *Manager) { m.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(store EventStoreClient, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		loc:   time.Local,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Location() *time.Location {
	return m.loc
}

// Events returns a copy of the local list.
func (m *Manager) Events() []models.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Event(nil), m.events...)
}

// User is the identity of the last successfully loaded list.
func (m *Manager) User() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Manager) replace(user string, events []models.Event) []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	m.events = append([]models.Event(nil), events...)
	m.loaded = true
	return append([]models.Event(nil), m.events...)
}

func (m *Manager) LoadEvents(ctx context.Context, user string) ([]models.Event, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrMissingIdentity
	}

	events, err := m.store.List(ctx, user)
	if err != nil {
		m.logger.Error("SCHEDULE", fmt.Sprintf("load events for %s: %v", user, err))
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	m.logger.Debug("SCHEDULE", fmt.Sprintf("loaded %d events for %s", len(events), user))
	return m.replace(user, events), nil
}

func (m *Manager) CreateEvent(ctx context.Context, draft models.EventDraft) ([]models.Event, error) {
	payload, err := m.validate(draft)
	if err != nil {
		return nil, err
	}

	events, err := m.store.Create(ctx, payload)
	if err != nil {
		m.logger.Error("SCHEDULE", fmt.Sprintf("create event for %s: %v", payload.UserEmail, err))
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	m.logger.LogEvent("create", payload.UserEmail, fmt.Sprintf("%q on %s %s", payload.Title, payload.Date, payload.Time))
	return m.replace(payload.UserEmail, events), nil
}

func (m *Manager) UpdateEvent(ctx context.Context, user string, index int, draft models.EventDraft) ([]models.Event, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrMissingIdentity
	}
	if err := m.checkIndex(user, index); err != nil {
		return nil, err
	}

	draft.UserEmail = user
	payload, err := m.validate(draft)
	if err != nil {
		return nil, err
	}

	events, err := m.store.Update(ctx, user, index, payload)
	if err != nil {
		m.logger.Error("SCHEDULE", fmt.Sprintf("update event %d for %s: %v", index, user, err))
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	m.logger.LogEvent("update", user, fmt.Sprintf("index %d now %q on %s %s", index, payload.Title, payload.Date, payload.Time))
	return m.replace(user, events), nil
}

// DeleteEvent removes the event at index and then reloads the whole list.
func (m *Manager) DeleteEvent(ctx context.Context, user string, index int) ([]models.Event, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrMissingIdentity
	}
	if err := m.checkIndex(user, index); err != nil {
		return nil, err
	}

	if err := m.store.Delete(ctx, user, index); err != nil {
		m.logger.Error("SCHEDULE", fmt.Sprintf("delete event %d for %s: %v", index, user, err))
		return nil, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	m.logger.LogEvent("delete", user, fmt.Sprintf("index %d", index))
	return m.LoadEvents(ctx, user)
}

// Partition classifies the local list at now and logs every diagnostic.
func (m *Manager) Partition(now time.Time) Partition {
	m.mu.RLock()
	events := m.events
	user := m.user
	m.mu.RUnlock()

	p := PartitionEvents(events, now, m.loc)
	for _, d := range p.Diagnostics {
		m.logger.Warn("SCHEDULE", fmt.Sprintf("%s for %s at index %d: %s", d.Code, user, d.Index, d.Message()))
	}
	return p
}

// checkIndex rejects positions that cannot exist in the list last loaded
// for user. Lists of other users are not known here and pass through.
func (m *Manager) checkIndex(user string, index int) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrStaleIndex, index)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loaded && m.user == user && index >= len(m.events) {
		return fmt.Errorf("%w: %d of %d", ErrStaleIndex, index, len(m.events))
	}
	return nil
}

// validate runs the draft checks in order and builds the wire payload.
func (m *Manager) validate(d models.EventDraft) (models.EventPayload, error) {
	title := strings.TrimSpace(d.Title)
	link := strings.TrimSpace(d.MeetingLink)
	user := strings.TrimSpace(d.UserEmail)
	if title == "" || link == "" || user == "" {
		return models.EventPayload{}, ErrIncompleteDraft
	}

	instant, err := draftInstant(d, m.loc)
	if err != nil {
		return models.EventPayload{}, err
	}
	if instant.Before(m.now()) {
		return models.EventPayload{}, fmt.Errorf("%w: %s", ErrPastEvent, instant.Format(time.RFC3339))
	}

	date := normalizeDate(d.Date, m.loc)
	month, err := normalizedMonth(date)
	if err != nil || month != d.Date.Month {
		return models.EventPayload{}, fmt.Errorf("%w: %s", ErrInvalidDateForMonth, d.Date)
	}

	return models.EventPayload{
		Title:       title,
		Date:        date,
		Time:        cleanTime(d.Time),
		MeetingLink: link,
		UserEmail:   user,
	}, nil
}

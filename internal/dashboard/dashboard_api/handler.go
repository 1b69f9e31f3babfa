package dashboard_api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-meetings/internal/auth"
	"ms-meetings/internal/calendar"
	"ms-meetings/internal/launch"
	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"
	"ms-meetings/internal/qr"
	"ms-meetings/internal/schedule"
	"ms-meetings/internal/utils"

	"github.com/go-chi/chi/v5"
)

const launchHistoryLimit = 50

// Launcher sends the assistant into meetings and keeps their history.
type Launcher interface {
	Launch(ctx context.Context, req models.LaunchRequest) (*models.LaunchRecord, error)
	History(ctx context.Context, user string, limit int) ([]models.LaunchRecord, error)
}

// ChangePublisher announces changes to a user's list.
type ChangePublisher interface {
	PublishEventChanged(ctx context.Context, change models.EventChange) error
}

type Handler struct {
	Registry  *Registry
	Verifier  auth.Verifier
	Sessions  *auth.Sessions
	Launcher  Launcher
	QR        *qr.QRGenerator
	Publisher ChangePublisher // optional
	Logger    *logger.Logger
	Clock     func() time.Time
}

// EventRequest is the create and edit form body.
type EventRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	MeetingLink string `json:"meeting_link"`
}

func (h *Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// RegisterRoutes registers the dashboard routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.OpenSession)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.Sessions))

			r.Delete("/session", h.CloseSession)
			r.Get("/launches", h.ListLaunches)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)
				r.Get("/calendar.ics", h.ExportCalendar)
				r.Put("/{index}", h.UpdateEvent)
				r.Delete("/{index}", h.DeleteEvent)
				r.Post("/{index}/launch", h.LaunchAssistant)
				r.Get("/{index}/qr", h.MeetingQR)
			})
		})
	})
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, message, code string, err error) {
	sendJSONResponse(w, status, utils.ErrorResponse(message, code, err))
}

// classify maps manager, launch and registry errors to an HTTP status and
// an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, schedule.ErrStaleIndex):
		return http.StatusConflict, "stale_index"
	case errors.Is(err, ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, launch.ErrAlreadyLaunched):
		return http.StatusConflict, "already_launched"
	case errors.Is(err, schedule.ErrPastEvent):
		return http.StatusUnprocessableEntity, "past_event"
	case errors.Is(err, schedule.ErrInvalidDateForMonth):
		return http.StatusUnprocessableEntity, "invalid_date_for_month"
	case errors.Is(err, schedule.ErrMalformedEventTime):
		return http.StatusUnprocessableEntity, "malformed_event_time"
	case schedule.IsValidation(err),
		errors.Is(err, launch.ErrMissingMeetingLink),
		errors.Is(err, qr.ErrInvalidLink):
		return http.StatusUnprocessableEntity, "invalid_event"
	case schedule.IsTransport(err), errors.Is(err, launch.ErrLaunchFailed):
		return http.StatusBadGateway, "event_store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	sendError(w, status, op+" failed", code, err)
}

func identity(r *http.Request) models.Identity {
	id, _ := auth.UserIdentity(r.Context())
	return id
}

func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q", schedule.ErrStaleIndex, chi.URLParam(r, "index"))
	}
	return i, nil
}

func (h *Handler) publishChange(ctx context.Context, user, action string, index int) {
	if h.Publisher == nil {
		return
	}
	change := models.EventChange{UserEmail: user, Action: action, Index: index, At: h.now().UTC()}
	if err := h.Publisher.PublishEventChanged(ctx, change); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("publish %s change for %s: %v", action, user, err))
	}
}

// OpenSession exchanges a login provider ID token for a dashboard session.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	raw, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		sendError(w, http.StatusUnauthorized, "Login required", "unauthenticated", err)
		return
	}

	id, err := h.Verifier.Verify(r.Context(), raw)
	if err != nil {
		h.Logger.LogSecurity("login_rejected", err.Error())
		sendError(w, http.StatusUnauthorized, "Invalid login token", "unauthenticated", err)
		return
	}

	token, err := h.Sessions.Open(r.Context(), id)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("OpenSession: %v", err))
		sendError(w, http.StatusInternalServerError, "Could not open session", "internal", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("OpenSession: session opened for %s", id.Email))
	sendJSONResponse(w, http.StatusCreated, utils.SuccessResponse("Session opened", models.SessionResponse{Token: token, User: id}))
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.ExtractTokenFromRequest(r)
	if err := h.Sessions.Close(r.Context(), token); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CloseSession: %v", err))
		sendError(w, http.StatusInternalServerError, "Could not close session", "internal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents loads the user's list and returns it split into upcoming and
// completed.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	m := h.Registry.Manager(user)
	if _, err := m.LoadEvents(r.Context(), user); err != nil {
		h.fail(w, "ListEvents", err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Events loaded", m.Partition(h.now())))
}

func (h *Handler) decodeDraft(r *http.Request, user string) (models.EventDraft, error) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.EventDraft{}, fmt.Errorf("invalid request body: %w", err)
	}
	date, err := models.ParseCivilDate(req.Date)
	if err != nil {
		return models.EventDraft{}, fmt.Errorf("%w: %w", schedule.ErrIncompleteDraft, err)
	}
	return models.EventDraft{
		Title:       req.Title,
		Date:        date,
		Time:        req.Time,
		MeetingLink: req.MeetingLink,
		UserEmail:   user,
	}, nil
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	draft, err := h.decodeDraft(r, user)
	if err != nil {
		h.badRequest(w, "CreateEvent", err)
		return
	}

	m, release, err := h.Registry.Acquire(user)
	if err != nil {
		h.fail(w, "CreateEvent", err)
		return
	}
	defer release()

	events, err := m.CreateEvent(r.Context(), draft)
	if err != nil {
		h.fail(w, "CreateEvent", err)
		return
	}

	h.publishChange(r.Context(), user, "created", len(events)-1)
	sendJSONResponse(w, http.StatusCreated, utils.SuccessResponse("Event created", m.Partition(h.now())))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, "UpdateEvent", err)
		return
	}
	draft, err := h.decodeDraft(r, user)
	if err != nil {
		h.badRequest(w, "UpdateEvent", err)
		return
	}

	m, release, err := h.Registry.Acquire(user)
	if err != nil {
		h.fail(w, "UpdateEvent", err)
		return
	}
	defer release()

	if _, err := m.UpdateEvent(r.Context(), user, index, draft); err != nil {
		h.fail(w, "UpdateEvent", err)
		return
	}

	h.publishChange(r.Context(), user, "updated", index)
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Event updated", m.Partition(h.now())))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, "DeleteEvent", err)
		return
	}

	m, release, err := h.Registry.Acquire(user)
	if err != nil {
		h.fail(w, "DeleteEvent", err)
		return
	}
	defer release()

	if _, err := m.DeleteEvent(r.Context(), user, index); err != nil {
		h.fail(w, "DeleteEvent", err)
		return
	}

	h.publishChange(r.Context(), user, "deleted", index)
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Event deleted", m.Partition(h.now())))
}

// badRequest answers 422 for drafts the manager would reject and 400 for
// bodies that could not be read at all.
func (h *Handler) badRequest(w http.ResponseWriter, op string, err error) {
	if schedule.IsValidation(err) {
		h.fail(w, op, err)
		return
	}
	h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	sendError(w, http.StatusBadRequest, "Invalid request body", "bad_request", err)
}

// eventAt returns the event at index in the list last loaded for user,
// loading it first when this manager holds no list for user.
func (h *Handler) eventAt(ctx context.Context, m *schedule.Manager, user string, index int) (models.Event, error) {
	events := m.Events()
	if m.User() != user {
		var err error
		if events, err = m.LoadEvents(ctx, user); err != nil {
			return models.Event{}, err
		}
	}
	if index >= len(events) {
		return models.Event{}, fmt.Errorf("%w: %d of %d", schedule.ErrStaleIndex, index, len(events))
	}
	return events[index], nil
}

func (h *Handler) LaunchAssistant(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, "LaunchAssistant", err)
		return
	}

	m, release, err := h.Registry.Acquire(user)
	if err != nil {
		h.fail(w, "LaunchAssistant", err)
		return
	}
	defer release()

	event, err := h.eventAt(r.Context(), m, user, index)
	if err != nil {
		h.fail(w, "LaunchAssistant", err)
		return
	}

	// A malformed time still allows a manual launch; only the record's
	// scheduled time stays empty.
	instant, _ := schedule.EventInstant(event, m.Location())
	rec, err := h.Launcher.Launch(r.Context(), models.LaunchRequest{
		UserEmail:  user,
		EventIndex: index,
		Event:      event,
		Instant:    instant,
		Source:     models.LaunchSourceManual,
	})
	if err != nil {
		h.fail(w, "LaunchAssistant", err)
		return
	}
	sendJSONResponse(w, http.StatusAccepted, utils.SuccessResponse("Assistant launched", rec))
}

func (h *Handler) MeetingQR(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, "MeetingQR", err)
		return
	}

	m := h.Registry.Manager(user)
	event, err := h.eventAt(r.Context(), m, user, index)
	if err != nil {
		h.fail(w, "MeetingQR", err)
		return
	}

	png, err := h.QR.MeetingLinkPNG(event.MeetingLink)
	if err != nil {
		h.fail(w, "MeetingQR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	m := h.Registry.Manager(user)
	events, err := m.LoadEvents(r.Context(), user)
	if err != nil {
		h.fail(w, "ExportCalendar", err)
		return
	}

	var buf bytes.Buffer
	skipped, err := calendar.Write(&buf, user, events, m.Location(), h.now())
	if errors.Is(err, calendar.ErrEmptyCalendar) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.fail(w, "ExportCalendar", err)
		return
	}
	if len(skipped) > 0 {
		h.Logger.Warn("API", fmt.Sprintf("ExportCalendar: %s has unreadable events at %v", user, skipped))
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meetings.ics"`)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ListLaunches(w http.ResponseWriter, r *http.Request) {
	user := identity(r).Email
	records, err := h.Launcher.History(r.Context(), user, launchHistoryLimit)
	if err != nil {
		h.fail(w, "ListLaunches", err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Launch history", records))
}

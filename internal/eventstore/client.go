package eventstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ms-meetings/internal/logger"
	"ms-meetings/internal/models"
)

// APIError is returned for any backend response with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("event store error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the backend that owns users' event lists.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for baseURL (for example
// "http://localhost:8000/api"). An empty token sends no Authorization header.
func NewClient(baseURL, token string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     log,
	}
}

func eventsPath(user string) string {
	return "/auth/events/" + url.PathEscape(user) + "/"
}

func eventPath(user string, index int) string {
	return fmt.Sprintf("/auth/events/%s/%d/", url.PathEscape(user), index)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("EVENTSTORE", fmt.Sprintf("close response body: %v", cerr))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("EVENTSTORE", fmt.Sprintf("%s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start)))

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return respBody, nil
}

// errorMessage prefers the backend's {"message"} or {"error"} field and
// falls back to the raw body.
func errorMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &msg); err == nil {
		if msg.Message != "" {
			return msg.Message
		}
		if msg.Error != "" {
			return msg.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// decodeEvents reads an {"events": [...]} body. A single record that fails
// validation rejects the whole list so positions stay meaningful.
func decodeEvents(body []byte) ([]models.Event, error) {
	var resp models.EventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	if resp.Events == nil {
		return []models.Event{}, nil
	}
	for i, e := range resp.Events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return resp.Events, nil
}

// List returns the user's events in backend order.
func (c *Client) List(ctx context.Context, user string) ([]models.Event, error) {
	body, err := c.doRequest(ctx, http.MethodGet, eventsPath(user), nil)
	if err != nil {
		return nil, err
	}
	return decodeEvents(body)
}

// Create stores a new event and returns the owner's full list.
func (c *Client) Create(ctx context.Context, payload models.EventPayload) ([]models.Event, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/events/create/", payload)
	if err != nil {
		return nil, err
	}
	return decodeEvents(body)
}

// Update replaces the event at index and returns the full list.
func (c *Client) Update(ctx context.Context, user string, index int, payload models.EventPayload) ([]models.Event, error) {
	body, err := c.doRequest(ctx, http.MethodPut, eventPath(user, index), payload)
	if err != nil {
		return nil, err
	}
	return decodeEvents(body)
}

// Delete removes the event at index. The backend only acknowledges.
func (c *Client) Delete(ctx context.Context, user string, index int) error {
	_, err := c.doRequest(ctx, http.MethodDelete, eventPath(user, index), nil)
	return err
}

// ManualJoin asks the backend to send the meeting assistant into a meeting.
func (c *Client) ManualJoin(ctx context.Context, join models.JoinRequest) (string, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/auth/manual-join/", join)
	if err != nil {
		return "", err
	}
	var ack models.MessageResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &ack); err != nil {
			return "", fmt.Errorf("unmarshal join response: %w", err)
		}
	}
	return ack.Message, nil
}

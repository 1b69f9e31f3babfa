package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-meetings/internal/models"
	"ms-meetings/internal/session"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no such session")

const sessionPrefix = "session:"

// Sessions maps opaque dashboard tokens to identities.
type Sessions struct {
	Store session.Store
	TTL   time.Duration
}

func NewSessions(store session.Store, ttl time.Duration) *Sessions {
	return &Sessions{Store: store, TTL: ttl}
}

// Open stores id under a fresh token and returns the token.
func (s *Sessions) Open(ctx context.Context, id models.Identity) (string, error) {
	if strings.TrimSpace(id.Email) == "" {
		return "", errors.New("identity has no email")
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("marshal identity: %w", err)
	}

	token := uuid.NewString()
	if err := s.Store.Set(ctx, sessionPrefix+token, string(raw), s.TTL); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *Sessions) Resolve(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrNoSession
	}
	raw, err := s.Store.Get(ctx, sessionPrefix+token)
	if errors.Is(err, session.ErrNotFound) {
		return models.Identity{}, ErrNoSession
	}
	if err != nil {
		return models.Identity{}, err
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return models.Identity{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return id, nil
}

// Close ends the session. Closing an unknown token is not an error.
func (s *Sessions) Close(ctx context.Context, token string) error {
	return s.Store.Remove(ctx, sessionPrefix+token)
}

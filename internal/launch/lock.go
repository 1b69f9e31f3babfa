package launch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const claimPrefix = "assistant_launch:"

// ClaimKey identifies one occurrence of one meeting for one user.
func ClaimKey(user, date, timeOfDay, link string) string {
	return claimPrefix + strings.Join([]string{user, date, timeOfDay, link}, ":")
}

// Claims marks meetings the assistant was already sent into, so the
// dashboard button and the scheduler never launch it twice.
type Claims interface {
	Claim(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// RedisClaims keeps claims as expiring Redis keys whose value is the owner.
type RedisClaims struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisClaims(client *redis.Client, ttl time.Duration) *RedisClaims {
	return &RedisClaims{Client: client, TTL: ttl}
}

func (c *RedisClaims) Claim(ctx context.Context, key, owner string) (bool, error) {
	ok, err := c.Client.SetNX(ctx, key, owner, c.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the claim only if owner still holds it.
func (c *RedisClaims) Release(ctx context.Context, key, owner string) error {
	val, err := c.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err := c.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

type memoryClaim struct {
	owner     string
	expiresAt time.Time
}

// MemoryClaims is the single-process stand-in used when Redis is disabled.
type MemoryClaims struct {
	mu     sync.Mutex
	TTL    time.Duration
	claims map[string]memoryClaim
	now    func() time.Time
}

func NewMemoryClaims(ttl time.Duration) *MemoryClaims {
	return &MemoryClaims{TTL: ttl, claims: make(map[string]memoryClaim), now: time.Now}
}

func (c *MemoryClaims) Claim(_ context.Context, key, owner string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if held, ok := c.claims[key]; ok && now.Before(held.expiresAt) {
		return false, nil
	}
	c.claims[key] = memoryClaim{owner: owner, expiresAt: now.Add(c.TTL)}
	return true, nil
}

func (c *MemoryClaims) Release(_ context.Context, key, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if held, ok := c.claims[key]; ok && held.owner == owner {
		delete(c.claims, key)
	}
	return nil
}

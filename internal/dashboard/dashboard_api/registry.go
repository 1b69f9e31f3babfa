package dashboard_api

import (
	"errors"
	"sync"

	"ms-meetings/internal/schedule"
)

var ErrBusy = errors.New("another change to this event list is in progress")

// DefaultRegistrySize bounds how many users keep a manager in memory.
const DefaultRegistrySize = 1024

type registryEntry struct {
	manager  *schedule.Manager
	busy     bool
	lastUsed uint64
}

// Registry holds one Manager per user. Reads share the manager; changes
// take the user's busy flag so only one runs at a time.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	tick    uint64
	limit   int
	store   schedule.EventStoreClient
	options []schedule.Option
}

func NewRegistry(store schedule.EventStoreClient, opts ...schedule.Option) *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		limit:   DefaultRegistrySize,
		store:   store,
		options: opts,
	}
}

// WithLimit changes the number of managers kept before idle ones are evicted.
func (r *Registry) WithLimit(n int) *Registry {
	if n > 0 {
		r.limit = n
	}
	return r
}

// Len reports how many managers are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// entry must be called with mu held.
func (r *Registry) entry(user string) *registryEntry {
	r.tick++
	e, ok := r.entries[user]
	if !ok {
		if len(r.entries) >= r.limit {
			r.evictIdle()
		}
		e = &registryEntry{manager: schedule.NewManager(r.store, r.options...)}
		r.entries[user] = e
	}
	e.lastUsed = r.tick
	return e
}

// evictIdle drops the least recently used manager that is not busy. When
// every manager is busy the registry grows past its limit until one frees up.
func (r *Registry) evictIdle() {
	var victim string
	var oldest uint64
	for user, e := range r.entries {
		if e.busy {
			continue
		}
		if victim == "" || e.lastUsed < oldest {
			victim, oldest = user, e.lastUsed
		}
	}
	if victim != "" {
		delete(r.entries, victim)
	}
}

// Manager returns the user's manager for reads. It never reports ErrBusy.
func (r *Registry) Manager(user string) *schedule.Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entry(user).manager
}

// Acquire returns the user's manager and a release func, or ErrBusy while
// another change holds it.
func (r *Registry) Acquire(user string) (*schedule.Manager, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(user)
	if e.busy {
		return nil, nil, ErrBusy
	}
	e.busy = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			e.busy = false
			r.mu.Unlock()
		})
	}
	return e.manager, release, nil
}

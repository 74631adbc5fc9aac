package cache

import (
	"context"
	"sync"
	"time"

	"gatekeeper-backend/internal/domain"
)

// OpenApplications caches each guild's open review queue.
//
// Get reports the guild's current version alongside the cached list. A fill
// must pass that version back to Set; invalidation bumps the version, so a
// fill computed before a mutation can never be served after it.
type OpenApplications interface {
	Get(ctx context.Context, guildID string) ([]domain.Application, uint64, bool, error)
	Set(ctx context.Context, guildID string, version uint64, apps []domain.Application) error
	Invalidate(ctx context.Context, guildID string) error
}

type memoryEntry struct {
	apps    []domain.Application
	version uint64
	expires time.Time
}

// Memory is a process-local OpenApplications.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	entries  map[string]memoryEntry
	versions map[string]uint64
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]memoryEntry),
		versions: make(map[string]uint64),
	}
}

func (m *Memory) Get(_ context.Context, guildID string) ([]domain.Application, uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	version := m.versions[guildID]
	e, ok := m.entries[guildID]
	if !ok || e.version != version || !m.now().Before(e.expires) {
		return nil, version, false, nil
	}
	return cloneApplications(e.apps), version, true, nil
}

func (m *Memory) Set(_ context.Context, guildID string, version uint64, apps []domain.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.versions[guildID] != version {
		return nil
	}
	m.entries[guildID] = memoryEntry{apps: cloneApplications(apps), version: version, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.versions[guildID]++
	delete(m.entries, guildID)
	return nil
}

func cloneApplications(apps []domain.Application) []domain.Application {
	if apps == nil {
		return nil
	}
	out := make([]domain.Application, len(apps))
	for i := range apps {
		out[i] = apps[i].Clone()
	}
	return out
}

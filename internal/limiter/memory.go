package limiter

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	fails        int
	lastFail     time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	cfg     Config
	now     func() time.Time
	entries map[string]*memEntry
}

// NewMemory constructs an in-process limiter. Zero config fields take DefaultConfig values.
func NewMemory(cfg Config) *Memory {
	return &Memory{cfg: cfg.withDefaults(), now: time.Now, entries: map[string]*memEntry{}}
}

func memKey(login string, ipHash []byte) string {
	return NormalizeLogin(login) + "|" + string(ipHash)
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (m *Memory) Allow(_ context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[memKey(login, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets the pair.
func (m *Memory) Success(_ context.Context, login string, ipHash []byte) error {
	m.mu.Lock()
	delete(m.entries, memKey(login, ipHash))
	m.mu.Unlock()
	return nil
}

// Failure records a failed attempt and blocks once MaxFails land within Window.
func (m *Memory) Failure(_ context.Context, login string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := memKey(login, ipHash)
	e, ok := m.entries[k]
	if !ok || now.Sub(e.lastFail) > m.cfg.Window {
		e = &memEntry{}
		m.entries[k] = e
	}
	e.fails++
	e.lastFail = now
	if e.fails < m.cfg.MaxFails {
		return false, 0, nil
	}
	e.fails = 0
	e.blockedUntil = now.Add(m.cfg.BlockFor)
	return true, m.cfg.BlockFor, nil
}

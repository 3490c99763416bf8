package filelock

import (
	"time"

	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
)

// Owner identifies the session acting on a lock.
type Owner struct {
	Name      string // Friendly name shown to other sessions
	SessionID string // Stable session identifier, may be empty
}

// IsZero reports whether o identifies nobody.
func (o Owner) IsZero() bool {
	return o.Name == "" && o.SessionID == ""
}

// Lock is a persisted lock record.
type Lock struct {
	Pattern    string    `json:"pattern" yaml:"pattern"`
	Owner      string    `json:"owner" yaml:"owner"`
	SessionID  string    `json:"session_id" yaml:"session_id"`
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`
	TTLSecs    int64     `json:"ttl_secs" yaml:"ttl_secs"`
}

// TTL returns the lock lifetime.
func (l Lock) TTL() time.Duration {
	return time.Duration(l.TTLSecs) * time.Second
}

// ExpiresAt returns the instant after which the lock is expired.
func (l Lock) ExpiresAt() time.Time {
	return l.AcquiredAt.Add(l.TTL())
}

// IsExpired reports whether the lock has expired at now.
func (l Lock) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt())
}

// Remaining returns the time left before expiry at now, never negative.
func (l Lock) Remaining(now time.Time) time.Duration {
	if d := l.ExpiresAt().Sub(now); d > 0 {
		return d
	}
	return 0
}

// HeldBy reports whether o owns the lock. Session ids decide when both
// sides have one; otherwise the friendly names are compared.
func (l Lock) HeldBy(o Owner) bool {
	if l.SessionID != "" && o.SessionID != "" {
		return l.SessionID == o.SessionID
	}
	return o.Name != "" && l.Owner == o.Name
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus publishes acquire, release and reclaim events to bus.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithLogger sets the logger for lock diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.OrNop(logger).WithComponent("filelock")
	}
}

// WithClock replaces the time source used for acquisition and expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

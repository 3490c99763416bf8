package mailbox

import (
	"time"

	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
)

// Option configures a Store.
type Option func(*Store)

// WithBus attaches an event bus to the Store. When set, a
// MessageAppendedEvent is published after every successful Append.
func WithBus(bus *event.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithLogger sets the logger used for append and watch diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(logger).WithComponent("mailbox")
	}
}

// WithClock replaces the time source used to key new messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithPollInterval sets how often Watch rescans the directory in addition
// to reacting to filesystem notifications. Zero or negative values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

package coordination

import (
	"time"

	"github.com/Iron-Ham/agent-chat/internal/config"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
	"github.com/Iron-Ham/agent-chat/internal/namer"
)

// hubConfig holds optional configuration for a Hub.
type hubConfig struct {
	cfg    *config.Config
	bus    *event.Bus
	logger *logging.Logger
	now    func() time.Time
	namer  *namer.Namer
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithConfig uses cfg instead of loading config.toml from the layout.
func WithConfig(cfg *config.Config) Option {
	return func(c *hubConfig) { c.cfg = cfg }
}

// WithBus shares bus with the stores. If nil, the Hub creates its own.
func WithBus(bus *event.Bus) Option {
	return func(c *hubConfig) { c.bus = bus }
}

// WithLogger sets the logger handed to every store.
func WithLogger(logger *logging.Logger) Option {
	return func(c *hubConfig) { c.logger = logger }
}

// WithClock replaces the time source of the log, lock and focus stores.
func WithClock(now func() time.Time) Option {
	return func(c *hubConfig) { c.now = now }
}

// WithNamer sets the friendly-name generator used for registration.
func WithNamer(n *namer.Namer) Option {
	return func(c *hubConfig) { c.namer = n }
}

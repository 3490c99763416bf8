package coordination

import (
	"sync"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/config"
	"github.com/Iron-Ham/agent-chat/internal/cursor"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/focus"
	"github.com/Iron-Ham/agent-chat/internal/logging"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/session"
)

// tempGrace is the age after which a temp file is treated as orphaned
// residue of an interrupted write.
const tempGrace = time.Minute

// Hub owns the stores of one coordination directory. It keeps no state of
// its own beyond the store handles, so a Hub per process invocation is the
// expected usage.
type Hub struct {
	layout Layout
	cfg    *config.Config
	bus    *event.Bus
	logger *logging.Logger

	log      *mailbox.Store
	locks    *filelock.Manager
	cursors  *cursor.Tracker
	sessions *session.Registry
	focus    *focus.Board

	mu      sync.Mutex
	auditID string
}

// Open builds a Hub over layout. Unless WithConfig is given, config.toml is
// loaded from the layout; a missing file yields the defaults.
func Open(layout Layout, opts ...Option) (*Hub, error) {
	hc := &hubConfig{}
	for _, opt := range opts {
		opt(hc)
	}

	cfg := hc.cfg
	if cfg == nil {
		loaded, err := config.Load(layout.ConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := logging.OrNop(hc.logger)
	bus := hc.bus
	if bus == nil {
		bus = event.NewBus(logger)
	}

	mbOpts := []mailbox.Option{mailbox.WithBus(bus), mailbox.WithLogger(logger)}
	lockOpts := []filelock.Option{filelock.WithBus(bus), filelock.WithLogger(logger)}
	focusOpts := []focus.Option{focus.WithBus(bus), focus.WithLogger(logger)}
	if hc.now != nil {
		mbOpts = append(mbOpts, mailbox.WithClock(hc.now))
		lockOpts = append(lockOpts, filelock.WithClock(hc.now))
		focusOpts = append(focusOpts, focus.WithClock(hc.now))
	}
	sessOpts := []session.Option{session.WithBus(bus), session.WithLogger(logger)}
	if hc.namer != nil {
		sessOpts = append(sessOpts, session.WithNamer(hc.namer))
	}

	log := mailbox.New(layout.LogDir(), mbOpts...)
	h := &Hub{
		layout:   layout,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
		log:      log,
		locks:    filelock.New(layout.LocksDir(), lockOpts...),
		cursors:  cursor.New(layout.CursorsDir(), log, cursor.WithLogger(logger)),
		sessions: session.New(layout.SessionsDir(), sessOpts...),
		focus:    focus.New(layout.FocusDir(), focusOpts...),
	}
	h.auditID = bus.SubscribeAll(h.audit)
	return h, nil
}

// Layout returns the directory layout of the Hub.
func (h *Hub) Layout() Layout { return h.layout }

// ProjectRoot returns the project directory lock patterns are relative to.
func (h *Hub) ProjectRoot() string { return h.layout.ProjectRoot() }

// Config returns the loaded configuration.
func (h *Hub) Config() *config.Config { return h.cfg }

// Bus returns the event bus shared by the stores.
func (h *Hub) Bus() *event.Bus { return h.bus }

// Logger returns the logger shared by the stores.
func (h *Hub) Logger() *logging.Logger { return h.logger }

// Log returns the message log.
func (h *Hub) Log() *mailbox.Store { return h.log }

// Locks returns the lock manager.
func (h *Hub) Locks() *filelock.Manager { return h.locks }

// Cursors returns the cursor tracker.
func (h *Hub) Cursors() *cursor.Tracker { return h.cursors }

// Sessions returns the session registry.
func (h *Hub) Sessions() *session.Registry { return h.sessions }

// Focus returns the focus board.
func (h *Hub) Focus() *focus.Board { return h.focus }

// TidyReport counts what Tidy removed.
type TidyReport struct {
	TempFiles    int `json:"temp_files" yaml:"temp_files"`
	ExpiredLocks int `json:"expired_locks" yaml:"expired_locks"`
	ExpiredFocus int `json:"expired_focus" yaml:"expired_focus"`
}

// Tidy removes residue: orphaned temp files older than a grace period in
// the coordination directory and every store directory, expired lock
// records and expired focuses. It is
// opportunistic; failures are logged and skipped.
func (h *Hub) Tidy() TidyReport {
	var report TidyReport
	for _, dir := range append([]string{h.layout.Root}, h.layout.Dirs()...) {
		n, err := atomicfile.SweepTemps(dir, tempGrace)
		if err != nil {
			h.logger.Debug("temp sweep failed", "dir", dir, "error", err.Error())
		}
		report.TempFiles += n
	}

	n, err := h.locks.PruneExpired()
	if err != nil {
		h.logger.Debug("lock prune failed", "error", err.Error())
	}
	report.ExpiredLocks = n

	n, err = h.focus.Prune()
	if err != nil {
		h.logger.Debug("focus prune failed", "error", err.Error())
	}
	report.ExpiredFocus = n

	if report.TempFiles > 0 {
		h.logger.Info("removed orphan temp files", "count", report.TempFiles)
	}
	return report
}

// Close detaches the Hub from its bus. It is idempotent and does not close
// the logger, which belongs to the caller.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.auditID == "" {
		return nil
	}
	h.bus.Unsubscribe(h.auditID)
	h.auditID = ""
	return nil
}

// audit records coordination events in the debug log.
func (h *Hub) audit(e event.Event) {
	args := []any{"event_type", e.EventType()}
	switch ev := e.(type) {
	case event.MessageAppendedEvent:
		args = append(args, "key", ev.ID, "author", ev.Author)
	case event.LockAcquiredEvent:
		args = append(args, "pattern", ev.Pattern, "owner", ev.Owner, "refreshed", ev.Refreshed)
	case event.LockReleasedEvent:
		args = append(args, "pattern", ev.Pattern, "owner", ev.Owner, "forced", ev.Forced)
	case event.LockReclaimedEvent:
		args = append(args, "pattern", ev.Pattern, "previous_owner", ev.PreviousOwner)
	case event.SessionRegisteredEvent:
		args = append(args, "session_id", ev.SessionID, "name", ev.Name)
	case event.FocusChangedEvent:
		args = append(args, "session_id", ev.SessionID, "focus", ev.Focus)
	}
	h.logger.Debug("coordination event", args...)
}

// Package focus keeps a board of what each session is working on.
//
// Every session has at most one focus, stored as focus/<session_id>.focus.
// A focus expires after its TTL like a lock does, and Overlapping lets a
// session find others whose stated focus shares significant words with a
// piece of text.
package focus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
)

const fileExt = ".focus"

// Entry is one session's focus.
type Entry struct {
	Focus     string    `json:"focus" yaml:"focus"`
	Owner     string    `json:"owner" yaml:"owner"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	SetAt     time.Time `json:"set_at" yaml:"set_at"`
	TTLSecs   int64     `json:"ttl_secs" yaml:"ttl_secs"`
}

// ExpiresAt returns when the focus lapses.
func (e Entry) ExpiresAt() time.Time {
	return e.SetAt.Add(time.Duration(e.TTLSecs) * time.Second)
}

// IsExpired reports whether the focus has lapsed at now.
func (e Entry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// Board stores focus entries in a directory.
type Board struct {
	dir    string
	bus    *event.Bus
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithBus publishes a FocusChangedEvent on every Set and Clear.
func WithBus(bus *event.Bus) Option {
	return func(b *Board) {
		b.bus = bus
	}
}

// WithLogger sets the logger for focus diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Board) {
		b.logger = logging.OrNop(logger).WithComponent("focus")
	}
}

// WithClock replaces the time source used for set times and expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// New creates a Board over the focus directory dir.
func New(dir string, opts ...Option) *Board {
	b := &Board{
		dir:    dir,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Set replaces the focus of sessionID. Expired entries of other sessions
// are pruned first.
func (b *Board) Set(text, owner, sessionID string, ttl time.Duration) (Entry, error) {
	path, err := b.path(sessionID)
	if err != nil {
		return Entry{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, errors.NewValidationError("focus", text, "must not be empty")
	}
	if ttl < time.Second {
		return Entry{}, errors.NewValidationError("ttl", ttl.String(), "must be at least 1s")
	}

	if _, err := b.Prune(); err != nil {
		b.logger.Warn("focus prune failed", "error", err.Error())
	}

	entry := Entry{
		Focus:     text,
		Owner:     owner,
		SessionID: sessionID,
		SetAt:     b.now().UTC(),
		TTLSecs:   int64(ttl / time.Second),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("focus: marshal entry: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return Entry{}, err
	}

	b.logger.Info("focus set", "session_id", sessionID, "owner", owner, "focus", text)
	b.publish(event.NewFocusChangedEvent(sessionID, owner, text))
	return entry, nil
}

// Clear removes the focus of sessionID. Clearing an absent focus is not an
// error.
func (b *Board) Clear(sessionID string) error {
	path, err := b.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("focus: remove entry: %w", err)
	}
	b.logger.Info("focus cleared", "session_id", sessionID)
	b.publish(event.NewFocusChangedEvent(sessionID, "", ""))
	return nil
}

// Get returns the live focus of sessionID, if any.
func (b *Board) Get(sessionID string) (Entry, bool, error) {
	path, err := b.path(sessionID)
	if err != nil {
		return Entry{}, false, err
	}
	entry, _, err := readEntry(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	if entry.IsExpired(b.now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// List returns every live focus, sorted by owner.
func (b *Board) List() ([]Entry, error) {
	all, err := b.readAll()
	if err != nil {
		return nil, err
	}
	now := b.now()
	live := make([]Entry, 0, len(all))
	for _, f := range all {
		if !f.entry.IsExpired(now) {
			live = append(live, f.entry)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Owner != live[j].Owner {
			return live[i].Owner < live[j].Owner
		}
		return live[i].SessionID < live[j].SessionID
	})
	return live, nil
}

// Overlapping returns the live focuses of sessions other than sessionID
// that share a significant word with text.
func (b *Board) Overlapping(text, sessionID string) ([]Entry, error) {
	want := Tokenize(text)
	if len(want) == 0 {
		return nil, nil
	}

	live, err := b.List()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, entry := range live {
		if entry.SessionID == sessionID {
			continue
		}
		for token := range Tokenize(entry.Focus) {
			if _, ok := want[token]; ok {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}

// Prune removes expired entries and returns how many it removed. An entry
// is removed only if it still holds the expired content that was read.
func (b *Board) Prune() (int, error) {
	all, err := b.readAll()
	if err != nil {
		return 0, err
	}
	now := b.now()
	removed := 0
	for _, f := range all {
		if !f.entry.IsExpired(now) {
			continue
		}
		_, current, err := readEntry(f.path)
		if err != nil || !bytes.Equal(current, f.raw) {
			continue
		}
		if err := os.Remove(f.path); err == nil {
			removed++
		}
	}
	if removed > 0 {
		b.logger.Debug("pruned expired focuses", "count", removed)
	}
	return removed, nil
}

type storedEntry struct {
	entry Entry
	raw   []byte
	path  string
}

func (b *Board) readAll() ([]storedEntry, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("focus: read directory: %w", err)
	}

	var out []storedEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || atomicfile.IsTemp(name) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		path := filepath.Join(b.dir, name)
		entry, raw, err := readEntry(path)
		if err != nil {
			b.logger.Debug("skipping unreadable focus", "file", name, "error", err.Error())
			continue
		}
		out = append(out, storedEntry{entry: entry, raw: raw, path: path})
	}
	return out, nil
}

func readEntry(path string) (Entry, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, nil, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, nil, fmt.Errorf("focus: decode %s: %w", filepath.Base(path), err)
	}
	return entry, raw, nil
}

func (b *Board) path(sessionID string) (string, error) {
	if !atomicfile.IsPlainName(sessionID) {
		return "", errors.NewInvalidNameError("session_id", sessionID)
	}
	return filepath.Join(b.dir, sessionID+fileExt), nil
}

func (b *Board) publish(e event.Event) {
	if b.bus != nil {
		b.bus.Publish(e)
	}
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "it": {}, "as": {}, "be": {}, "was": {}, "are": {},
	"this": {}, "that": {}, "into": {}, "all": {}, "no": {}, "not": {},
	"so": {}, "up": {}, "out": {},
}

// Tokenize splits text into its lower-cased significant words. Hyphens
// and underscores stay inside words; single characters and stop words are
// dropped.
func Tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if len(w) <= 1 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

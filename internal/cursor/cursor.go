// Package cursor tracks, per session, how far into the message log the
// session has read.
//
// A cursor is an empty file, cursors/<session>.cursor, whose modification
// time is set to the ordering key of the last message delivered to the
// session. A message is unread when its key is strictly greater than the
// cursor time. Unread counts are computed from log file names alone.
//
// A session without a cursor has read nothing: every message is unread, and
// its first read is limited to the most recent messages.
package cursor

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/logging"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
)

// fileExt is the suffix of every cursor file.
const fileExt = ".cursor"

// mtimeSlack is how far the log directory mtime must trail the cursor
// before HasUnread trusts it.
const mtimeSlack = time.Second

// noCursor is the since-key that makes every message unread.
const noCursor int64 = -1

// Tracker reads and advances cursors in a directory against one log.
type Tracker struct {
	dir    string
	log    *mailbox.Store
	logger *logging.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger for cursor diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(t *Tracker) {
		t.logger = logging.OrNop(logger).WithComponent("cursor")
	}
}

// New creates a Tracker for cursors in dir over log.
func New(dir string, log *mailbox.Store, opts ...Option) *Tracker {
	t := &Tracker{
		dir:    dir,
		log:    log,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Position returns the session's cursor key and whether a cursor exists.
func (t *Tracker) Position(session string) (int64, bool, error) {
	path, err := t.path(session)
	if err != nil {
		return 0, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "cursor: stat")
	}
	return info.ModTime().UnixNano(), true, nil
}

// Advance moves the session's cursor to key, creating it if needed.
// A cursor never moves backwards.
func (t *Tracker) Advance(session string, key int64) error {
	path, err := t.path(session)
	if err != nil {
		return err
	}

	pos, exists, err := t.Position(session)
	if err != nil {
		return err
	}
	if exists && pos >= key {
		return nil
	}
	if !exists {
		if err := atomicfile.CreateExclusive(path, nil, 0o644); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}

	mtime := time.Unix(0, key)
	if err := os.Chtimes(path, time.Now(), mtime); err != nil {
		return errors.NewWriteError("chtimes", path, err)
	}
	t.logger.Debug("cursor advanced", "session_id", session, "key", key)
	return nil
}

// UnreadCount returns the number of messages newer than the cursor. It
// reads only log file names.
func (t *Tracker) UnreadCount(session string) (int, error) {
	since, err := t.since(session)
	if err != nil {
		return 0, err
	}
	keys, err := t.log.Keys(since)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// HasUnread reports whether any message is newer than the cursor. When the
// log directory was last modified well before the cursor time it answers
// without listing the log.
func (t *Tracker) HasUnread(session string) (bool, error) {
	pos, exists, err := t.Position(session)
	if err != nil {
		return false, err
	}
	if !exists {
		return t.log.HasAny()
	}

	modTime, err := t.log.ModTime()
	if err != nil {
		return false, err
	}
	// Directory mtimes come from the kernel's coarse clock while keys come
	// from time.Now, so only a directory older than the cursor by
	// mtimeSlack proves nothing was appended since.
	if modTime.Before(time.Unix(0, pos).Add(-mtimeSlack)) {
		return false, nil
	}

	keys, err := t.log.Keys(pos)
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// Peek returns the session's unread messages without moving its cursor.
// Messages by excludeAuthor are omitted. A session with no cursor sees only
// the newest first messages; first <= 0 shows all of them.
func (t *Tracker) Peek(session string, first int, excludeAuthor string) ([]mailbox.Message, error) {
	msgs, _, err := t.unread(session, first, excludeAuthor)
	return msgs, err
}

// Read returns the same messages as Peek and advances the cursor past every
// message it considered, including omitted ones. A session with no cursor
// gets one even when the log is empty.
func (t *Tracker) Read(session string, first int, excludeAuthor string) ([]mailbox.Message, error) {
	msgs, through, err := t.unread(session, first, excludeAuthor)
	if err != nil {
		return nil, err
	}

	_, exists, err := t.Position(session)
	if err != nil {
		return nil, err
	}
	if through > noCursor || !exists {
		if through < 0 {
			through = 0
		}
		if err := t.Advance(session, through); err != nil {
			return nil, err
		}
	}
	return msgs, nil
}

// AcknowledgeOwn advances the cursor to key, the session's own freshly
// appended message, when that message is the only unread one. It leaves
// the cursor alone if other unread messages are pending.
func (t *Tracker) AcknowledgeOwn(session string, key int64) error {
	since, err := t.since(session)
	if err != nil {
		return err
	}
	keys, err := t.log.Keys(since)
	if err != nil {
		return err
	}
	if len(keys) == 1 && keys[0] == key {
		return t.Advance(session, key)
	}
	return nil
}

// unread collects the session's unread messages from a single snapshot of
// the log names and reports the newest key in that snapshot, or noCursor
// when there was nothing new.
func (t *Tracker) unread(session string, first int, excludeAuthor string) ([]mailbox.Message, int64, error) {
	pos, exists, err := t.Position(session)
	if err != nil {
		return nil, 0, err
	}
	since := noCursor
	if exists {
		since = pos
	}

	keys, err := t.log.Keys(since)
	if err != nil {
		return nil, 0, err
	}
	if len(keys) == 0 {
		return nil, noCursor, nil
	}
	through := keys[len(keys)-1]

	limit := 0
	if !exists && first > 0 {
		limit = first
	}

	// Walk newest first so the first-read limit keeps the latest messages.
	var msgs []mailbox.Message
	for i := len(keys) - 1; i >= 0; i-- {
		if limit > 0 && len(msgs) == limit {
			break
		}
		msg, err := t.log.Get(keys[i])
		if err != nil {
			t.logger.Warn("skipping unreadable message", "key", keys[i], "error", err.Error())
			continue
		}
		if excludeAuthor != "" && msg.Author == excludeAuthor {
			continue
		}
		msgs = append(msgs, msg)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, through, nil
}

func (t *Tracker) since(session string) (int64, error) {
	pos, exists, err := t.Position(session)
	if err != nil {
		return 0, err
	}
	if !exists {
		return noCursor, nil
	}
	return pos, nil
}

func (t *Tracker) path(session string) (string, error) {
	if !atomicfile.IsPlainName(session) {
		return "", errors.NewInvalidNameError("session", session)
	}
	return filepath.Join(t.dir, session+fileExt), nil
}

package mailbox

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
)

const (
	// maxAppendAttempts bounds the name-collision retry loop in Append.
	maxAppendAttempts = 64

	// defaultPollInterval is the fallback rescan interval for Watch.
	defaultPollInterval = 500 * time.Millisecond
)

// Store is the message log directory. It is safe for concurrent use, and
// any number of Stores in any number of processes may share one directory.
type Store struct {
	dir          string
	bus          *event.Bus
	logger       *logging.Logger
	now          func() time.Time
	pollInterval time.Duration
}

// New creates a Store over dir. The directory must already exist for
// Append to succeed; reads treat a missing directory as an empty log.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:          dir,
		logger:       logging.NopLogger(),
		now:          time.Now,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the log directory.
func (s *Store) Dir() string {
	return s.dir
}

// Append publishes a new message and returns it with its assigned key.
//
// The key is the current time in nanoseconds. If another writer already
// published that key, the clock is sampled again; when the new sample is
// not later than the collided key, collided+1 is used instead. After
// maxAppendAttempts collisions the call fails with errors.ErrWriteFailure.
func (s *Store) Append(author, body string) (Message, error) {
	if author == "" {
		return Message{}, errors.NewValidationError("author", author, "must not be empty")
	}
	if body == "" {
		return Message{}, errors.NewValidationError("body", body, "must not be empty")
	}

	data, err := json.Marshal(record{Author: author, Body: body})
	if err != nil {
		return Message{}, fmt.Errorf("mailbox: marshal message: %w", err)
	}

	key := s.now().UnixNano()
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		path := filepath.Join(s.dir, FileName(key))
		err := atomicfile.CreateExclusive(path, data, 0o644)
		if err == nil {
			msg := Message{ID: key, Author: author, Body: body}
			s.logger.Debug("message appended", "key", key, "author", author, "attempts", attempt)
			if s.bus != nil {
				s.bus.Publish(event.NewMessageAppendedEvent(key, author, body))
			}
			return msg, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			s.logger.Error("append failed", "key", key, "author", author, "error", err.Error())
			return Message{}, err
		}

		next := s.now().UnixNano()
		if next <= key {
			next = key + 1
		}
		key = next
	}

	s.logger.Error("append gave up after name collisions", "author", author, "attempts", maxAppendAttempts)
	return Message{}, errors.NewWriteError("append", s.dir,
		fmt.Errorf("%d consecutive name collisions", maxAppendAttempts))
}

// Keys returns the ordering keys strictly greater than since, oldest first.
// It reads only directory entry names.
func (s *Store) Keys(since int64) ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mailbox: read log directory: %w", err)
	}

	keys := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || atomicfile.IsTemp(entry.Name()) {
			continue
		}
		key, ok := ParseKey(entry.Name())
		if !ok || key <= since {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// List returns messages selected by opts in chronological order. Each call
// re-reads the directory, so the result reflects appends made by any process
// up to the moment of the call.
func (s *Store) List(opts ListOptions) ([]Message, error) {
	keys, err := s.Keys(opts.Since)
	if err != nil {
		return nil, err
	}
	if opts.ExcludeAuthor == "" {
		keys = lastN(keys, opts.Last)
	}

	messages := make([]Message, 0, len(keys))
	for _, key := range keys {
		msg, err := s.Get(key)
		if err != nil {
			// Messages are never removed, so a failed read is a foreign or
			// damaged file. Skip it rather than hide every other message.
			s.logger.Warn("skipping unreadable message", "key", key, "error", err.Error())
			continue
		}
		if opts.ExcludeAuthor != "" && msg.Author == opts.ExcludeAuthor {
			continue
		}
		messages = append(messages, msg)
	}

	if opts.ExcludeAuthor != "" {
		messages = lastN(messages, opts.Last)
	}
	return messages, nil
}

// Get reads the message stored under key.
func (s *Store) Get(key int64) (Message, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, FileName(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return Message{}, errors.NewNotFoundError("message", FileName(key)).WithCause(err)
		}
		return Message{}, fmt.Errorf("mailbox: read message: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Message{}, fmt.Errorf("mailbox: decode message %s: %w", FileName(key), err)
	}
	return Message{ID: key, Author: rec.Author, Body: rec.Body}, nil
}

// HasAny reports whether the log holds at least one message.
func (s *Store) HasAny() (bool, error) {
	keys, err := s.Keys(0)
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// LatestKey returns the newest key, or 0 for an empty log.
func (s *Store) LatestKey() (int64, error) {
	keys, err := s.Keys(0)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	return keys[len(keys)-1], nil
}

// ModTime returns the modification time of the log directory, which
// changes whenever an entry is added. A missing directory reports the zero
// time.
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("mailbox: stat log directory: %w", err)
	}
	return info.ModTime(), nil
}

func lastN[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

package filelock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/event"
	"github.com/Iron-Ham/agent-chat/internal/logging"
)

const (
	// maxSlotAttempts bounds how many times an operation re-reads a slot
	// after losing a race on it.
	maxSlotAttempts = 4

	// corruptGrace is how long an unreadable slot file is treated as live.
	// The fallback publish path exposes an empty file for a brief window.
	corruptGrace = time.Minute

	// guardStale is the age after which a removal guard is presumed orphaned.
	guardStale = 30 * time.Second
)

// Manager stores lock records in a directory. It holds no in-memory lock
// state, so any number of Managers in any number of processes may share
// one directory.
type Manager struct {
	dir    string
	bus    *event.Bus
	logger *logging.Logger
	now    func() time.Time
}

// New creates a Manager over the locks directory dir.
func New(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:    dir,
		logger: logging.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// slot is one read of a slot file.
type slot struct {
	lock    Lock
	raw     []byte
	corrupt bool
	modTime time.Time
}

func (s *slot) expired(now time.Time) bool {
	if s.corrupt {
		return now.Sub(s.modTime) > corruptGrace
	}
	return s.lock.IsExpired(now)
}

// Acquire claims pattern for owner for ttl.
//
// If the slot is free, a new record is published. If it holds an expired
// record, that record is retired and the slot republished. If it holds a
// live record of the same owner, the record is refreshed with a new
// acquisition time and ttl. Otherwise the call returns a
// *errors.LockConflictError naming the holder.
func (m *Manager) Acquire(pattern string, owner Owner, ttl time.Duration) (Lock, error) {
	if err := ValidatePattern(pattern); err != nil {
		return Lock{}, err
	}
	if owner.IsZero() {
		return Lock{}, errors.NewValidationError("owner", owner, "must have a name or session id")
	}
	if ttl < time.Second {
		return Lock{}, errors.NewValidationError("ttl", ttl, "must be at least one second")
	}

	path := m.slotPath(pattern)
	log := m.logger.With("pattern", pattern, "owner", owner.Name, "session_id", owner.SessionID)

	for attempt := 0; attempt < maxSlotAttempts; attempt++ {
		now := m.now()
		lock := Lock{
			Pattern:    pattern,
			Owner:      owner.Name,
			SessionID:  owner.SessionID,
			AcquiredAt: now.UTC(),
			TTLSecs:    int64(ttl / time.Second),
		}
		data, err := json.Marshal(lock)
		if err != nil {
			return Lock{}, fmt.Errorf("filelock: marshal record: %w", err)
		}

		current, err := m.readSlot(path)
		if err != nil {
			return Lock{}, err
		}

		switch {
		case current == nil:
			err := atomicfile.CreateExclusive(path, data, 0o644)
			if errors.Is(err, fs.ErrExist) {
				log.Debug("lost create race, re-reading slot")
				continue
			}
			if err != nil {
				return Lock{}, err
			}
			log.Info("lock acquired", "ttl_secs", lock.TTLSecs)
			m.publish(event.NewLockAcquiredEvent(pattern, owner.Name, owner.SessionID, false))
			return lock, nil

		case current.expired(now):
			if err := m.retire(path, current, now); err != nil {
				return Lock{}, err
			}
			// Republish on the next pass with create-exclusive.

		case !current.corrupt && current.lock.Pattern != pattern:
			log.Warn("lock slot collision", "existing", current.lock.Pattern)
			return Lock{}, errors.NewSlotCollisionError(pattern, current.lock.Pattern)

		case !current.corrupt && current.lock.HeldBy(owner):
			if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
				return Lock{}, err
			}
			log.Info("lock refreshed", "ttl_secs", lock.TTLSecs)
			m.publish(event.NewLockAcquiredEvent(pattern, owner.Name, owner.SessionID, true))
			return lock, nil

		default:
			log.Info("lock contention", "holder", current.lock.Owner)
			return Lock{}, errors.NewLockConflictError(pattern, current.lock.Owner)
		}
	}

	log.Info("lock contention", "reason", "slot kept changing")
	return Lock{}, errors.NewLockConflictError(pattern, "")
}

// Release removes the record for pattern. It succeeds when owner holds the
// lock, when force is set, or when the record is already expired. Releasing
// an absent lock is a no-op. Otherwise it returns an error wrapping
// errors.ErrLockNotOwned.
func (m *Manager) Release(pattern string, owner Owner, force bool) error {
	path := m.slotPath(pattern)

	for attempt := 0; attempt < maxSlotAttempts; attempt++ {
		current, err := m.readSlot(path)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		if !current.corrupt && current.lock.Pattern != pattern {
			// The slot belongs to another pattern; pattern itself is not locked.
			return nil
		}

		now := m.now()
		held := !current.corrupt && current.lock.HeldBy(owner)
		if !held && !force && !current.expired(now) {
			return errors.NewLockNotOwnedError(pattern, current.lock.Owner)
		}

		removed, err := m.remove(path, current)
		if err != nil {
			return err
		}
		if !removed {
			continue
		}

		m.logger.Info("lock released",
			"pattern", pattern,
			"holder", current.lock.Owner,
			"released_by", owner.Name,
			"forced", force && !held,
		)
		m.publish(event.NewLockReleasedEvent(pattern, current.lock.Owner, force && !held))
		return nil
	}

	return errors.NewLockConflictError(pattern, "")
}

// ReleaseAll releases every lock held by owner, including expired ones, and
// returns how many live locks were released.
func (m *Manager) ReleaseAll(owner Owner) (int, error) {
	slots, err := m.readAll()
	if err != nil {
		return 0, err
	}

	now := m.now()
	released := 0
	var errs []error
	for _, s := range slots {
		if s.corrupt || !s.lock.HeldBy(owner) {
			continue
		}
		live := !s.lock.IsExpired(now)
		if err := m.Release(s.lock.Pattern, owner, false); err != nil {
			errs = append(errs, err)
			continue
		}
		if live {
			released++
		}
	}
	return released, errors.Join(errs...)
}

// Get returns the live record for pattern, if any.
func (m *Manager) Get(pattern string) (Lock, bool, error) {
	current, err := m.readSlot(m.slotPath(pattern))
	if err != nil || current == nil || current.corrupt || current.lock.IsExpired(m.now()) {
		return Lock{}, false, err
	}
	if current.lock.Pattern != pattern {
		return Lock{}, false, nil
	}
	return current.lock, true, nil
}

// List returns every live lock sorted by pattern. Expired records are
// omitted but left on disk.
func (m *Manager) List() ([]Lock, error) {
	slots, err := m.readAll()
	if err != nil {
		return nil, err
	}

	now := m.now()
	locks := make([]Lock, 0, len(slots))
	for _, s := range slots {
		if s.corrupt || s.lock.IsExpired(now) {
			continue
		}
		locks = append(locks, s.lock)
	}
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].Pattern < locks[j].Pattern
	})
	return locks, nil
}

// Check returns every live lock whose pattern matches the project-relative
// path, most recently acquired first. Locks held by exclude are skipped; a
// zero exclude skips nothing.
func (m *Manager) Check(relPath string, exclude Owner) ([]Lock, error) {
	locks, err := m.List()
	if err != nil {
		return nil, err
	}

	var matches []Lock
	for _, lock := range locks {
		if !exclude.IsZero() && lock.HeldBy(exclude) {
			continue
		}
		ok, err := Match(lock.Pattern, relPath)
		if err != nil {
			m.logger.Warn("skipping lock with invalid pattern", "pattern", lock.Pattern, "error", err.Error())
			continue
		}
		if ok {
			matches = append(matches, lock)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].AcquiredAt.After(matches[j].AcquiredAt)
	})
	return matches, nil
}

// PruneExpired removes expired records and returns how many were removed.
func (m *Manager) PruneExpired() (int, error) {
	slots, err := m.readAll()
	if err != nil {
		return 0, err
	}

	now := m.now()
	pruned := 0
	for _, s := range slots {
		if !s.expired(now) {
			continue
		}
		removed, err := m.remove(s.path, &s.slot)
		if err != nil {
			return pruned, err
		}
		if removed {
			pruned++
		}
	}
	if pruned > 0 {
		m.logger.Info("pruned expired locks", "count", pruned)
	}
	return pruned, nil
}

// retire moves an expired record out of the slot so it can be republished.
func (m *Manager) retire(path string, expired *slot, now time.Time) error {
	removed, err := m.remove(path, expired)
	if err != nil || !removed {
		return err
	}
	m.logger.Info("reclaimed expired lock",
		"pattern", expired.lock.Pattern,
		"previous_owner", expired.lock.Owner,
		"expired_for", now.Sub(expired.lock.ExpiresAt()).String(),
	)
	m.publish(event.NewLockReclaimedEvent(expired.lock.Pattern, expired.lock.Owner))
	return nil
}

// remove takes the record seen as want out of the slot. It reports false
// without error when the slot no longer holds want or another process is
// removing from the same slot.
func (m *Manager) remove(path string, want *slot) (bool, error) {
	removed := false
	ok, err := m.withGuard(path, func() error {
		current, err := m.readSlot(path)
		if err != nil {
			return err
		}
		if current == nil || !bytes.Equal(current.raw, want.raw) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.NewWriteError("remove", path, err)
		}
		removed = true
		return nil
	})
	if err != nil || !ok {
		return false, err
	}
	return removed, nil
}

// withGuard runs fn while holding the slot's removal guard, a sibling file
// published with create-exclusive. It reports false without running fn when
// another process holds the guard. A guard older than guardStale is left
// over from a crashed process and is cleared for the next caller.
func (m *Manager) withGuard(path string, fn func() error) (bool, error) {
	guard := atomicfile.TempName(path, "guard-"+filepath.Base(path))

	err := atomicfile.CreateExclusive(guard, nil, 0o644)
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(guard); statErr == nil && time.Since(info.ModTime()) > guardStale {
			m.logger.Warn("clearing stale removal guard", "guard", filepath.Base(guard))
			_ = os.Remove(guard)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = os.Remove(guard) }()

	return true, fn()
}

// readSlot returns the record at path, or nil if the slot is free.
func (m *Manager) readSlot(path string) (*slot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filelock: open %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("filelock: stat %s: %w", filepath.Base(path), err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("filelock: read %s: %w", filepath.Base(path), err)
	}

	s := &slot{raw: buf.Bytes(), modTime: info.ModTime()}
	if err := json.Unmarshal(s.raw, &s.lock); err != nil || s.lock.Pattern == "" {
		s.corrupt = true
	}
	return s, nil
}

type namedSlot struct {
	slot
	path string
}

// readAll reads every slot file in the directory.
func (m *Manager) readAll() ([]namedSlot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filelock: read locks directory: %w", err)
	}

	slots := make([]namedSlot, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || atomicfile.IsTemp(name) || !strings.HasSuffix(name, slotExt) {
			continue
		}
		path := filepath.Join(m.dir, name)
		s, err := m.readSlot(path)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		if s.corrupt {
			m.logger.Debug("unreadable lock record", "slot", name)
		}
		slots = append(slots, namedSlot{slot: *s, path: path})
	}
	return slots, nil
}

func (m *Manager) slotPath(pattern string) string {
	return filepath.Join(m.dir, SlotName(pattern))
}

func (m *Manager) publish(e event.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

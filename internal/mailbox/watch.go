package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers every message appended after since to handler, in order,
// until ctx is cancelled. It reacts to filesystem notifications on the log
// directory and also rescans every poll interval, so it keeps working on
// filesystems that do not report changes.
//
// Watch blocks. It returns nil when ctx is cancelled and an error only when
// the directory cannot be watched or read at all.
func (s *Store) Watch(ctx context.Context, since int64, handler func(Message)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mailbox: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("mailbox: watch %s: %w", s.dir, err)
	}

	last := since
	var stalled int64
	deliver := func() error {
		keys, err := s.Keys(last)
		if err != nil {
			return err
		}
		for _, key := range keys {
			msg, err := s.Get(key)
			if err != nil {
				// The fallback publish path briefly exposes an empty file.
				// Wait one pass for it; skip it if it is still unreadable.
				if stalled != key {
					stalled = key
					s.logger.Debug("message not yet readable", "key", key, "error", err.Error())
					return nil
				}
				s.logger.Warn("skipping unreadable message", "key", key, "error", err.Error())
				last = key
				continue
			}
			handler(msg)
			last = key
		}
		return nil
	}

	// Catch anything appended between the caller choosing since and the
	// watch being registered.
	if err := deliver(); err != nil {
		return err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if err := deliver(); err != nil {
				s.logger.Warn("watch rescan failed", "error", err.Error())
			}

		case <-ticker.C:
			if err := deliver(); err != nil {
				s.logger.Warn("watch rescan failed", "error", err.Error())
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", werr.Error())
		}
	}
}

package tui

import (
	"time"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	tea "github.com/charmbracelet/bubbletea"
)

// lockRefreshInterval is how often the lock strip is re-read.
const lockRefreshInterval = 2 * time.Second

// tickMsg drives the periodic lock refresh.
type tickMsg time.Time

// messageMsg carries one message delivered by the log watcher.
type messageMsg struct {
	msg mailbox.Message
}

// locksMsg carries a fresh lock table.
type locksMsg struct {
	locks []filelock.Lock
}

// errMsg wraps an error for display in the footer
type errMsg struct {
	err error
}

// LockSource returns the current live locks.
type LockSource func() ([]filelock.Lock, error)

func tick() tea.Cmd {
	return tea.Tick(lockRefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refreshLocks(source LockSource) tea.Cmd {
	if source == nil {
		return nil
	}
	return func() tea.Msg {
		locks, err := source()
		if err != nil {
			return errMsg{err: err}
		}
		return locksMsg{locks: locks}
	}
}

// Package tui implements the live watch view of agent-chat.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
)

// App wraps the bubbletea program of the watch view.
type App struct {
	log   *mailbox.Store
	locks LockSource
	self  string
	since int64
	opts  []tea.ProgramOption
}

// New creates a watch App over log. Messages newer than since are shown;
// pass -1 to show the whole log.
func New(log *mailbox.Store, locks LockSource, self string, since int64, opts ...tea.ProgramOption) *App {
	return &App{
		log:   log,
		locks: locks,
		self:  self,
		since: since,
		opts:  opts,
	}
}

// Run shows the watch view until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, a.opts...)
	program := tea.NewProgram(NewModel(a.self, a.locks), opts...)

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		err := a.log.Watch(ctx, a.since, func(msg mailbox.Message) {
			program.Send(messageMsg{msg: msg})
		})
		if err != nil && ctx.Err() == nil {
			program.Send(errMsg{err: err})
		}
	}()

	_, err := program.Run()
	cancel()
	<-watchDone

	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Stream prints messages newer than since to w as they arrive, one
// formatted line each, until ctx is cancelled. It is the watch mode for
// output that is not a terminal.
func Stream(ctx context.Context, log *mailbox.Store, since int64, w io.Writer, color bool) error {
	err := log.Watch(ctx, since, func(msg mailbox.Message) {
		line := mailbox.Format(msg)
		if color {
			line = styles.Author(msg.Author).Render(line)
		}
		_, _ = fmt.Fprintln(w, line)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

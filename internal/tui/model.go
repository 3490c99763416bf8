package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
	"github.com/Iron-Ham/agent-chat/internal/util"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	headerHeight = 2 // title + blank line
	footerHeight = 3 // border + lock strip + help
)

// Model is the bubbletea model of the watch view: a scrolling message
// pane over a strip of live locks.
type Model struct {
	self     string
	locksFn  LockSource
	now      func() time.Time
	viewport viewport.Model
	messages []mailbox.Message
	locks    []filelock.Lock
	err      error

	width  int
	height int
	ready  bool
	follow bool
}

// NewModel creates a watch model for the session named self. locks may be
// nil, which hides the lock strip contents.
func NewModel(self string, locks LockSource) Model {
	return Model{
		self:    self,
		locksFn: locks,
		now:     time.Now,
		follow:  true,
	}
}

// Init starts the lock refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(refreshLocks(m.locksFn), tick())
}

// Update handles window, key and data messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		paneHeight := max(msg.Height-headerHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, paneHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = paneHeight
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "G", "end":
			m.viewport.GotoBottom()
			m.follow = true
			return m, nil
		case "g", "home":
			m.viewport.GotoTop()
			m.follow = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case messageMsg:
		if n := len(m.messages); n > 0 && msg.msg.ID <= m.messages[n-1].ID {
			return m, nil
		}
		m.messages = append(m.messages, msg.msg)
		m.refreshContent()
		return m, nil

	case locksMsg:
		m.locks = msg.locks
		m.err = nil
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tea.Batch(refreshLocks(m.locksFn), tick())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the header, message pane and lock strip.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	title := styles.Title.Render("agent-chat") +
		styles.Muted.Render(fmt.Sprintf("  %s", util.Plural(len(m.messages), "message", "messages")))
	if m.self != "" {
		title += styles.Muted.Render("  you are ") + styles.Author(m.self).Render(m.self)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		util.Truncate(title, m.width),
		"",
		m.viewport.View(),
		styles.Footer.Width(m.width).Render(m.footer()),
	)
}

func (m Model) footer() string {
	var strip string
	switch {
	case m.err != nil:
		strip = styles.Error.Render("error: " + m.err.Error())
	case len(m.locks) == 0:
		strip = "no active locks"
	default:
		now := m.now()
		parts := make([]string, 0, len(m.locks))
		for _, l := range m.locks {
			remaining := l.Remaining(now)
			parts = append(parts, fmt.Sprintf("%s %s %s",
				l.Pattern,
				styles.Author(l.Owner).Render(l.Owner),
				lipgloss.NewStyle().Foreground(styles.RemainingColor(remaining)).Render(util.Remaining(remaining)),
			))
		}
		strip = "locks: " + strings.Join(parts, "  |  ")
	}

	help := styles.HelpKey.Render("q") + styles.HelpText.Render(" quit  ") +
		styles.HelpKey.Render("g/G") + styles.HelpText.Render(" top/bottom  ") +
		styles.HelpKey.Render("↑/↓") + styles.HelpText.Render(" scroll")

	return util.Truncate(strip, m.width) + "\n" + util.Truncate(help, m.width)
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessage(msg mailbox.Message) string {
	author := styles.Author(msg.Author).Render(msg.Author)
	stamp := styles.Muted.Render(msg.Time().Local().Format("15:04:05"))
	body := msg.Body
	if msg.Author == m.self {
		body = styles.Muted.Render(body)
	}
	line := fmt.Sprintf("%s %s  %s", stamp, author, body)
	if m.width > 0 {
		return lipgloss.NewStyle().Width(m.width).Render(line)
	}
	return line
}

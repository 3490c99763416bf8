package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/hooks"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
)

func newSayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "say <message...>",
		Short: "Post a message to the shared log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args, " ")
			if strings.TrimSpace(body) == "" {
				return errors.NewValidationError("message", body, "cannot be empty")
			}

			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			id, err := c.identity(h)
			if err != nil {
				return err
			}
			msg, err := h.Log().Append(id.Name, body)
			if err != nil {
				return err
			}
			if err := h.Cursors().AcknowledgeOwn(id.SessionID, msg.ID); err != nil {
				h.logger.Warn("failed to acknowledge own message", "session_id", id.SessionID, "error", err.Error())
			}
			return nil
		},
	}
}

func newReadCmd(c *cli) *cobra.Command {
	var (
		all    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Show unread messages (or all with --all)",
		Long: `Show the messages posted since this session last read, and mark them
read. A session that has never read sees only the most recent
first_read_count messages. With --all the whole log is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			id, err := c.identity(h)
			if err != nil {
				return err
			}

			var msgs []mailbox.Message
			if all {
				msgs, err = readAll(h, id.SessionID)
			} else {
				msgs, err = h.Cursors().Read(id.SessionID, h.Config().FirstReadCount, "")
			}
			if err != nil {
				return err
			}

			if format != formatText {
				if msgs == nil {
					msgs = []mailbox.Message{}
				}
				return writeStructured(cmd.OutOrStdout(), format, msgs)
			}
			p := newPrinter(cmd.OutOrStdout())
			if len(msgs) == 0 {
				p.info("Messages:", "No new messages.")
				return nil
			}
			for _, msg := range msgs {
				p.println(p.paint(styles.Author(msg.Author), mailbox.Format(msg)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "show the whole log instead of unread messages")
	addOutputFlag(cmd, &format)
	return cmd
}

// readAll returns the whole log and moves the session's cursor past it.
func readAll(h *handle, sessionID string) ([]mailbox.Message, error) {
	msgs, err := h.Log().List(mailbox.ListOptions{})
	if err != nil {
		return nil, err
	}
	var newest int64
	if len(msgs) > 0 {
		newest = msgs[len(msgs)-1].ID
	}
	if err := h.Cursors().Advance(sessionID, newest); err != nil {
		return nil, err
	}
	return msgs, nil
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize unread messages (Stop hook)",
		Long: `Print a one-line unread message summary for the session, or nothing
when there is nothing new. Without a resolvable session the whole log is
counted.`,
		Args: cobra.NoArgs,
		RunE: advisory(func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			count, err := unreadCount(c, h)
			if err != nil {
				return err
			}
			if line := hooks.StatusLine(count); line != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}),
	}
}

func unreadCount(c *cli, h *handle) (int, error) {
	id, err := c.identity(h)
	if err != nil {
		if errors.Is(err, errors.ErrUnknownSession) && c.v.GetString(keySession) != "" {
			return 0, err
		}
		keys, err := h.Log().Keys(-1)
		return len(keys), err
	}

	unread, err := h.Cursors().HasUnread(id.SessionID)
	if err != nil || !unread {
		return 0, err
	}
	return h.Cursors().UnreadCount(id.SessionID)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/hooks"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
)

func newCheckLockCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check-lock",
		Short: "Warn when a file about to be edited is locked (PreToolUse hook)",
		Long: `Read a PreToolUse hook payload from stdin and, when its file_path is
covered by another session's live lock, print a hook warning. Prints
nothing otherwise.`,
		Args: cobra.NoArgs,
		RunE: advisory(func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			input, err := hooks.ReadPreToolUse(cmd.InOrStdin())
			if err != nil {
				return err
			}
			path := input.FilePath()
			if path == "" {
				return nil
			}
			rel, ok := hooks.RelativePath(h.ProjectRoot(), path)
			if !ok {
				return nil
			}

			sessionID := c.v.GetString(keySession)
			if sessionID == "" {
				sessionID = input.SessionID
			}
			if sessionID == "" {
				// Without an identity every lock would look foreign.
				return nil
			}
			owner := filelock.Owner{SessionID: sessionID}
			if name, ok, err := h.Sessions().Lookup(sessionID); err == nil && ok {
				owner.Name = name
			}

			locks, err := h.Locks().Check(rel, owner)
			if err != nil || len(locks) == 0 {
				return err
			}
			h.logger.Info("lock warning delivered", "path", rel, "pattern", locks[0].Pattern, "holder", locks[0].Owner)
			return hooks.NewDeliverer(cmd.OutOrStdout()).Warn(hooks.LockWarning(path, locks[0]))
		}),
	}
}

func newCheckMessagesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check-messages",
		Short: "Deliver unread messages into the agent's context (PreToolUse hook)",
		Long: `Inject messages from other sessions that this session has not read yet
into the agent's context and mark them read. The session's own messages
are never delivered. Prints nothing when there is nothing new.`,
		Args: cobra.NoArgs,
		RunE: advisory(func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			if c.v.GetString(keySession) == "" && !isTerminal(cmd.InOrStdin()) {
				if input, err := hooks.ReadPreToolUse(cmd.InOrStdin()); err == nil && input.SessionID != "" {
					c.v.Set(keySession, input.SessionID)
				}
			}
			id, err := c.identity(h)
			if err != nil {
				// Unregistered sessions have no cursor to deliver against.
				return nil
			}

			unread, err := h.Cursors().HasUnread(id.SessionID)
			if err != nil || !unread {
				return err
			}
			msgs, err := h.Cursors().Read(id.SessionID, h.Config().FirstReadCount, id.Name)
			if err != nil {
				return err
			}
			text := mailbox.FormatForPrompt(msgs)
			if text == "" {
				return nil
			}
			return hooks.NewDeliverer(cmd.OutOrStdout()).AddContext(text)
		}),
	}
}

package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/hooks"
	"github.com/Iron-Ham/agent-chat/internal/session"
	"github.com/Iron-Ham/agent-chat/internal/util"
)

// maxStdinBytes bounds how much hook input a command reads.
const maxStdinBytes = 4 << 20

func newRegisterCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Assign this session a friendly name (SessionStart hook)",
		Long: `Register the session and print its friendly name. Registration is
idempotent: a session keeps its name for life.

The session id comes from --session, then the SessionStart hook payload on
stdin, then $AGENT_CHAT_SESSION_ID. Without any of them a new id is
generated. When $CLAUDE_ENV_FILE is set, AGENT_CHAT_NAME and
AGENT_CHAT_SESSION_ID exports are appended to it.`,
		Args: cobra.NoArgs,
		RunE: advisory(func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			sessionID, generated, err := c.registrationID(cmd)
			if err != nil {
				return err
			}
			name, err := h.Sessions().Register(sessionID)
			if err != nil {
				return err
			}

			if path := c.v.GetString(keyEnvFile); path != "" {
				if err := hooks.AppendEnvFile(path, name, sessionID); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "You are %s. Use 'agent-chat say <message>' to talk, 'agent-chat read' to check messages.\n", name)
			if generated {
				_, _ = fmt.Fprintf(out, "export %s=%s\n", hooks.EnvSessionID, sessionID)
			}
			return nil
		}),
	}
}

// registrationID picks the id register acts on. generated is true when a
// fresh id had to be made up.
func (c *cli) registrationID(cmd *cobra.Command) (id string, generated bool, err error) {
	if cmd.Flags().Changed("session") {
		return c.v.GetString(keySession), false, nil
	}

	in := cmd.InOrStdin()
	if !isTerminal(in) {
		data, err := io.ReadAll(io.LimitReader(in, maxStdinBytes))
		if err != nil {
			return "", false, fmt.Errorf("failed to read hook input: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			payload, err := hooks.ReadSessionStart(bytes.NewReader(data))
			if err != nil {
				return "", false, err
			}
			return payload.SessionID, false, nil
		}
	}

	if id := c.v.GetString(keySession); id != "" {
		return id, false, nil
	}
	return uuid.New().String(), true, nil
}

func newWhoamiCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the friendly name of this session",
		Args:  cobra.NoArgs,
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
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, id)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", id.Name, id.SessionID)
			return nil
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

// sessionView is one row of the sessions listing.
type sessionView struct {
	session.Identity `yaml:",inline"`
	Focus            string `json:"focus,omitempty" yaml:"focus,omitempty"`
}

func newSessionsCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List registered sessions and what they are working on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			ids, err := h.Sessions().List()
			if err != nil {
				return err
			}
			focuses, err := h.Focus().List()
			if err != nil {
				return err
			}
			bySession := make(map[string]string, len(focuses))
			for _, f := range focuses {
				bySession[f.SessionID] = f.Focus
			}

			views := make([]sessionView, 0, len(ids))
			for _, id := range ids {
				views = append(views, sessionView{Identity: id, Focus: bySession[id.SessionID]})
			}
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, views)
			}

			p := newPrinter(cmd.OutOrStdout())
			if len(views) == 0 {
				p.info("Sessions:", "No registered sessions.")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Name, util.Truncate(v.SessionID, 36), util.OneLine(v.Focus)})
			}
			p.table([]int{18, 36}, []string{"NAME", "SESSION", "FOCUS"}, rows)
			return nil
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

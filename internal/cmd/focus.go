package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/focus"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
	"github.com/Iron-Ham/agent-chat/internal/util"
)

func newFocusCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Share what this session is working on",
		Long: `The focus board is a short, expiring note per session describing its
current work. Setting a focus reports other sessions whose focus looks
similar, which usually means duplicated effort.`,
	}
	cmd.AddCommand(newFocusSetCmd(c), newFocusClearCmd(c), newFocusListCmd(c))
	return cmd
}

func newFocusSetCmd(c *cli) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set <text...>",
		Short: "Set this session's focus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.NewValidationError("focus", text, "cannot be empty")
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
			lifetime := ttl
			if lifetime == 0 {
				lifetime = h.Config().FocusTTL()
			}
			entry, err := h.Focus().Set(text, id.Name, id.SessionID, lifetime)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.success("Focus set:", entry.Focus)

			overlaps, err := h.Focus().Overlapping(entry.Focus, id.SessionID)
			if err != nil {
				h.logger.Warn("focus overlap check failed", "error", err.Error())
				return nil
			}
			for _, o := range overlaps {
				p.warn("Overlaps with "+o.Owner+":", o.Focus)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "how long the focus stays visible (default focus_ttl_secs from config.toml)")
	return cmd
}

func newFocusClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear this session's focus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			id, err := c.identity(h)
			if err != nil {
				return err
			}
			if err := h.Focus().Clear(id.SessionID); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Focus cleared.", "")
			return nil
		},
	}
}

func newFocusListCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active focuses",
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

			entries, err := h.Focus().List()
			if err != nil {
				return err
			}
			if format != formatText {
				if entries == nil {
					entries = []focus.Entry{}
				}
				return writeStructured(cmd.OutOrStdout(), format, entries)
			}

			p := newPrinter(cmd.OutOrStdout())
			if len(entries) == 0 {
				p.info("Focuses:", "No active focuses.")
				return nil
			}
			now := time.Now()
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					p.paint(styles.Author(e.Owner), e.Owner),
					util.Remaining(e.ExpiresAt().Sub(now)),
					util.OneLine(e.Focus),
				})
			}
			p.table([]int{15, 8}, []string{"AGENT", "TTL", "FOCUS"}, rows)
			return nil
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

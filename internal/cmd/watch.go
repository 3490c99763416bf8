package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/tui"
)

func newWatchCmd(c *cli) *cobra.Command {
	var (
		last  int
		all   bool
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the conversation live",
		Long: `Show the most recent messages and follow new ones as agents post them,
together with the active locks. Watching never moves a read cursor.

On a terminal this opens a full-screen view (q to quit). With --plain, or
when output is not a terminal, messages are printed one per line instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.openHub()
			if err != nil {
				return err
			}
			defer h.Close()

			since, err := watchStart(h.Log(), last, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plain || !isTerminal(out) {
				return tui.Stream(cmd.Context(), h.Log(), since, out, newPrinter(out).color)
			}

			var self string
			if id, err := c.identity(h); err == nil {
				self = id.Name
			}
			locks := func() ([]filelock.Lock, error) { return h.Locks().List() }
			return tui.New(h.Log(), locks, self, since).Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&last, "last", "n", 20, "number of earlier messages to show")
	cmd.Flags().BoolVar(&all, "all", false, "show the whole log before following")
	cmd.Flags().BoolVar(&plain, "plain", false, "print messages line by line instead of the full-screen view")
	return cmd
}

// watchStart returns the key after which watching starts so that the last
// n messages are replayed first.
func watchStart(log *mailbox.Store, n int, all bool) (int64, error) {
	if all {
		return -1, nil
	}
	if n < 0 {
		return 0, fmt.Errorf("--last must not be negative, got %d", n)
	}
	if n == 0 {
		latest, err := log.LatestKey()
		if err != nil {
			return 0, err
		}
		return latest, nil
	}
	keys, err := log.Keys(-1)
	if err != nil {
		return 0, err
	}
	if len(keys) <= n {
		return -1, nil
	}
	return keys[len(keys)-n-1], nil
}

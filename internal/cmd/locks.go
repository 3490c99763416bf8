package cmd

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/session"
	"github.com/Iron-Ham/agent-chat/internal/tui/styles"
	"github.com/Iron-Ham/agent-chat/internal/util"
)

func ownerOf(id session.Identity) filelock.Owner {
	return filelock.Owner{Name: id.Name, SessionID: id.SessionID}
}

func newLockCmd(c *cli) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "lock <glob>",
		Short: "Claim an advisory lock on files matching a glob",
		Long: `Claim an advisory lock on the project files matching glob, for example
"src/auth/**" or "README.md". Other sessions are warned before editing a
locked file. Locking a glob you already hold refreshes it; a glob held by
another live session is refused.`,
		Args: cobra.ExactArgs(1),
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
			lifetime := ttl
			if lifetime == 0 {
				lifetime = h.Config().LockTTL()
			}
			lock, err := h.Locks().Acquire(args[0], ownerOf(id), lifetime)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.success("Locked:", lock.Pattern+" "+p.paint(styles.Muted, "(expires in "+util.Remaining(lock.TTL())+")"))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lock lifetime (default lock_ttl_secs from config.toml)")
	return cmd
}

func newUnlockCmd(c *cli) *cobra.Command {
	var force, all bool

	cmd := &cobra.Command{
		Use:   "unlock [glob]",
		Short: "Release an advisory lock",
		Long: `Release the lock on glob. Only the holder can release a live lock unless
--force is given. With --all every lock held by this session is released.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
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
			p := newPrinter(cmd.OutOrStdout())

			if all {
				n, err := h.Locks().ReleaseAll(ownerOf(id))
				if err != nil {
					return err
				}
				p.success("Unlocked:", util.Plural(n, "lock", "locks"))
				return nil
			}

			if err := h.Locks().Release(args[0], ownerOf(id), force); err != nil {
				return err
			}
			p.success("Unlocked:", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "release a lock held by another session")
	cmd.Flags().BoolVar(&all, "all", false, "release every lock held by this session")
	cmd.MarkFlagsMutuallyExclusive("force", "all")
	return cmd
}

func newLocksCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "locks",
		Short: "List active locks",
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

			locks, err := h.Locks().List()
			if err != nil {
				return err
			}
			if format != formatText {
				if locks == nil {
					locks = []filelock.Lock{}
				}
				return writeStructured(cmd.OutOrStdout(), format, locks)
			}

			p := newPrinter(cmd.OutOrStdout())
			if len(locks) == 0 {
				p.info("Locks:", "No active locks.")
				return nil
			}
			now := time.Now()
			rows := make([][]string, 0, len(locks))
			for _, lock := range locks {
				left := lock.Remaining(now)
				rows = append(rows, []string{
					lock.Pattern,
					p.paint(styles.Author(lock.Owner), lock.Owner),
					p.paint(lipgloss.NewStyle().Foreground(styles.RemainingColor(left)), util.Remaining(left)),
				})
			}
			p.table([]int{30, 15}, []string{"PATTERN", "OWNER", "TTL"}, rows)
			return nil
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agent-chat/internal/coordination"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/hooks"
)

// Hook install targets accepted by init --hooks.
const (
	hooksProject = "project"
	hooksUser    = "user"
	hooksBoth    = "both"
	hooksNone    = "none"
)

var hookTargets = []string{hooksProject, hooksUser, hooksBoth, hooksNone}

func newInitCmd(c *cli) *cobra.Command {
	var target, codex, bin string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .agent-chat/ and install agent hooks",
		Long: `Create the .agent-chat/ coordination directory in the project and install
the agent hooks that register sessions, deliver messages and warn about
locked files.

Hook targets:
  project  .claude/settings.local.json and ./CLAUDE.md
  user     ~/.claude/settings.json and ~/.claude/CLAUDE.md
  both     project and user
  none     only create .agent-chat/

--codex writes agent-chat guidance for Codex sessions, which have no hooks:
  project  ./AGENTS.md
  user     ~/.codex/AGENTS.md
  both     project and user
  none     skip (default)

Running init again is safe: an edited config.toml is kept and earlier
agent-chat hooks are replaced rather than duplicated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(hookTargets, target) {
				return errors.NewValidationError("hooks", target, "must be one of project, user, both, none")
			}
			if !slices.Contains(hookTargets, codex) {
				return errors.NewValidationError("codex", codex, "must be one of project, user, both, none")
			}
			dir, err := c.workDir()
			if err != nil {
				return err
			}

			res, err := coordination.Init(dir)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.success("Initialized", res.Layout.Root)
			if res.ConfigCreated {
				p.info("Created", res.Layout.ConfigPath())
			}
			if res.GitExcludeAdded {
				p.info("Excluded", coordination.DirName+"/ in .git/info/exclude")
			}

			for _, dest := range installDirs(target, res.Layout.ProjectRoot()) {
				if dest.home {
					home, err := os.UserHomeDir()
					if err != nil {
						return fmt.Errorf("failed to locate home directory: %w", err)
					}
					dest.settingsDir = filepath.Join(home, ".claude")
					dest.guidanceDir = dest.settingsDir
				}
				if err := hooks.InstallSettings(dest.settingsDir, dest.settingsFile, bin); err != nil {
					return err
				}
				if err := hooks.InstallGuidance(dest.guidanceDir); err != nil {
					return err
				}
				p.success("Installed hooks", filepath.Join(dest.settingsDir, dest.settingsFile))
			}

			for _, dir := range codexDirs(codex, res.Layout.ProjectRoot()) {
				if dir == "" {
					home, err := os.UserHomeDir()
					if err != nil {
						return fmt.Errorf("failed to locate home directory: %w", err)
					}
					dir = filepath.Join(home, ".codex")
				}
				if err := hooks.InstallCodexGuidance(dir); err != nil {
					return err
				}
				p.success("Installed Codex guidance", filepath.Join(dir, hooks.CodexGuidanceFile))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "hooks", hooksProject, "where to install hooks: project, user, both or none")
	cmd.Flags().StringVar(&codex, "codex", hooksNone, "where to install Codex guidance: project, user, both or none")
	cmd.Flags().StringVar(&bin, "bin", "agent-chat", "command the installed hooks run")
	return cmd
}

type installDir struct {
	home         bool
	settingsDir  string
	settingsFile string
	guidanceDir  string
}

// installDirs lists where hooks and guidance go for target. Entries with
// home set are resolved against the user's home directory.
func installDirs(target, projectRoot string) []installDir {
	project := installDir{
		settingsDir:  filepath.Join(projectRoot, ".claude"),
		settingsFile: hooks.ProjectSettingsFile,
		guidanceDir:  projectRoot,
	}
	user := installDir{home: true, settingsFile: hooks.UserSettingsFile}

	switch target {
	case hooksProject:
		return []installDir{project}
	case hooksUser:
		return []installDir{user}
	case hooksBoth:
		return []installDir{project, user}
	default:
		return nil
	}
}

// codexDirs lists the directories that receive AGENTS.md for target. An
// empty entry stands for ~/.codex.
func codexDirs(target, projectRoot string) []string {
	switch target {
	case hooksProject:
		return []string{projectRoot}
	case hooksUser:
		return []string{""}
	case hooksBoth:
		return []string{projectRoot, ""}
	default:
		return nil
	}
}

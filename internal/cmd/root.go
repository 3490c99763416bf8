// Package cmd implements the agent-chat command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/agent-chat/internal/config"
	"github.com/Iron-Ham/agent-chat/internal/coordination"
	"github.com/Iron-Ham/agent-chat/internal/hooks"
	"github.com/Iron-Ham/agent-chat/internal/logging"
	"github.com/Iron-Ham/agent-chat/internal/session"
)

// Viper keys shared by the commands.
const (
	keyDir      = "dir"
	keySession  = "session_id"
	keyName     = "name"
	keyLogLevel = "log_level"
	keyEnvFile  = "env_file"
)

// Version is the build version, set via ldflags.
var Version = "dev"

// envClaudeFile names the file the host sources into the agent's shell.
const envClaudeFile = "CLAUDE_ENV_FILE"

// cli carries the state shared by one command tree.
type cli struct {
	v *viper.Viper
}

// NewRootCmd builds the agent-chat command tree. Every call returns an
// independent tree with its own flag and environment bindings.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "agent-chat",
		Short: "File-based coordination for concurrent coding agents",
		Long: `agent-chat lets coding agents working in the same project talk to each
other and claim files before editing them. All state lives in plain files
under .agent-chat/, so any number of agent processes can share it without
a server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("dir", "C", "", "project directory (default is the current directory)")
	flags.String("session", "", "session id (default is $"+hooks.EnvSessionID+")")
	flags.String("log-level", "", "debug.log level: debug, info, warn or error (default from config.toml)")
	c.bind(flags)

	root.AddCommand(
		newInitCmd(c),
		newRegisterCmd(c),
		newWhoamiCmd(c),
		newSessionsCmd(c),
		newSayCmd(c),
		newReadCmd(c),
		newStatusCmd(c),
		newLockCmd(c),
		newUnlockCmd(c),
		newLocksCmd(c),
		newCheckLockCmd(c),
		newCheckMessagesCmd(c),
		newFocusCmd(c),
		newWatchCmd(c),
		newTidyCmd(c),
	)
	return root
}

// Execute runs the agent-chat command line.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (c *cli) bind(flags *pflag.FlagSet) {
	_ = c.v.BindPFlag(keyDir, flags.Lookup("dir"))
	_ = c.v.BindPFlag(keySession, flags.Lookup("session"))
	_ = c.v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	_ = c.v.BindEnv(keySession, hooks.EnvSessionID)
	_ = c.v.BindEnv(keyName, hooks.EnvName)
	_ = c.v.BindEnv(keyLogLevel, config.EnvPrefix+"_LOG_LEVEL")
	_ = c.v.BindEnv(keyEnvFile, envClaudeFile)
}

// workDir returns the directory commands start from.
func (c *cli) workDir() (string, error) {
	if dir := c.v.GetString(keyDir); dir != "" {
		return dir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return dir, nil
}

// handle is an open Hub plus the debug log behind it.
type handle struct {
	*coordination.Hub
	logger *logging.Logger
}

// Close detaches the Hub and closes the debug log.
func (h *handle) Close() {
	_ = h.Hub.Close()
	_ = h.logger.Close()
}

// openHub locates the coordination directory above the working directory
// and opens it with a debug log configured from config.toml.
func (c *cli) openHub() (*handle, error) {
	start, err := c.workDir()
	if err != nil {
		return nil, err
	}
	layout, err := coordination.FindRoot(start)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(layout.ConfigPath())
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if override := c.v.GetString(keyLogLevel); override != "" {
		level = override
	}
	logger, err := logging.NewLogger(layout.Root, level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		// The debug log is best effort.
		logger = logging.NopLogger()
	}

	hub, err := coordination.Open(layout,
		coordination.WithConfig(cfg),
		coordination.WithLogger(logger.WithComponent("cli")),
	)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return &handle{Hub: hub, logger: logger}, nil
}

// identity resolves the acting session: the --session flag, then
// AGENT_CHAT_SESSION_ID, then AGENT_CHAT_NAME, then the only registered
// session.
func (c *cli) identity(h *handle) (session.Identity, error) {
	if id := c.v.GetString(keySession); id != "" {
		return h.Sessions().Resolve(id)
	}
	if name := c.v.GetString(keyName); name != "" {
		return h.Sessions().FindByName(name)
	}
	return h.Sessions().Resolve("")
}

// advisory wraps the run function of a hook command. Hook commands report
// failures on stderr and always exit 0 so they never block the host.
func advisory(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := run(cmd, args); err != nil {
			Report(cmd.ErrOrStderr(), err)
		}
		return nil
	}
}

package hooks

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// Environment variables exported to the agent's shell.
const (
	EnvName      = "AGENT_CHAT_NAME"
	EnvSessionID = "AGENT_CHAT_SESSION_ID"
)

// AppendEnvFile appends export lines for name and sessionID to the host's
// session environment file at path.
func AppendEnvFile(path, name, sessionID string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewWriteError("open", path, err)
	}
	content := fmt.Sprintf("export %s=%s\nexport %s=%s\n", EnvName, name, EnvSessionID, sessionID)
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return errors.NewWriteError("append", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewWriteError("close", path, err)
	}
	return nil
}

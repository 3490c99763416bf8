package hooks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Iron-Ham/agent-chat/internal/filelock"
)

type hookOutput struct {
	HookSpecificOutput specificOutput `json:"hookSpecificOutput"`
}

type specificOutput struct {
	Message           string `json:"message,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Deliverer writes hook responses to the host.
type Deliverer struct {
	w io.Writer
}

// NewDeliverer returns a Deliverer writing to w, normally stdout.
func NewDeliverer(w io.Writer) *Deliverer {
	return &Deliverer{w: w}
}

// Warn shows message to the agent without blocking the tool call.
func (d *Deliverer) Warn(message string) error {
	return d.write(specificOutput{Message: message})
}

// AddContext injects text into the agent's context.
func (d *Deliverer) AddContext(text string) error {
	return d.write(specificOutput{AdditionalContext: text})
}

func (d *Deliverer) write(out specificOutput) error {
	data, err := json.Marshal(hookOutput{HookSpecificOutput: out})
	if err != nil {
		return fmt.Errorf("hooks: encode output: %w", err)
	}
	_, err = d.w.Write(data)
	return err
}

// LockWarning renders the warning shown when path is covered by lock.
func LockWarning(path string, lock filelock.Lock) string {
	return fmt.Sprintf("WARNING: %s is locked by %s (pattern: %s). Coordinate before editing.",
		path, lock.Owner, lock.Pattern)
}

// StatusLine renders the Stop hook summary for count unread messages. It
// is empty when there is nothing unread.
func StatusLine(count int) string {
	switch {
	case count <= 0:
		return ""
	case count == 1:
		return "[agent-chat: 1 unread message]"
	default:
		return fmt.Sprintf("[agent-chat: %d unread messages]", count)
	}
}

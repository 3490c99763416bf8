package cmd

import (
	"fmt"
	"io"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// Exit codes of the agent-chat binary.
const (
	ExitFailure = 1
	// ExitRetryable means the command may succeed later unchanged, e.g. a
	// lock held by another session.
	ExitRetryable = 2
)

// Report writes err to w and returns the exit code for it. Errors typed by
// the errors package carry a severity label; anything else, such as flag
// parsing failures, is printed as is.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	label := ""
	if errors.IsUserFacing(err) {
		switch severity := errors.GetSeverity(err); severity {
		case errors.SeverityWarning, errors.SeverityError:
			label = severity.String() + ": "
		}
	}
	_, _ = fmt.Fprintf(w, "agent-chat: %s%v\n", label, err)

	if errors.IsContention(err) {
		_, _ = fmt.Fprintln(w, "agent-chat: the lock frees when its holder unlocks it or its TTL runs out")
	}
	if errors.IsRetryable(err) {
		return ExitRetryable
	}
	return ExitFailure
}

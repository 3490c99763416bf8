package mailbox

import (
	"fmt"
	"strings"
)

// Format renders a message as a single "[author HH:MM]: body" line in local
// time.
func Format(msg Message) string {
	return fmt.Sprintf("[%s %s]: %s", msg.Author, msg.Time().Local().Format("15:04"), msg.Body)
}

// FormatForPrompt renders messages as a block suitable for injection into an
// agent's context, one Format line per message under a header.
//
// Returns an empty string if there are no messages.
func FormatForPrompt(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	noun := "messages"
	if len(messages) == 1 {
		noun = "message"
	}
	fmt.Fprintf(&b, "[agent-chat: %d new %s]\n", len(messages), noun)
	for _, msg := range messages {
		b.WriteString(Format(msg))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

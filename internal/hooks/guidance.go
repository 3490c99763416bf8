package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
)

// Agent instruction files the guidance sections live in.
const (
	GuidanceFile      = "CLAUDE.md"
	CodexGuidanceFile = "AGENTS.md"
)

const (
	startSentinel      = "<!-- agent-chat:start -->"
	endSentinel        = "<!-- agent-chat:end -->"
	codexStartSentinel = "<!-- agent-chat-codex:start -->"
	codexEndSentinel   = "<!-- agent-chat-codex:end -->"
)

// section is a marker-delimited block maintained inside a file that
// otherwise belongs to the user.
type section struct {
	start, end string
	text       string
}

const guidance = startSentinel + `
# Agent Chat

This project uses ` + "`agent-chat`" + ` for inter-agent coordination. You were auto-registered
at session start; your name is in ` + "`$AGENT_CHAT_NAME`" + `.

## Commands

- ` + "`agent-chat read`" + `: check for messages from other agents
- ` + "`agent-chat say <msg>`" + `: post to the shared chatroom
- ` + "`agent-chat lock <glob>`" + `: claim an advisory lock before editing files
- ` + "`agent-chat unlock <glob>`" + `: release it when done
- ` + "`agent-chat locks`" + `: see who has locked what
- ` + "`agent-chat focus set <text>`" + `: tell others what you are working on

## Conventions

- Say what you are working on when you start a task
- Lock files before multi-file edits, unlock when done
- Read messages when the Stop hook tells you there are unread messages
- Keep messages short; other agents pay tokens to read them
` + endSentinel

// Codex has no session hooks, so its guidance asks the agent to register
// and poll by hand.
const codexGuidance = codexStartSentinel + `
## Agent Chat (Codex)

Use ` + "`agent-chat`" + ` for inter-agent coordination in this repo.

### Commands

- ` + "`agent-chat register --session <id>`" + `: create your identity for this Codex session
- ` + "`agent-chat read`" + `: check unread messages from other agents
- ` + "`agent-chat say <msg>`" + `: post short status updates
- ` + "`agent-chat lock <glob>`" + `: advisory lock before editing shared files
- ` + "`agent-chat unlock <glob>`" + `: release the lock right after your edits
- ` + "`agent-chat locks`" + `: inspect active locks
- ` + "`agent-chat focus set <area>`" + `: declare what you are working on
- ` + "`agent-chat focus clear`" + `: clear it when done
- ` + "`agent-chat focus list`" + `: inspect other agents' focus

### Suggested startup

1. Register once per session: ` + "`agent-chat register --session \"$USER-$(date +%s)\"`" + `,
   then pass the same ` + "`--session`" + ` (or export ` + "`AGENT_CHAT_SESSION_ID`" + `) to later commands
2. Run ` + "`agent-chat read`" + `
3. Announce scope: ` + "`agent-chat say \"starting on <task>\"`" + `
4. Lock planned files: ` + "`agent-chat lock \"src/<area>/**\"`" + `
5. Set focus: ` + "`agent-chat focus set <area>`" + `

### While working

- Run ` + "`agent-chat read`" + ` every few tool calls.
- Keep messages short and actionable.
- If you are blocked, say so and move to another task.

### Finishing

1. Unlock files you touched.
2. Clear focus.
3. Announce completion.
4. Run ` + "`agent-chat read`" + ` once more.
` + codexEndSentinel

var (
	claudeSection = section{start: startSentinel, end: endSentinel, text: guidance}
	codexSection  = section{start: codexStartSentinel, end: codexEndSentinel, text: codexGuidance}
)

// InstallGuidance writes or refreshes the agent-chat section of
// dir/CLAUDE.md. An existing section is replaced in place, a file without
// one gets the section appended, and a start marker without an end marker
// is treated as running to the end of the file.
func InstallGuidance(dir string) error {
	return installSection(filepath.Join(dir, GuidanceFile), claudeSection)
}

// InstallCodexGuidance maintains the Codex section of dir/AGENTS.md the
// same way InstallGuidance maintains CLAUDE.md. dir is created if needed.
func InstallCodexGuidance(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("hooks: create %s: %w", dir, err)
	}
	return installSection(filepath.Join(dir, CodexGuidanceFile), codexSection)
}

func installSection(path string, sec section) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hooks: read %s: %w", path, err)
	}
	return atomicfile.WriteFile(path, []byte(sec.merge(string(existing))), 0o644)
}

func (sec section) merge(existing string) string {
	start := strings.Index(existing, sec.start)
	if start < 0 {
		before := strings.TrimRight(existing, " \t\r\n")
		if before == "" {
			return sec.text + "\n"
		}
		return before + "\n\n" + sec.text + "\n"
	}

	before := strings.TrimRight(existing[:start], " \t\r\n")
	after := "\n"
	if end := strings.Index(existing[start:], sec.end); end >= 0 {
		after = existing[start+end+len(sec.end):]
		if after == "" {
			after = "\n"
		}
	}
	if before == "" {
		return sec.text + after
	}
	return before + "\n\n" + sec.text + after
}

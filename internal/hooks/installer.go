package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// Settings file names used by the host.
const (
	ProjectSettingsFile = "settings.local.json"
	UserSettingsFile    = "settings.json"
)

type hookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type hookEntry struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []hookCommand `json:"hooks"`
}

// hookTable returns the hook entries agent-chat installs, keyed by host
// event, for the binary at bin.
func hookTable(bin string) map[string][]hookEntry {
	cmd := func(sub string, timeout int) []hookCommand {
		return []hookCommand{{Type: "command", Command: bin + " " + sub, Timeout: timeout}}
	}
	return map[string][]hookEntry{
		"SessionStart": {
			{Matcher: "startup|resume", Hooks: cmd("register", 10)},
		},
		"Stop": {
			{Hooks: cmd("status", 5)},
		},
		"PreToolUse": {
			{Matcher: "Edit|Write", Hooks: cmd("check-lock", 5)},
			{Matcher: "Bash", Hooks: cmd("check-messages", 5)},
		},
	}
}

// InstallSettings merges the agent-chat hooks and a Bash permission for bin
// into dir/filename, creating both if needed. Unrelated settings are
// preserved, and earlier agent-chat hooks are replaced rather than
// duplicated, including ones installed under a different binary path.
func InstallSettings(dir, filename, bin string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewWriteError("mkdir", dir, err)
	}
	path := filepath.Join(dir, filename)

	settings := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		// A malformed file is replaced rather than blocking installation.
		if json.Unmarshal(data, &settings) != nil || settings == nil {
			settings = map[string]any{}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("hooks: read %s: %w", path, err)
	}

	mergePermission(settings, fmt.Sprintf("Bash(%s *)", bin))
	if err := mergeHooks(settings, hookTable(bin)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("hooks: encode settings: %w", err)
	}
	return atomicfile.WriteFile(path, append(data, '\n'), 0o644)
}

func mergePermission(settings map[string]any, allow string) {
	perms, _ := settings["permissions"].(map[string]any)
	if perms == nil {
		perms = map[string]any{}
	}
	list, _ := perms["allow"].([]any)
	for _, item := range list {
		if item == allow {
			settings["permissions"] = perms
			return
		}
	}
	perms["allow"] = append(list, allow)
	settings["permissions"] = perms
}

func mergeHooks(settings map[string]any, table map[string][]hookEntry) error {
	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}

	for hostEvent, entries := range table {
		existing, _ := hooks[hostEvent].([]any)
		for _, entry := range entries {
			existing = removeMatching(existing, entry)
			generic, err := toGeneric(entry)
			if err != nil {
				return err
			}
			existing = append(existing, generic)
		}
		hooks[hostEvent] = existing
	}
	settings["hooks"] = hooks
	return nil
}

// removeMatching drops existing entries running the same agent-chat
// subcommand as entry.
func removeMatching(existing []any, entry hookEntry) []any {
	kept := existing[:0:0]
	for _, item := range existing {
		if !runsSameCommand(item, entry) {
			kept = append(kept, item)
		}
	}
	return kept
}

func runsSameCommand(item any, entry hookEntry) bool {
	obj, _ := item.(map[string]any)
	list, _ := obj["hooks"].([]any)
	for _, h := range list {
		hm, _ := h.(map[string]any)
		have, _ := hm["command"].(string)
		if have == "" {
			continue
		}
		for _, want := range entry.Hooks {
			if sameSubcommand(have, want.Command) {
				return true
			}
		}
	}
	return false
}

// sameSubcommand compares two hook command lines by their final
// "<binary name> <subcommand>" part, so a bare "agent-chat register" and an
// absolute-path install of the same subcommand match.
func sameSubcommand(a, b string) bool {
	return tail(a) == tail(b)
}

func tail(command string) string {
	fields := strings.Fields(command)
	if len(fields) < 2 {
		return command
	}
	return filepath.Base(fields[len(fields)-2]) + " " + fields[len(fields)-1]
}

func toGeneric(entry hookEntry) (any, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("hooks: encode entry: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("hooks: decode entry: %w", err)
	}
	return out, nil
}

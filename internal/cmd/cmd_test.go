package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/agent-chat/internal/coordination"
	"github.com/Iron-Ham/agent-chat/internal/errors"
	"github.com/Iron-Ham/agent-chat/internal/filelock"
	"github.com/Iron-Ham/agent-chat/internal/hooks"
	"github.com/Iron-Ham/agent-chat/internal/mailbox"
	"github.com/Iron-Ham/agent-chat/internal/session"
	"github.com/Iron-Ham/agent-chat/internal/testutil"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes a fresh command tree against project dir with stdin.
func run(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()
	return runContext(t, context.Background(), dir, stdin, args...)
}

func runContext(t *testing.T, ctx context.Context, dir, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"-C", dir}, args...))
	err := root.ExecuteContext(ctx)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// clearEnv isolates a test from agent-chat variables of the calling shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{hooks.EnvSessionID, hooks.EnvName, envClaudeFile, "AGENT_CHAT_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

// setupProject initializes an agent-chat project without hooks.
func setupProject(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	if r := run(t, dir, "", "init", "--hooks", "none"); r.err != nil {
		t.Fatalf("init failed: %v", r.err)
	}
	return dir
}

// register registers sessionID in dir and returns its friendly name.
func register(t *testing.T, dir, sessionID string) string {
	t.Helper()
	r := run(t, dir, "", "--session", sessionID, "register")
	if r.err != nil || r.stderr != "" {
		t.Fatalf("register %s failed: %v %s", sessionID, r.err, r.stderr)
	}
	r = run(t, dir, "", "--session", sessionID, "whoami", "-o", "json")
	if r.err != nil {
		t.Fatalf("whoami %s failed: %v", sessionID, r.err)
	}
	var id session.Identity
	if err := json.Unmarshal([]byte(r.stdout), &id); err != nil {
		t.Fatalf("whoami output %q: %v", r.stdout, err)
	}
	return id.Name
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	if root.Use != "agent-chat" {
		t.Errorf("root.Use = %q, want %q", root.Use, "agent-chat")
	}

	expectedCmds := []string{
		"init", "register", "whoami", "sessions", "say", "read", "status",
		"lock", "unlock", "locks", "check-lock", "check-messages", "focus", "watch", "tidy",
	}
	cmdMap := make(map[string]bool)
	for _, cmd := range root.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}

	output, err := executeCommand(NewRootCmd(), "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	if !strings.Contains(output, "check-messages") {
		t.Errorf("help output missing subcommands:\n%s", output)
	}
}

func TestInitCommand(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	r := run(t, dir, "", "init")
	if r.err != nil {
		t.Fatalf("init failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "Initialized") {
		t.Errorf("output = %q, want Initialized", r.stdout)
	}

	layout := coordination.NewLayout(filepath.Join(dir, coordination.DirName))
	for _, d := range layout.Dirs() {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", d)
		}
	}
	if _, err := os.Stat(layout.ConfigPath()); err != nil {
		t.Errorf("config.toml not created: %v", err)
	}

	settings, err := os.ReadFile(filepath.Join(dir, ".claude", hooks.ProjectSettingsFile))
	if err != nil {
		t.Fatalf("project settings not written: %v", err)
	}
	if !strings.Contains(string(settings), "agent-chat check-lock") {
		t.Errorf("settings missing check-lock hook:\n%s", settings)
	}
	if _, err := os.Stat(filepath.Join(dir, hooks.GuidanceFile)); err != nil {
		t.Errorf("CLAUDE.md not written: %v", err)
	}

	// Running init again keeps everything working.
	if r := run(t, dir, "", "init"); r.err != nil {
		t.Fatalf("second init failed: %v", r.err)
	}
}

func TestInitCommand_UserHooks(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()

	if r := run(t, dir, "", "init", "--hooks", "user", "--bin", "/opt/bin/agent-chat"); r.err != nil {
		t.Fatalf("init failed: %v", r.err)
	}
	settings, err := os.ReadFile(filepath.Join(home, ".claude", hooks.UserSettingsFile))
	if err != nil {
		t.Fatalf("user settings not written: %v", err)
	}
	if !strings.Contains(string(settings), "/opt/bin/agent-chat register") {
		t.Errorf("settings missing register hook:\n%s", settings)
	}
	if _, err := os.Stat(filepath.Join(dir, ".claude")); !os.IsNotExist(err) {
		t.Error("user install should not write project settings")
	}
}

func TestInitCommand_Codex(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()

	for range 2 {
		r := run(t, dir, "", "init", "--hooks", "none", "--codex", "both")
		if r.err != nil {
			t.Fatalf("init failed: %v", r.err)
		}
		if !strings.Contains(r.stdout, "Installed Codex guidance") {
			t.Errorf("output = %q, want Codex install note", r.stdout)
		}
	}

	for _, agents := range []string{
		filepath.Join(dir, hooks.CodexGuidanceFile),
		filepath.Join(home, ".codex", hooks.CodexGuidanceFile),
	} {
		data, err := os.ReadFile(agents)
		if err != nil {
			t.Fatalf("%s not written: %v", agents, err)
		}
		if n := strings.Count(string(data), "<!-- agent-chat-codex:start -->"); n != 1 {
			t.Errorf("%s has %d Codex sections, want 1", agents, n)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".claude")); !os.IsNotExist(err) {
		t.Error("--hooks none should not write Claude settings")
	}

	r := run(t, dir, "", "init", "--codex", "everywhere")
	if !errors.Is(r.err, errors.ErrInvalidInput) {
		t.Errorf("init --codex everywhere error = %v, want ErrInvalidInput", r.err)
	}
}

func TestInitCommand_GitRepo(t *testing.T) {
	clearEnv(t)
	repo := testutil.SetupTestRepo(t)

	r := run(t, repo, "", "init", "--hooks", "none")
	if r.err != nil {
		t.Fatalf("init failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "Excluded") {
		t.Errorf("output = %q, want exclude note", r.stdout)
	}
	if exclude := testutil.ReadFile(t, repo, ".git/info/exclude"); !strings.Contains(exclude, coordination.DirName+"/") {
		t.Errorf(".git/info/exclude = %q, want %s/", exclude, coordination.DirName)
	}

	// Commands work from a subdirectory of the project.
	testutil.WriteFiles(t, repo, map[string]string{"pkg/api/handler.go": "package api\n"})
	sub := filepath.Join(repo, "pkg", "api")
	register(t, sub, "s1")
	if r := run(t, sub, "", "--session", "s1", "lock", "pkg/api/*.go"); r.err != nil {
		t.Fatalf("lock from subdirectory failed: %v", r.err)
	}
}

func TestInitCommand_InvalidTarget(t *testing.T) {
	clearEnv(t)
	r := run(t, t.TempDir(), "", "init", "--hooks", "everywhere")
	if !errors.Is(r.err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", r.err)
	}
}

func TestCommands_NotInitialized(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	r := run(t, dir, "", "--session", "s1", "say", "hi")
	if !errors.Is(r.err, errors.ErrNotInitialized) {
		t.Errorf("say err = %v, want ErrNotInitialized", r.err)
	}

	// Hook commands report on stderr and succeed.
	r = run(t, dir, `{"session_id":"s1"}`, "register")
	if r.err != nil {
		t.Errorf("register err = %v, want nil", r.err)
	}
	if !strings.Contains(r.stderr, "not initialized") {
		t.Errorf("stderr = %q, want not initialized", r.stderr)
	}
}

func TestRegister_HookPayload(t *testing.T) {
	dir := setupProject(t)
	envFile := filepath.Join(t.TempDir(), "env")
	t.Setenv(envClaudeFile, envFile)

	r := run(t, dir, `{"session_id":"abc-123","source":"startup"}`, "register")
	if r.err != nil || r.stderr != "" {
		t.Fatalf("register failed: %v %s", r.err, r.stderr)
	}
	if !strings.HasPrefix(r.stdout, "You are ") {
		t.Errorf("output = %q, want greeting", r.stdout)
	}
	name := strings.TrimSuffix(strings.Fields(r.stdout)[2], ".")

	again := run(t, dir, `{"session_id":"abc-123"}`, "register")
	if again.stdout != r.stdout {
		t.Errorf("second register = %q, want %q", again.stdout, r.stdout)
	}

	data, err := os.ReadFile(envFile)
	if err != nil {
		t.Fatalf("env file not written: %v", err)
	}
	want := "export AGENT_CHAT_NAME=" + name + "\nexport AGENT_CHAT_SESSION_ID=abc-123\n"
	if !strings.HasPrefix(string(data), want) {
		t.Errorf("env file = %q, want prefix %q", data, want)
	}
}

func TestRegister_PayloadWinsOverEnv(t *testing.T) {
	dir := setupProject(t)
	t.Setenv(hooks.EnvSessionID, "stale")

	if r := run(t, dir, `{"session_id":"fresh"}`, "register"); r.err != nil {
		t.Fatalf("register failed: %v", r.err)
	}
	r := run(t, dir, "", "sessions", "-o", "json")
	if !strings.Contains(r.stdout, `"fresh"`) || strings.Contains(r.stdout, `"stale"`) {
		t.Errorf("sessions = %s, want only fresh", r.stdout)
	}
}

func TestRegister_GeneratesSessionID(t *testing.T) {
	dir := setupProject(t)

	r := run(t, dir, "", "register")
	if r.err != nil || r.stderr != "" {
		t.Fatalf("register failed: %v %s", r.err, r.stderr)
	}
	prefix := "export " + hooks.EnvSessionID + "="
	var id string
	for _, line := range strings.Split(r.stdout, "\n") {
		if strings.HasPrefix(line, prefix) {
			id = strings.TrimPrefix(line, prefix)
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated session id %q is not a UUID: %v", id, err)
	}
}

func TestRegister_InvalidPayload(t *testing.T) {
	dir := setupProject(t)

	r := run(t, dir, `{"tool_name":"Bash"}`, "register")
	if r.err != nil {
		t.Errorf("register err = %v, want nil", r.err)
	}
	if !strings.Contains(r.stderr, "session_id") {
		t.Errorf("stderr = %q, want session_id complaint", r.stderr)
	}
}

func TestIdentityResolution(t *testing.T) {
	dir := setupProject(t)
	alice := register(t, dir, "s1")

	// A single registered session is inferred.
	r := run(t, dir, "", "whoami")
	if r.err != nil || !strings.HasPrefix(r.stdout, alice+" ") {
		t.Errorf("whoami = %q, %v; want %s", r.stdout, r.err, alice)
	}

	bob := register(t, dir, "s2")
	r = run(t, dir, "", "whoami")
	if !errors.Is(r.err, errors.ErrAmbiguousSession) {
		t.Errorf("err = %v, want ErrAmbiguousSession", r.err)
	}

	t.Setenv(hooks.EnvSessionID, "s2")
	if r := run(t, dir, "", "whoami"); !strings.HasPrefix(r.stdout, bob+" ") {
		t.Errorf("whoami with env = %q, want %s", r.stdout, bob)
	}
	if r := run(t, dir, "", "--session", "s1", "whoami"); !strings.HasPrefix(r.stdout, alice+" ") {
		t.Errorf("whoami with flag = %q, want %s", r.stdout, alice)
	}

	t.Setenv(hooks.EnvSessionID, "")
	t.Setenv(hooks.EnvName, alice)
	if r := run(t, dir, "", "whoami"); !strings.HasPrefix(r.stdout, alice+" ") {
		t.Errorf("whoami with name env = %q, want %s", r.stdout, alice)
	}

	r = run(t, dir, "", "--session", "nobody", "whoami")
	if !errors.Is(r.err, errors.ErrUnknownSession) {
		t.Errorf("err = %v, want ErrUnknownSession", r.err)
	}
}

func TestSayAndRead(t *testing.T) {
	dir := setupProject(t)
	alice := register(t, dir, "s1")
	register(t, dir, "s2")

	if r := run(t, dir, "", "--session", "s1", "say", "taking", "the", "auth", "module"); r.err != nil {
		t.Fatalf("say failed: %v", r.err)
	}

	r := run(t, dir, "", "--session", "s2", "read")
	if r.err != nil {
		t.Fatalf("read failed: %v", r.err)
	}
	want := "[" + alice + " "
	if !strings.Contains(r.stdout, want) || !strings.Contains(r.stdout, "]: taking the auth module") {
		t.Errorf("read = %q, want message from %s", r.stdout, alice)
	}

	r = run(t, dir, "", "--session", "s2", "read")
	if !strings.Contains(r.stdout, "No new messages.") {
		t.Errorf("second read = %q, want nothing new", r.stdout)
	}

	r = run(t, dir, "", "--session", "s2", "read", "--all", "-o", "json")
	var msgs []mailbox.Message
	if err := json.Unmarshal([]byte(r.stdout), &msgs); err != nil {
		t.Fatalf("read --all json = %q: %v", r.stdout, err)
	}
	if len(msgs) != 1 || msgs[0].Author != alice || msgs[0].Body != "taking the auth module" {
		t.Errorf("read --all = %+v", msgs)
	}
}

func TestRead_EmptyJSON(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")

	r := run(t, dir, "", "--session", "s1", "read", "-o", "json")
	if r.err != nil {
		t.Fatalf("read failed: %v", r.err)
	}
	if strings.TrimSpace(r.stdout) != "[]" {
		t.Errorf("read = %q, want []", r.stdout)
	}

	r = run(t, dir, "", "--session", "s1", "read", "-o", "xml")
	if !errors.Is(r.err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", r.err)
	}
}

func TestSay_Empty(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")

	r := run(t, dir, "", "--session", "s1", "say", "  ")
	if !errors.Is(r.err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", r.err)
	}
}

func TestStatus(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")
	register(t, dir, "s2")

	if r := run(t, dir, "", "--session", "s2", "status"); r.stdout != "" {
		t.Errorf("status on empty log = %q, want empty", r.stdout)
	}

	run(t, dir, "", "--session", "s1", "say", "one")
	run(t, dir, "", "--session", "s1", "say", "two")

	r := run(t, dir, "", "--session", "s2", "status")
	if strings.TrimSpace(r.stdout) != "[agent-chat: 2 unread messages]" {
		t.Errorf("status = %q", r.stdout)
	}

	run(t, dir, "", "--session", "s2", "read")
	if r := run(t, dir, "", "--session", "s2", "status"); r.stdout != "" {
		t.Errorf("status after read = %q, want empty", r.stdout)
	}

	// Ambiguous identity falls back to counting the whole log.
	if r := run(t, dir, "", "status"); strings.TrimSpace(r.stdout) != "[agent-chat: 2 unread messages]" {
		t.Errorf("status without session = %q", r.stdout)
	}
}

func TestLockCommands(t *testing.T) {
	dir := setupProject(t)
	alice := register(t, dir, "s1")
	register(t, dir, "s2")

	r := run(t, dir, "", "--session", "s1", "lock", "src/auth/**", "--ttl", "10m")
	if r.err != nil {
		t.Fatalf("lock failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "Locked: src/auth/**") {
		t.Errorf("lock output = %q", r.stdout)
	}

	r = run(t, dir, "", "--session", "s2", "lock", "src/auth/**")
	if !errors.Is(r.err, errors.ErrLockConflict) {
		t.Errorf("contended lock err = %v, want ErrLockConflict", r.err)
	}
	if r.err != nil && !strings.Contains(r.err.Error(), alice) {
		t.Errorf("conflict error %q should name %s", r.err, alice)
	}

	r = run(t, dir, "", "locks")
	if !strings.Contains(r.stdout, "PATTERN") || !strings.Contains(r.stdout, alice) {
		t.Errorf("locks = %q", r.stdout)
	}

	r = run(t, dir, "", "locks", "-o", "yaml")
	var locks []filelock.Lock
	if err := yaml.Unmarshal([]byte(r.stdout), &locks); err != nil {
		t.Fatalf("locks yaml = %q: %v", r.stdout, err)
	}
	if len(locks) != 1 || locks[0].Owner != alice || locks[0].TTLSecs != 600 {
		t.Errorf("locks = %+v", locks)
	}

	r = run(t, dir, "", "--session", "s2", "unlock", "src/auth/**")
	if !errors.Is(r.err, errors.ErrLockNotOwned) {
		t.Errorf("foreign unlock err = %v, want ErrLockNotOwned", r.err)
	}
	if r := run(t, dir, "", "--session", "s2", "unlock", "--force", "src/auth/**"); r.err != nil {
		t.Errorf("forced unlock failed: %v", r.err)
	}
	if r := run(t, dir, "", "locks"); !strings.Contains(r.stdout, "No active locks.") {
		t.Errorf("locks after unlock = %q", r.stdout)
	}
}

func TestUnlockAll(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")

	for _, pattern := range []string{"a.go", "b/**"} {
		if r := run(t, dir, "", "--session", "s1", "lock", pattern); r.err != nil {
			t.Fatalf("lock %s failed: %v", pattern, r.err)
		}
	}
	r := run(t, dir, "", "--session", "s1", "unlock", "--all")
	if r.err != nil {
		t.Fatalf("unlock --all failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "2 locks") {
		t.Errorf("output = %q, want 2 locks", r.stdout)
	}

	if r := run(t, dir, "", "--session", "s1", "unlock", "--all", "a.go"); r.err == nil {
		t.Error("unlock --all with a glob should fail")
	}
}

func TestCheckLock(t *testing.T) {
	dir := setupProject(t)
	alice := register(t, dir, "s1")
	register(t, dir, "s2")
	run(t, dir, "", "--session", "s1", "lock", "src/**")

	payload := func(path string) string {
		data, _ := json.Marshal(map[string]any{
			"tool_name":  "Edit",
			"tool_input": map[string]string{"file_path": path},
		})
		return string(data)
	}
	inside := filepath.Join(dir, "src", "auth", "login.go")

	r := run(t, dir, payload(inside), "--session", "s2", "check-lock")
	if r.err != nil || r.stderr != "" {
		t.Fatalf("check-lock failed: %v %s", r.err, r.stderr)
	}
	var out struct {
		HookSpecificOutput struct {
			Message string `json:"message"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal([]byte(r.stdout), &out); err != nil {
		t.Fatalf("check-lock output %q: %v", r.stdout, err)
	}
	want := "WARNING: " + inside + " is locked by " + alice + " (pattern: src/**). Coordinate before editing."
	if out.HookSpecificOutput.Message != want {
		t.Errorf("message = %q, want %q", out.HookSpecificOutput.Message, want)
	}

	tests := []struct {
		name  string
		input string
		args  []string
	}{
		{"own lock", payload(inside), []string{"--session", "s1", "check-lock"}},
		{"unlocked file", payload(filepath.Join(dir, "README.md")), []string{"--session", "s2", "check-lock"}},
		{"outside project", payload("/etc/passwd"), []string{"--session", "s2", "check-lock"}},
		{"no file path", `{"tool_name":"Write","tool_input":{}}`, []string{"--session", "s2", "check-lock"}},
		{"no session", payload(inside), []string{"check-lock"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, dir, tt.input, tt.args...)
			if r.err != nil || r.stdout != "" {
				t.Errorf("check-lock = %q, %v; want silence", r.stdout, r.err)
			}
		})
	}

	t.Run("session from payload", func(t *testing.T) {
		data, _ := json.Marshal(map[string]any{
			"session_id": "s1",
			"tool_name":  "Edit",
			"tool_input": map[string]string{"file_path": inside},
		})
		if r := run(t, dir, string(data), "check-lock"); r.stdout != "" {
			t.Errorf("check-lock = %q, want silence for the holder", r.stdout)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		r := run(t, dir, "{not json", "--session", "s2", "check-lock")
		if r.err != nil || r.stderr == "" {
			t.Errorf("err = %v, stderr = %q; want advisory failure", r.err, r.stderr)
		}
	})
}

func TestCheckMessages(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")
	register(t, dir, "s2")
	run(t, dir, "", "--session", "s1", "say", "please review the parser")

	r := run(t, dir, `{"tool_name":"Bash"}`, "--session", "s2", "check-messages")
	if r.err != nil || r.stderr != "" {
		t.Fatalf("check-messages failed: %v %s", r.err, r.stderr)
	}
	var out struct {
		HookSpecificOutput struct {
			AdditionalContext string `json:"additionalContext"`
		} `json:"hookSpecificOutput"`
	}
	if err := json.Unmarshal([]byte(r.stdout), &out); err != nil {
		t.Fatalf("check-messages output %q: %v", r.stdout, err)
	}
	if !strings.Contains(out.HookSpecificOutput.AdditionalContext, "please review the parser") {
		t.Errorf("additionalContext = %q", out.HookSpecificOutput.AdditionalContext)
	}

	if r := run(t, dir, "", "--session", "s2", "check-messages"); r.stdout != "" {
		t.Errorf("second check-messages = %q, want silence", r.stdout)
	}
	if r := run(t, dir, "", "--session", "s1", "check-messages"); r.stdout != "" {
		t.Errorf("author check-messages = %q, want silence", r.stdout)
	}
	if r := run(t, dir, "", "--session", "ghost", "check-messages"); r.err != nil || r.stdout != "" {
		t.Errorf("unknown session = %q, %v; want silence", r.stdout, r.err)
	}
}

func TestFocusCommands(t *testing.T) {
	dir := setupProject(t)
	alice := register(t, dir, "s1")
	register(t, dir, "s2")

	r := run(t, dir, "", "--session", "s1", "focus", "set", "refactoring", "auth", "middleware")
	if r.err != nil {
		t.Fatalf("focus set failed: %v", r.err)
	}
	if !strings.Contains(r.stdout, "Focus set: refactoring auth middleware") {
		t.Errorf("output = %q", r.stdout)
	}

	r = run(t, dir, "", "--session", "s2", "focus", "set", "auth", "tests")
	if !strings.Contains(r.stdout, "Overlaps with "+alice+":") {
		t.Errorf("output = %q, want overlap with %s", r.stdout, alice)
	}

	r = run(t, dir, "", "focus", "list", "-o", "json")
	var entries []map[string]any
	if err := json.Unmarshal([]byte(r.stdout), &entries); err != nil {
		t.Fatalf("focus list json = %q: %v", r.stdout, err)
	}
	if len(entries) != 2 {
		t.Errorf("focus list = %d entries, want 2", len(entries))
	}

	r = run(t, dir, "", "sessions")
	if !strings.Contains(r.stdout, "refactoring auth middleware") {
		t.Errorf("sessions = %q, want focus column", r.stdout)
	}

	if r := run(t, dir, "", "--session", "s1", "focus", "clear"); r.err != nil {
		t.Fatalf("focus clear failed: %v", r.err)
	}
	r = run(t, dir, "", "focus", "list")
	if strings.Contains(r.stdout, "refactoring") || !strings.Contains(r.stdout, "auth tests") {
		t.Errorf("focus list after clear = %q", r.stdout)
	}
}

func TestWatchPlain(t *testing.T) {
	dir := setupProject(t)
	register(t, dir, "s1")
	for _, body := range []string{"first", "second", "third"} {
		if r := run(t, dir, "", "--session", "s1", "say", body); r.err != nil {
			t.Fatalf("say failed: %v", r.err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	r := runContext(t, ctx, dir, "", "watch", "--plain", "--last", "2")
	if r.err != nil {
		t.Fatalf("watch failed: %v", r.err)
	}
	if strings.Contains(r.stdout, "first") {
		t.Errorf("watch = %q, should start after the first message", r.stdout)
	}
	if !strings.Contains(r.stdout, "second") || !strings.Contains(r.stdout, "third") {
		t.Errorf("watch = %q, want the last two messages", r.stdout)
	}
}

func TestWatchStart(t *testing.T) {
	log := mailbox.New(t.TempDir())
	var keys []int64
	for _, body := range []string{"a", "b", "c"} {
		msg, err := log.Append("x", body)
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		keys = append(keys, msg.ID)
	}

	tests := []struct {
		name string
		n    int
		all  bool
		want int64
	}{
		{"all", 5, true, -1},
		{"none", 0, false, keys[2]},
		{"last two", 2, false, keys[0]},
		{"more than exist", 10, false, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := watchStart(log, tt.n, tt.all)
			if err != nil {
				t.Fatalf("watchStart() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("watchStart() = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := watchStart(log, -1, false); err == nil {
		t.Error("watchStart(-1) should fail")
	}
}

func TestTidy(t *testing.T) {
	dir := setupProject(t)
	stray := filepath.Join(dir, coordination.DirName, "log", ".tmp-stray")
	if err := os.WriteFile(stray, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(stray, old, old); err != nil {
		t.Fatal(err)
	}

	r := run(t, dir, "", "tidy", "-o", "json")
	if r.err != nil {
		t.Fatalf("tidy failed: %v", r.err)
	}
	var report coordination.TidyReport
	if err := json.Unmarshal([]byte(r.stdout), &report); err != nil {
		t.Fatalf("tidy output %q: %v", r.stdout, err)
	}
	if report.TempFiles != 1 {
		t.Errorf("TempFiles = %d, want 1", report.TempFiles)
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Error("orphan temp file should be removed")
	}
}

func TestWriteStructured(t *testing.T) {
	v := session.Identity{SessionID: "s1", Name: "calm-owl"}

	var buf bytes.Buffer
	if err := writeStructured(&buf, formatYAML, v); err != nil {
		t.Fatalf("writeStructured(yaml) error = %v", err)
	}
	if buf.String() != "session_id: s1\nname: calm-owl\n" {
		t.Errorf("yaml = %q", buf.String())
	}

	buf.Reset()
	if err := writeStructured(&buf, formatJSON, v); err != nil {
		t.Fatalf("writeStructured(json) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "calm-owl"`) {
		t.Errorf("json = %q", buf.String())
	}

	if err := writeStructured(&buf, formatText, v); err == nil {
		t.Error("writeStructured(text) should fail")
	}
}

func TestPrinterTable(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	if p.color {
		t.Fatal("a buffer is not a terminal")
	}
	p.table([]int{6, 4}, []string{"A", "B", "C"}, [][]string{{"long-cell", "x", "tail"}})

	want := "A      B    C\nlong-cell x    tail\n"
	if buf.String() != want {
		t.Errorf("table = %q, want %q", buf.String(), want)
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		want     []string
	}{
		{
			name:     "lock conflict",
			err:      fmt.Errorf("lock: %w", errors.NewLockConflictError("src/*.go", "calm-owl")),
			wantCode: ExitRetryable,
			want:     []string{"agent-chat: lock: Lock conflict: src/*.go is locked by calm-owl\n", "its TTL runs out"},
		},
		{
			name:     "not initialized",
			err:      errors.ErrNotInitialized,
			wantCode: ExitFailure,
			want:     []string{"agent-chat: error: not initialized"},
		},
		{
			name:     "validation",
			err:      errors.NewValidationError("hooks", "x", "must be one of project, user, both, none"),
			wantCode: ExitFailure,
			want:     []string{"agent-chat: warning: hooks: must be one of"},
		},
		{
			name:     "untyped",
			err:      fmt.Errorf("unknown flag: --nope"),
			wantCode: ExitFailure,
			want:     []string{"agent-chat: unknown flag: --nope\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := Report(&buf, tt.err); code != tt.wantCode {
				t.Errorf("Report() = %d, want %d", code, tt.wantCode)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output = %q, want it to contain %q", buf.String(), w)
				}
			}
		})
	}
}

func TestLockConflictExitCode(t *testing.T) {
	clearEnv(t)
	dir := setupProject(t)
	register(t, dir, "s1")
	register(t, dir, "s2")

	if r := run(t, dir, "", "--session", "s1", "lock", "src/*.go"); r.err != nil {
		t.Fatalf("lock s1 failed: %v", r.err)
	}
	r := run(t, dir, "", "--session", "s2", "lock", "src/*.go")
	if !errors.IsContention(r.err) {
		t.Fatalf("lock s2 error = %v, want contention", r.err)
	}
	var buf bytes.Buffer
	if code := Report(&buf, r.err); code != ExitRetryable {
		t.Errorf("Report() = %d, want %d", code, ExitRetryable)
	}
}

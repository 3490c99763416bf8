package coordination

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/agent-chat/internal/config"
	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// DirName is the name of the coordination directory in a project.
const DirName = ".agent-chat"

// Layout names the paths inside a coordination directory.
type Layout struct {
	// Root is the coordination directory itself, <project>/.agent-chat.
	Root string
}

// NewLayout returns the Layout for the coordination directory root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// ProjectRoot returns the directory that contains the coordination
// directory. Lock patterns are relative to it.
func (l Layout) ProjectRoot() string { return filepath.Dir(l.Root) }

// LogDir returns the message log directory.
func (l Layout) LogDir() string { return filepath.Join(l.Root, "log") }

// LocksDir returns the lock record directory.
func (l Layout) LocksDir() string { return filepath.Join(l.Root, "locks") }

// CursorsDir returns the cursor directory.
func (l Layout) CursorsDir() string { return filepath.Join(l.Root, "cursors") }

// SessionsDir returns the session mapping directory.
func (l Layout) SessionsDir() string { return filepath.Join(l.Root, "sessions") }

// FocusDir returns the focus board directory.
func (l Layout) FocusDir() string { return filepath.Join(l.Root, "focus") }

// ConfigPath returns the path of config.toml.
func (l Layout) ConfigPath() string { return filepath.Join(l.Root, config.FileName) }

// Dirs returns every store directory, in creation order.
func (l Layout) Dirs() []string {
	return []string{l.LogDir(), l.LocksDir(), l.CursorsDir(), l.SessionsDir(), l.FocusDir()}
}

// FindRoot walks up from start to the nearest directory containing a
// coordination directory. It fails with errors.ErrNotInitialized when none
// exists.
func FindRoot(start string) (Layout, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return Layout{}, fmt.Errorf("coordination: resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return NewLayout(candidate), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Layout{}, errors.ErrNotInitialized
		}
		dir = parent
	}
}

// InitResult describes what Init changed.
type InitResult struct {
	Layout Layout
	// ConfigCreated is false when config.toml already existed.
	ConfigCreated bool
	// GitExcludeAdded is true when DirName was appended to .git/info/exclude.
	GitExcludeAdded bool
}

// Init creates the coordination directory under projectRoot with every
// store directory and a default config.toml. It is safe to run again; an
// existing config is left untouched. When projectRoot is a git work tree
// the coordination directory is added to .git/info/exclude.
func Init(projectRoot string) (InitResult, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return InitResult{}, fmt.Errorf("coordination: resolve %s: %w", projectRoot, err)
	}
	layout := NewLayout(filepath.Join(abs, DirName))

	for _, dir := range layout.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return InitResult{}, errors.NewWriteError("mkdir", dir, err)
		}
	}

	created, err := config.WriteDefault(layout.ConfigPath())
	if err != nil {
		return InitResult{}, err
	}

	added, err := AddGitExclude(abs, DirName+"/")
	if err != nil {
		return InitResult{}, err
	}

	return InitResult{Layout: layout, ConfigCreated: created, GitExcludeAdded: added}, nil
}

// AddGitExclude appends entry to projectRoot/.git/info/exclude unless it is
// already listed. It does nothing when projectRoot has no .git directory,
// including linked worktrees where .git is a file.
func AddGitExclude(projectRoot, entry string) (bool, error) {
	gitDir := filepath.Join(projectRoot, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return false, nil
	}

	excludePath := filepath.Join(gitDir, "info", "exclude")
	present, err := hasLine(excludePath, entry)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return false, errors.NewWriteError("mkdir", filepath.Dir(excludePath), err)
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, errors.NewWriteError("open", excludePath, err)
	}
	defer func() { _ = f.Close() }()

	line := entry + "\n"
	if st, err := f.Stat(); err == nil && st.Size() > 0 && !endsWithNewline(excludePath) {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		return false, errors.NewWriteError("append", excludePath, err)
	}
	return true, nil
}

func hasLine(path, want string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("coordination: read %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == want {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func endsWithNewline(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return true
	}
	return data[len(data)-1] == '\n'
}

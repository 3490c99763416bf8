// Package testutil provides testing utilities for agent-chat tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// SkipIfNoGit skips the test when git is not installed.
func SkipIfNoGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH, skipping test")
	}
}

// SetupTestRepo creates an empty git repository in a temporary directory
// and returns its path. The test is skipped when git is not installed.
func SetupTestRepo(t *testing.T) string {
	t.Helper()
	SkipIfNoGit(t)

	dir := t.TempDir()
	if out, err := exec.Command("git", "-C", dir, "init", "--quiet").CombinedOutput(); err != nil {
		t.Fatalf("failed to init git repo: %v\n%s", err, out)
	}
	return dir
}

// WriteFiles creates files under dir. The map holds slash-separated
// relative paths and their contents.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write file %s: %v", path, err)
		}
	}
}

// ReadFile returns the content of dir/path, failing the test on error.
func ReadFile(t *testing.T, dir, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

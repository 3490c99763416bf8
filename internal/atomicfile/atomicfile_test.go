package atomicfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

func countTemps(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	n := 0
	for _, e := range entries {
		if IsTemp(e.Name()) {
			n++
		}
	}
	return n
}

func TestWriteFile(t *testing.T) {
	t.Run("creates new file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.json")

		if err := WriteFile(path, []byte("hello"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := readFile(t, path); got != "hello" {
			t.Errorf("content = %q, want %q", got, "hello")
		}
		if n := countTemps(t, dir); n != 0 {
			t.Errorf("temp files left behind = %d, want 0", n)
		}
	})

	t.Run("replaces existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.json")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := WriteFile(path, []byte("new"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := readFile(t, path); got != "new" {
			t.Errorf("content = %q, want %q", got, "new")
		}
	})

	t.Run("missing directory is a write failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "a.json")

		err := WriteFile(path, []byte("x"), 0o644)
		if !errors.Is(err, errors.ErrWriteFailure) {
			t.Fatalf("WriteFile() error = %v, want ErrWriteFailure", err)
		}
	})

	t.Run("rename onto directory leaves no temp", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "occupied")
		if err := os.Mkdir(target, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(target, "child"), nil, 0o644); err != nil {
			t.Fatal(err)
		}

		err := WriteFile(target, []byte("x"), 0o644)
		if !errors.Is(err, errors.ErrWriteFailure) {
			t.Fatalf("WriteFile() error = %v, want ErrWriteFailure", err)
		}
		var werr *errors.WriteError
		if !errors.As(err, &werr) || werr.Op != "rename" {
			t.Errorf("expected WriteError with op rename, got %v", err)
		}
		if n := countTemps(t, dir); n != 0 {
			t.Errorf("temp files left behind = %d, want 0", n)
		}
	})
}

func TestCreateExclusive(t *testing.T) {
	t.Run("creates when absent", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "lock")

		if err := CreateExclusive(path, []byte("first"), 0o644); err != nil {
			t.Fatalf("CreateExclusive() error = %v", err)
		}
		if got := readFile(t, path); got != "first" {
			t.Errorf("content = %q, want %q", got, "first")
		}
		if n := countTemps(t, dir); n != 0 {
			t.Errorf("temp files left behind = %d, want 0", n)
		}
	})

	t.Run("never overwrites", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "lock")
		if err := CreateExclusive(path, []byte("first"), 0o644); err != nil {
			t.Fatal(err)
		}

		err := CreateExclusive(path, []byte("second"), 0o644)
		if !errors.Is(err, fs.ErrExist) {
			t.Fatalf("CreateExclusive() error = %v, want fs.ErrExist", err)
		}
		if errors.Is(err, errors.ErrWriteFailure) {
			t.Error("existing target should not be reported as a write failure")
		}
		if got := readFile(t, path); got != "first" {
			t.Errorf("content = %q, want %q", got, "first")
		}
		if n := countTemps(t, dir); n != 0 {
			t.Errorf("temp files left behind = %d, want 0", n)
		}
	})

	t.Run("exactly one concurrent winner", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "slot")

		const workers = 10
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := CreateExclusive(path, []byte{byte('a' + i)}, 0o644)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, fs.ErrExist):
				default:
					t.Errorf("worker %d: unexpected error %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Errorf("winners = %d, want 1", got)
		}
		if got := readFile(t, path); len(got) != 1 {
			t.Errorf("content = %q, want a single writer's byte", got)
		}
	})
}

func TestIsTemp(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".tmp-12345", true},
		{TempPrefix + "tomb-abc", true},
		{"0000000000000000001.msg", false},
		{"tmp-file", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTemp(tt.name); got != tt.want {
				t.Errorf("IsTemp(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestTempName(t *testing.T) {
	got := TempName(filepath.Join("a", "b", "x.lock"), "tomb-1")
	want := filepath.Join("a", "b", TempPrefix+"tomb-1")
	if got != want {
		t.Errorf("TempName() = %q, want %q", got, want)
	}
	if !IsTemp(filepath.Base(got)) {
		t.Error("TempName result should be recognized by IsTemp")
	}
}

func TestSweepTemps(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, TempPrefix+"old")
	fresh := filepath.Join(dir, TempPrefix+"fresh")
	keep := filepath.Join(dir, "real.msg")
	for _, p := range []string{old, fresh, keep} {
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(keep, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := SweepTemps(dir, time.Minute)
	if err != nil {
		t.Fatalf("SweepTemps() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old temp should be removed")
	}
	for _, p := range []string{fresh, keep} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should survive: %v", filepath.Base(p), err)
		}
	}
}

func TestSweepTemps_MissingDir(t *testing.T) {
	removed, err := SweepTemps(filepath.Join(t.TempDir(), "nope"), 0)
	if err != nil || removed != 0 {
		t.Errorf("SweepTemps(missing) = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestIsPlainName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"session-123", true},
		{"8f14e45f-ceea-467f-a0e6-d1b2c3a4b5c6", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"nul\x00byte", false},
		{TempPrefix + "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlainName(tt.name); got != tt.want {
				t.Errorf("IsPlainName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

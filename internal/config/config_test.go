package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LockTTLSecs != 300 {
		t.Errorf("LockTTLSecs = %d, want 300", cfg.LockTTLSecs)
	}
	if cfg.FocusTTLSecs != 1800 {
		t.Errorf("FocusTTLSecs = %d, want 1800", cfg.FocusTTLSecs)
	}
	if cfg.FirstReadCount != 5 {
		t.Errorf("FirstReadCount = %d, want 5", cfg.FirstReadCount)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.LockTTL() != 5*time.Minute {
		t.Errorf("LockTTL() = %v, want 5m", cfg.LockTTL())
	}
	if cfg.FocusTTL() != 30*time.Minute {
		t.Errorf("FocusTTL() = %v, want 30m", cfg.FocusTTL())
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should validate, got %v", errs)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LockTTLSecs != 300 || cfg.FirstReadCount != 5 {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := "lock_ttl_secs = 60\n\n[logging]\nlevel = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LockTTLSecs != 60 {
		t.Errorf("LockTTLSecs = %d, want 60", cfg.LockTTLSecs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.FocusTTLSecs != 1800 {
		t.Errorf("FocusTTLSecs = %d, want default 1800", cfg.FocusTTLSecs)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGENT_CHAT_LOCK_TTL_SECS", "42")
	t.Setenv("AGENT_CHAT_LOGGING_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LockTTLSecs != 42 {
		t.Errorf("LockTTLSecs = %d, want 42", cfg.LockTTLSecs)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"zero ttl", "lock_ttl_secs = 0\n", "lock_ttl_secs"},
		{"negative first read", "first_read_count = -1\n", "first_read_count"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(path)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Load() error = %v, want ValidationErrors", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tt.field {
				t.Errorf("validation errors = %v, want one for %s", verrs, tt.field)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("lock_ttl_secs = = 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	written, err := WriteDefault(path)
	if err != nil || !written {
		t.Fatalf("WriteDefault() = (%v, %v), want (true, nil)", written, err)
	}
	if !Exists(path) {
		t.Fatal("config file should exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "lock_ttl_secs = 300") {
		t.Errorf("written config missing lock_ttl_secs:\n%s", data)
	}
	var decoded Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written config is not valid TOML: %v", err)
	}
	if decoded != *Default() {
		t.Errorf("decoded = %+v, want %+v", decoded, *Default())
	}

	if err := os.WriteFile(path, []byte("lock_ttl_secs = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	written, err = WriteDefault(path)
	if err != nil || written {
		t.Fatalf("WriteDefault() on existing = (%v, %v), want (false, nil)", written, err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LockTTLSecs != 10 {
		t.Errorf("existing config overwritten, LockTTLSecs = %d", cfg.LockTTLSecs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := errs.Error()
	if !strings.HasPrefix(msg, "2 validation errors:") {
		t.Errorf("Error() = %q", msg)
	}
	if ValidationErrors(nil).Error() != "" {
		t.Error("empty ValidationErrors should format as empty string")
	}
	if got := errs[:1].Error(); got != "a: bad (got: 1)" {
		t.Errorf("single Error() = %q", got)
	}
}

package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// maxPayloadBytes bounds how much of stdin a hook reads.
const maxPayloadBytes = 4 << 20

// SessionStartInput is the SessionStart hook payload.
type SessionStartInput struct {
	SessionID   string `json:"session_id"`
	SessionType string `json:"session_type,omitempty"`
}

// PreToolUseInput is the PreToolUse hook payload.
type PreToolUseInput struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	SessionID string          `json:"session_id,omitempty"`
}

// FilePath returns tool_input.file_path, or "" when the tool input has none.
func (p PreToolUseInput) FilePath() string {
	var input struct {
		FilePath string `json:"file_path"`
	}
	if len(p.ToolInput) == 0 || json.Unmarshal(p.ToolInput, &input) != nil {
		return ""
	}
	return input.FilePath
}

// ReadSessionStart decodes a SessionStart payload from r.
func ReadSessionStart(r io.Reader) (SessionStartInput, error) {
	var in SessionStartInput
	if err := decode(r, &in); err != nil {
		return SessionStartInput{}, err
	}
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return SessionStartInput{}, errors.NewValidationError("session_id", "", "missing from hook payload")
	}
	return in, nil
}

// ReadPreToolUse decodes a PreToolUse payload from r.
func ReadPreToolUse(r io.Reader) (PreToolUseInput, error) {
	var in PreToolUseInput
	if err := decode(r, &in); err != nil {
		return PreToolUseInput{}, err
	}
	return in, nil
}

func decode(r io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes))
	if err != nil {
		return fmt.Errorf("hooks: read payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("hooks: decode payload: %w", err)
	}
	return nil
}

// RelativePath expresses filePath relative to projectRoot with forward
// slashes, the form lock patterns are matched against. Relative inputs
// are taken as already relative to projectRoot. ok is false when filePath
// lies outside projectRoot, even after resolving symlinks on both sides.
func RelativePath(projectRoot, filePath string) (rel string, ok bool) {
	if filePath == "" {
		return "", false
	}
	if !filepath.IsAbs(filePath) {
		return within(filepath.Clean(filePath))
	}
	if rel, ok := relTo(projectRoot, filePath); ok {
		return rel, true
	}

	root, err := filepath.EvalSymlinks(projectRoot)
	if err != nil {
		return "", false
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(filePath))
	if err != nil {
		return "", false
	}
	return relTo(root, filepath.Join(dir, filepath.Base(filePath)))
}

func relTo(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	return within(rel)
}

func within(rel string) (string, bool) {
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

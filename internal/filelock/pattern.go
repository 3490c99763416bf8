package filelock

import (
	"fmt"
	"hash/fnv"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// slotExt is the suffix of every lock slot file.
const slotExt = ".lock"

// SlotName returns the file name of the slot for pattern: the FNV-1a 64-bit
// hash of the pattern in hex. The same pattern always maps to the same slot.
func SlotName(pattern string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(pattern))
	return fmt.Sprintf("%016x%s", h.Sum64(), slotExt)
}

// ValidatePattern reports an error wrapping errors.ErrInvalidPattern if
// pattern is empty or is not a valid glob.
//
// Supported syntax: * and ? within a path segment, ** across segments,
// [abc] and [a-z] classes, and {a,b} alternatives.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.NewPatternError(pattern, fmt.Errorf("empty pattern"))
	}
	if !doublestar.ValidatePattern(pattern) {
		return errors.NewPatternError(pattern, doublestar.ErrBadPattern)
	}
	return nil
}

// Match reports whether the project-relative path matches pattern.
func Match(pattern, relPath string) (bool, error) {
	ok, err := doublestar.Match(pattern, NormalizePath(relPath))
	if err != nil {
		return false, errors.NewPatternError(pattern, err)
	}
	return ok, nil
}

// NormalizePath converts a project-relative path to the slash-separated,
// cleaned form that patterns are matched against.
func NormalizePath(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

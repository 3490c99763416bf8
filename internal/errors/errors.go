// Package errors provides the error taxonomy shared by every agent-chat
// package. It defines sentinel errors for each failure class, typed errors
// that carry context and unwrap to those sentinels, and classification
// helpers used by the command layer to decide how to report a failure.
//
// # Failure Classes
//
//   - ErrWriteFailure: an atomic write or rename could not complete
//   - ErrNotFound: a lookup that requires presence found nothing
//   - ErrAmbiguousSession: identity inference found several sessions
//   - ErrUnknownSession: a session id has no registered name
//   - ErrInvalidPattern: a glob pattern failed to compile
//   - ErrLockNotOwned: release by a non-owner without force
//   - ErrLockConflict: a live lock is held by another session
//   - ErrSlotCollision: another pattern occupies the lock slot
//
// # Usage
//
//	err := errors.NewWriteError("rename", path, cause)
//	if errors.Is(err, errors.ErrWriteFailure) { ... }
//
//	var conflict *errors.LockConflictError
//	if errors.As(err, &conflict) {
//	    fmt.Println(conflict.Owner)
//	}
//
// Nothing in the core retries on its own. [IsRetryable] exists so that a
// calling layer can decide for itself.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityInfo is for conditions that are expected in normal operation,
	// such as losing an advisory lock race.
	SeverityInfo Severity = iota
	// SeverityWarning is for conditions the caller should see but that leave
	// no damaged state behind.
	SeverityWarning
	// SeverityError is for real failures.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Storage sentinel errors
var (
	// ErrWriteFailure indicates that an atomic write could not complete.
	// The target path is left untouched.
	ErrWriteFailure = New("write failed")
	// ErrNotFound indicates that a lookup requiring presence found nothing.
	ErrNotFound = New("not found")
	// ErrNotInitialized indicates that no .agent-chat directory was found.
	ErrNotInitialized = New("not initialized, run 'agent-chat init'")
)

// Session sentinel errors
var (
	// ErrAmbiguousSession indicates that identity inference found more than
	// one registered session.
	ErrAmbiguousSession = New("ambiguous session")
	// ErrUnknownSession indicates that a session id is not registered.
	ErrUnknownSession = New("unknown session")
	// ErrInvalidName indicates a session id or name that cannot be used as a
	// file name.
	ErrInvalidName = New("invalid name")
)

// Lock sentinel errors
var (
	// ErrInvalidPattern indicates a glob pattern that fails to compile.
	ErrInvalidPattern = New("invalid pattern")
	// ErrLockNotOwned indicates a release attempted by a non-owner without force.
	ErrLockNotOwned = New("lock not owned")
	// ErrLockConflict indicates that a live lock is held by another session.
	ErrLockConflict = New("lock conflict")
	// ErrSlotCollision indicates that two different patterns hash to the
	// same lock slot and the other one holds it.
	ErrSlotCollision = New("lock slot collision")
)

// ErrInvalidInput indicates that input validation failed.
var ErrInvalidInput = New("invalid input")

// -----------------------------------------------------------------------------
// Base Error
// -----------------------------------------------------------------------------

// AgentChatError is implemented by every typed error in this package.
type AgentChatError interface {
	error
	Unwrap() []error
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	sentinel   error
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Unwrap returns both the sentinel and the underlying cause so that
// errors.Is matches either.
func (e *baseError) Unwrap() []error {
	errs := []error{e.sentinel}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Severity returns the severity level of the error.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns true if the operation may succeed on retry.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns true if the message is safe to display as-is.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

func (e *baseError) causeSuffix() string {
	return suffix(e.cause)
}

func suffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

// -----------------------------------------------------------------------------
// Typed Errors
// -----------------------------------------------------------------------------

// WriteError reports a failed atomic write.
//
// Example:
//
//	err := errors.NewWriteError("rename", "/p/.agent-chat/log/1.msg", cause)
//	fmt.Println(err) // "write failed [op=rename, path=/p/.agent-chat/log/1.msg]: <cause>"
type WriteError struct {
	baseError
	Op   string
	Path string
}

// NewWriteError creates a WriteError wrapping ErrWriteFailure.
func NewWriteError(op, path string, cause error) *WriteError {
	return &WriteError{
		baseError: baseError{
			sentinel:   ErrWriteFailure,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// Error returns the formatted error message.
func (e *WriteError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}
	prefix := ErrWriteFailure.Error()
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	return prefix + e.causeSuffix()
}

// LockConflictError reports that a pattern is held by another session.
type LockConflictError struct {
	baseError
	Pattern string
	Owner   string
}

// NewLockConflictError creates a LockConflictError wrapping ErrLockConflict.
// Contention is retryable: the holder may release or the lock may expire.
func NewLockConflictError(pattern, owner string) *LockConflictError {
	return &LockConflictError{
		baseError: baseError{
			sentinel:   ErrLockConflict,
			severity:   SeverityInfo,
			retryable:  true,
			userFacing: true,
		},
		Pattern: pattern,
		Owner:   owner,
	}
}

// Error returns the formatted error message.
func (e *LockConflictError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("Lock conflict: %s was taken concurrently", e.Pattern)
	}
	return fmt.Sprintf("Lock conflict: %s is locked by %s", e.Pattern, e.Owner)
}

// LockNotOwnedError reports a release attempted by someone other than the
// holder.
type LockNotOwnedError struct {
	baseError
	Pattern string
	Owner   string
}

// NewLockNotOwnedError creates a LockNotOwnedError wrapping ErrLockNotOwned.
func NewLockNotOwnedError(pattern, owner string) *LockNotOwnedError {
	return &LockNotOwnedError{
		baseError: baseError{
			sentinel:   ErrLockNotOwned,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Pattern: pattern,
		Owner:   owner,
	}
}

// Error returns the formatted error message.
func (e *LockNotOwnedError) Error() string {
	return fmt.Sprintf("%s: %s is held by %s", ErrLockNotOwned, e.Pattern, e.Owner)
}

// PatternError reports a glob pattern that failed to compile.
type PatternError struct {
	baseError
	Pattern string
}

// NewPatternError creates a PatternError wrapping ErrInvalidPattern.
func NewPatternError(pattern string, cause error) *PatternError {
	return &PatternError{
		baseError: baseError{
			sentinel:   ErrInvalidPattern,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Pattern: pattern,
	}
}

// Error returns the formatted error message.
func (e *PatternError) Error() string {
	return fmt.Sprintf("%s %q%s", ErrInvalidPattern, e.Pattern, e.causeSuffix())
}

// SlotCollisionError reports that pattern shares its lock slot with the
// live record for Existing.
type SlotCollisionError struct {
	baseError
	Pattern  string
	Existing string
}

// NewSlotCollisionError creates a SlotCollisionError wrapping
// ErrSlotCollision.
func NewSlotCollisionError(pattern, existing string) *SlotCollisionError {
	return &SlotCollisionError{
		baseError: baseError{
			sentinel:   ErrSlotCollision,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Pattern:  pattern,
		Existing: existing,
	}
}

// Error returns the formatted error message.
func (e *SlotCollisionError) Error() string {
	return fmt.Sprintf("%s: %q shares a slot with %q; lock a different pattern", ErrSlotCollision, e.Pattern, e.Existing)
}

// SessionError reports an identity that could not be resolved. Its
// sentinel is either ErrUnknownSession or ErrAmbiguousSession.
type SessionError struct {
	baseError
	SessionID  string
	Candidates int
}

// NewUnknownSessionError creates a SessionError wrapping ErrUnknownSession.
func NewUnknownSessionError(sessionID string) *SessionError {
	return &SessionError{
		baseError: baseError{
			sentinel:   ErrUnknownSession,
			severity:   SeverityWarning,
			userFacing: true,
		},
		SessionID: sessionID,
	}
}

// NewAmbiguousSessionError creates a SessionError wrapping ErrAmbiguousSession.
func NewAmbiguousSessionError(candidates int) *SessionError {
	return &SessionError{
		baseError: baseError{
			sentinel:   ErrAmbiguousSession,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Candidates: candidates,
	}
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	switch {
	case e.SessionID != "":
		return fmt.Sprintf("%s [session=%s]", e.sentinel, e.SessionID)
	case e.Candidates > 1:
		return fmt.Sprintf("%s: %d sessions registered, set AGENT_CHAT_SESSION_ID", e.sentinel, e.Candidates)
	default:
		return fmt.Sprintf("%s: no session registered, set AGENT_CHAT_SESSION_ID", e.sentinel)
	}
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a NotFoundError wrapping ErrNotFound.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			sentinel:   ErrNotFound,
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause attaches an underlying cause.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s%s", e.ResourceType, e.ResourceID, e.causeSuffix())
}

// ValidationError reports invalid caller input.
type ValidationError struct {
	baseError
	Field   string
	Value   any
	Message string
}

// NewValidationError creates a ValidationError. Errors about names that
// cannot be used as file names wrap ErrInvalidName; all others wrap
// ErrInvalidInput.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			sentinel:   ErrInvalidInput,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewInvalidNameError creates a ValidationError wrapping ErrInvalidName.
func NewInvalidNameError(field, value string) *ValidationError {
	e := NewValidationError(field, value, "must be a non-empty single path element")
	e.sentinel = ErrInvalidName
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if a calling layer may reasonably retry the
// operation, e.g. after lock contention.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var c AgentChatError
	if As(err, &c) {
		return c.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display as-is.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var c AgentChatError
	if As(err, &c) {
		return c.IsUserFacing()
	}
	return Is(err, ErrNotInitialized)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that are not typed by this package.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}
	var c AgentChatError
	if As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}

// IsContention reports whether err means another session holds the lock.
func IsContention(err error) bool {
	return Is(err, ErrLockConflict)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

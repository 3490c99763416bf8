package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the "category.action" identifier of the event.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeMessageAppended   = "mailbox.appended"
	TypeLockAcquired      = "filelock.acquired"
	TypeLockReleased      = "filelock.released"
	TypeLockReclaimed     = "filelock.reclaimed"
	TypeSessionRegistered = "session.registered"
	TypeFocusChanged      = "focus.changed"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessageAppendedEvent is emitted after a message is published to the log.
type MessageAppendedEvent struct {
	baseEvent
	ID     int64 // Ordering key (nanosecond timestamp)
	Author string
	Body   string
}

// NewMessageAppendedEvent creates a MessageAppendedEvent.
func NewMessageAppendedEvent(id int64, author, body string) MessageAppendedEvent {
	return MessageAppendedEvent{
		baseEvent: newBaseEvent(TypeMessageAppended),
		ID:        id,
		Author:    author,
		Body:      body,
	}
}

// -----------------------------------------------------------------------------
// Lock Events
// -----------------------------------------------------------------------------

// LockAcquiredEvent is emitted when a lock record is created or refreshed.
type LockAcquiredEvent struct {
	baseEvent
	Pattern   string
	Owner     string
	SessionID string
	Refreshed bool // True when the holder re-acquired its own live lock
}

// NewLockAcquiredEvent creates a LockAcquiredEvent.
func NewLockAcquiredEvent(pattern, owner, sessionID string, refreshed bool) LockAcquiredEvent {
	return LockAcquiredEvent{
		baseEvent: newBaseEvent(TypeLockAcquired),
		Pattern:   pattern,
		Owner:     owner,
		SessionID: sessionID,
		Refreshed: refreshed,
	}
}

// LockReleasedEvent is emitted when a lock record is removed.
type LockReleasedEvent struct {
	baseEvent
	Pattern string
	Owner   string // Holder of the removed record
	Forced  bool   // True when removed by someone other than the holder
}

// NewLockReleasedEvent creates a LockReleasedEvent.
func NewLockReleasedEvent(pattern, owner string, forced bool) LockReleasedEvent {
	return LockReleasedEvent{
		baseEvent: newBaseEvent(TypeLockReleased),
		Pattern:   pattern,
		Owner:     owner,
		Forced:    forced,
	}
}

// LockReclaimedEvent is emitted when an expired record is retired so the
// slot can be reused.
type LockReclaimedEvent struct {
	baseEvent
	Pattern       string
	PreviousOwner string
}

// NewLockReclaimedEvent creates a LockReclaimedEvent.
func NewLockReclaimedEvent(pattern, previousOwner string) LockReclaimedEvent {
	return LockReclaimedEvent{
		baseEvent:     newBaseEvent(TypeLockReclaimed),
		Pattern:       pattern,
		PreviousOwner: previousOwner,
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionRegisteredEvent is emitted when a session id is first given a name.
type SessionRegisteredEvent struct {
	baseEvent
	SessionID string
	Name      string
}

// NewSessionRegisteredEvent creates a SessionRegisteredEvent.
func NewSessionRegisteredEvent(sessionID, name string) SessionRegisteredEvent {
	return SessionRegisteredEvent{
		baseEvent: newBaseEvent(TypeSessionRegistered),
		SessionID: sessionID,
		Name:      name,
	}
}

// FocusChangedEvent is emitted when a session sets or clears its focus.
// Focus is empty when cleared.
type FocusChangedEvent struct {
	baseEvent
	SessionID string
	Owner     string
	Focus     string
}

// NewFocusChangedEvent creates a FocusChangedEvent.
func NewFocusChangedEvent(sessionID, owner, focus string) FocusChangedEvent {
	return FocusChangedEvent{
		baseEvent: newBaseEvent(TypeFocusChanged),
		SessionID: sessionID,
		Owner:     owner,
		Focus:     focus,
	}
}

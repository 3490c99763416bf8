// Package filelock implements advisory, TTL-scoped locks over file glob
// patterns, shared by every session working in a project.
//
// A lock does not prevent anything; it is a published claim that other
// sessions consult (usually from an editor hook) before touching matching
// files. Each pattern maps to one slot file:
//
//	.agent-chat/locks/<fnv64a(pattern)>.lock
//	    {"pattern":"src/*.go","owner":"swift-fox","session_id":"...",
//	     "acquired_at":"2025-03-04T09:07:00Z","ttl_secs":300}
//
// # Lifecycle
//
//	Absent -> Held -> (Expired | Released) -> Absent
//
// Expiry is lazy: an expired record stays on disk but is invisible to
// [Manager.List] and [Manager.Check] and is reclaimed by the next
// [Manager.Acquire] of the same pattern. [Lock.IsExpired] is a pure
// predicate over a supplied time.
//
// # Concurrency
//
// New records are published with create-exclusive semantics, so when
// several sessions race for a free or expired slot exactly one wins and the
// others receive a [errors.LockConflictError]. Records are only removed
// under a per-slot removal guard, itself a create-exclusive file, and only
// after re-reading the slot under the guard and finding the exact record the
// caller decided to remove. A fresh record published in the meantime is
// never removed.
//
// One race remains: a holder refreshing its own live lock overwrites the
// slot, so a refresh landing at the instant the record expires and is
// reclaimed by another session can replace the reclaimer's record.
//
// # Basic Usage
//
//	mgr := filelock.New(locksDir)
//	owner := filelock.Owner{Name: "swift-fox", SessionID: sid}
//
//	lock, err := mgr.Acquire("src/**/*.go", owner, 5*time.Minute)
//	held, err := mgr.Check("src/api/handler.go", owner)
//	err = mgr.Release("src/**/*.go", owner, false)
package filelock

// Package mailbox implements the shared message log: an append-only
// directory of immutable messages that every session in a project reads.
//
// # Layout
//
//	.agent-chat/log/
//	    1717171717000000000.msg   {"author":"swift-fox","body":"hello"}
//	    1717171717000000042.msg
//
// A message's identity and order come from its file name, the 19-digit
// zero-padded Unix nanosecond timestamp at which it was appended. Names sort
// lexically in chronological order, so listings and unread counts need only
// the directory entries, never the file contents.
//
// # Concurrency
//
// Each message is published with [atomicfile.CreateExclusive], so two
// appenders that sample the same nanosecond cannot overwrite each other: the
// loser resamples the clock (or bumps the key by one) and retries. Readers
// never observe a partially written message. Temp residue left by a crashed
// writer is skipped by every listing.
//
// # Main Types
//
//   - [Message]: one immutable entry, ordered by ID
//   - [Store]: the log directory with Append, List, Keys and Watch
package mailbox

// Package hooks adapts agent host hook payloads to agent-chat.
//
// Hosts run agent-chat commands at fixed points of an agent session and
// pass a JSON payload on stdin: SessionStart carries the session id and
// PreToolUse carries the tool name and its input. The decoding functions
// here turn those payloads into plain values, and Deliverer writes the
// JSON documents hosts accept back on stdout.
//
// The package also installs the integration: InstallSettings merges the
// hook commands into a host settings file, and InstallGuidance maintains a
// delimited agent-chat section in CLAUDE.md.
package hooks

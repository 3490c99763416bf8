// Package coordination wires the agent-chat stores together for one
// project.
//
// A project keeps all coordination state under a single .agent-chat
// directory. Layout names the paths inside it, FindRoot locates it from any
// subdirectory, and Init creates it. Open returns a Hub, the explicit store
// handle that owns one instance of each store over that directory:
//
//   - Message log (mailbox)
//   - Lock manager (filelock)
//   - Cursor tracker (cursor)
//   - Session registry (session)
//   - Focus board (focus)
//
// All stores share one event bus and one logger. The Hub subscribes to the
// bus and records every coordination event in the debug log.
//
// Usage:
//
//	layout, err := coordination.FindRoot(cwd)
//	if err != nil {
//	    return err
//	}
//	hub, err := coordination.Open(layout, coordination.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer hub.Close()
//
//	msg, err := hub.Log().Append(name, "taking the parser")
package coordination

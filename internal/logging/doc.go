// Package logging provides structured logging for agent-chat invocations.
//
// Every command is a short-lived process, so the log file is the only record
// of what concurrent sessions did to the shared directory. The package wraps
// log/slog with a JSON handler and appends to <root>/debug.log through a
// size-rotating writer.
//
// # Usage
//
//	logger, err := logging.NewLogger(root, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithSession(sessionID).Info("lock acquired", "pattern", "src/*.go")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"lock acquired","session_id":"...","pattern":"src/*.go"}
//
// Core packages accept a nil *Logger and substitute [NopLogger].
//
// # Rotation
//
// [RotatingWriter] renames debug.log to debug.log.1 once it exceeds
// MaxSizeMB, shifting older backups up to MaxBackups. Several processes may
// hold the same file open; a rotation by one of them only moves the name,
// so writes from the others land in the backup until they exit.
package logging

// Command agent-chat coordinates coding agents that share a project
// through plain files under .agent-chat/.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Iron-Ham/agent-chat/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(cmd.Report(os.Stderr, err))
	}
}

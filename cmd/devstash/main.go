// Command devstash manages per-project scripts, terminal collections and
// work sessions stored in a local data directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/devstash/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

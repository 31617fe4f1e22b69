package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/themadjocker/cryo-vault-backend-api/cmd/cryovault/commands"
)

// Version information, set during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit)
	if err := commands.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

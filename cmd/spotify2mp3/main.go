package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spotify2mp3/cmd/spotify2mp3/commands"
	"spotify2mp3/internal/shared"
)

// set with -ldflags "-X main.version=..."
var version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		shared.ColorError.Printf("❌ %v\n", err)
		if commands.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

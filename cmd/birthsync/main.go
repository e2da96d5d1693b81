package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aowusu/birthsync/internal/client/cli"
	"github.com/aowusu/birthsync/internal/client/config"
)

// Version information set via ldflags during build.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	fmt.Printf("birthsync %s (built %s)\n", Version, BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

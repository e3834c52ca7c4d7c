package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/FrogCounters/boatboat/internal/app"
)

func main() {
	configDir := flag.String("config-dir", os.Getenv("BOATBOAT_CONFIG_DIR"), "directory holding boatboat.{json,yaml,toml} and .env")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigDir: *configDir}); err != nil {
		log.Fatalf("%v", err)
	}
}

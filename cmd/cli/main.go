package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/offlinehq/tidesync/internal/buildinfo"
	"github.com/offlinehq/tidesync/internal/client/cli"
	"github.com/offlinehq/tidesync/internal/client/config"
	"github.com/offlinehq/tidesync/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx)
}

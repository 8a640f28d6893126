package main

import (
	"context"
	"log"
	"os"

	"github.com/offlinehq/tidesync/internal/buildinfo"
	"github.com/offlinehq/tidesync/internal/server"
	"github.com/offlinehq/tidesync/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}

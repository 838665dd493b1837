// main is the entry point of the GSQuery application.
// It parses the configuration, sets up the logger and runs one query batch, probe or listing.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/gsquery/internal/config"
	"github.com/woozymasta/gsquery/internal/logger"
	"github.com/woozymasta/gsquery/internal/vars"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger, uuid.NewString())
	log.Debug().Str("version", vars.Version).Str("commit", vars.CommitShort()).Msg("Starting gsquery")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(cfg, os.Stdout).run(ctx)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

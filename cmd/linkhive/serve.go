package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarslinks/linkhive/internal/common"
	"github.com/tarslinks/linkhive/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP JSON server",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(true)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		common.PrintBanner(cfg, logger)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := control.NewHTTPServer(c.surface, addr, cfg.Server.Debug)

		shutdownChan := make(chan struct{})
		srv.SetShutdownChannel(shutdownChan)

		go func() {
			if err := srv.Start(); err != nil {
				logger.Fatal().Err(err).Msg("server failed")
			}
		}()

		logger.Info().Str("url", "http://"+addr).Msg("server ready")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigChan:
			logger.Info().Msg("interrupt signal received")
		case <-shutdownChan:
			logger.Info().Msg("shutdown requested via HTTP")
		}

		common.PrintShutdownBanner(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown failed")
		}
	},
}

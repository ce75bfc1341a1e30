package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/tarslinks/linkhive/internal/models"
)

var (
	scheduleCrawlSpec    string
	scheduleCrawlOldDays int
	scheduleEmbedSpec    string
)

// scheduleCmd wires robfig/cron onto the same JobRunner-backed
// operations a human CLI invocation uses, so a long-running process
// can periodically re-crawl stale pages and pick up pending embeddings
// without an external scheduler. It is a thin wrapper: the cron
// entries call Surface.Crawl/Surface.VectorEmbed exactly as the crawl
// and "db vector embed" commands do.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run recurring crawl/embed jobs on a cron schedule until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(true)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		sched := cron.New()

		if scheduleCrawlSpec != "" {
			_, err := sched.AddFunc(scheduleCrawlSpec, func() {
				selector := models.ListSelector{Mode: models.SelectorOld, Days: scheduleCrawlOldDays}
				if err := c.surface.Crawl(context.Background(), selector, crawlMaxLinks); err != nil {
					logger.Warn().Err(err).Msg("scheduled crawl failed to start")
				}
			})
			if err != nil {
				fatal(err)
			}
		}

		if scheduleEmbedSpec != "" {
			_, err := sched.AddFunc(scheduleEmbedSpec, func() {
				if err := c.surface.VectorEmbed(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("scheduled embed failed to start")
				}
			})
			if err != nil {
				fatal(err)
			}
		}

		sched.Start()
		defer sched.Stop()

		logger.Info().
			Str("crawl_schedule", scheduleCrawlSpec).
			Str("embed_schedule", scheduleEmbedSpec).
			Msg("scheduler running; press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCrawlSpec, "crawl-cron", "", "cron spec for a recurring \"crawl --old N\" (empty disables)")
	scheduleCmd.Flags().IntVar(&scheduleCrawlOldDays, "crawl-old-days", 7, "N for the recurring --old N crawl selector")
	scheduleCmd.Flags().StringVar(&scheduleEmbedSpec, "embed-cron", "", "cron spec for a recurring \"db vector embed\" (empty disables)")
}

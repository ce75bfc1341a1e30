// Package main is linkhive's command-line entrypoint: a single cobra
// binary exposing the document store, search, crawl, and database
// maintenance commands over the same control surface the HTTP server
// and MCP adapter bind to. Startup follows config -> logger -> banner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/common"
	"github.com/tarslinks/linkhive/internal/config"
	"github.com/tarslinks/linkhive/internal/control"
	"github.com/tarslinks/linkhive/internal/crawler"
	"github.com/tarslinks/linkhive/internal/embedder"
	"github.com/tarslinks/linkhive/internal/jobs"
	"github.com/tarslinks/linkhive/internal/search"
	"github.com/tarslinks/linkhive/internal/store"
	"github.com/tarslinks/linkhive/internal/store/sqlite"
)

var (
	cfgFiles []string
	flagHost string
	flagPort int

	cfg    *config.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "linkhive",
	Short: "Personal link search engine",
	Long:  `linkhive stores, crawls, and searches a curated collection of web links.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFiles...)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		config.ApplyFlagOverrides(cfg, flagHost, flagPort)
		logger = common.SetupLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&cfgFiles, "config", "c", nil, "configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "server host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", 0, "server port (overrides config)")

	rootCmd.AddCommand(addCmd, listCmd, removeCmd, touchCmd, cleanDuplicatesCmd)
	rootCmd.AddCommand(searchCmd, textSearchCmd, vectorSearchCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

// components bundles every long-lived dependency a command needs,
// opened fresh per invocation (the CLI is a short-lived process; the
// serve command is the only one that keeps these alive indefinitely).
type components struct {
	store    store.Store
	lexical  *search.Lexical
	dense    *search.Dense
	hybrid   *search.Hybrid
	runner   *jobs.Runner
	crawler  crawler.Crawler
	embedder embedder.Embedder
	surface  *control.Surface
}

// openComponents wires one instance of every collaborator the control
// surface needs. needsCrawler skips starting a headless browser for
// commands that never call Crawl.
func openComponents(needsCrawler bool) (*components, func(), error) {
	dbPath, ok := cfg.Database.Resolved()
	if !ok {
		return nil, nil, fmt.Errorf("database unconfigured: set [database].path or [database].url")
	}

	st, err := sqlite.Open(logger, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var emb embedder.Embedder
	switch cfg.Embedder.Provider {
	case "hosted":
		emb = embedder.NewHosted(cfg.Embedder.BaseURL, cfg.Embedder.Model, logger)
	default:
		emb = embedder.NewStatic()
	}

	lex := search.NewLexical(st.Raw(), logger)
	dense := search.NewDense(st, emb, logger)
	hybrid := search.NewHybrid(lex, dense, st.Cache(), logger)
	runner := jobs.NewRunner(logger)

	var crawl crawler.Crawler
	closeCrawler := func() {}
	if needsCrawler {
		cd, err := crawler.NewChromeDP(logger)
		if err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("failed to start headless browser: %w", err)
		}
		crawl = cd
		closeCrawler = func() { cd.Close() }
	}

	surface := control.New(st, lex, dense, hybrid, runner, crawl, emb, logger)

	c := &components{
		store:    st,
		lexical:  lex,
		dense:    dense,
		hybrid:   hybrid,
		runner:   runner,
		crawler:  crawl,
		embedder: emb,
		surface:  surface,
	}
	cleanup := func() {
		closeCrawler()
		st.Close()
	}
	return c, cleanup, nil
}

func fatal(err error) {
	logger.Error().Err(err).Msg("command failed")
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

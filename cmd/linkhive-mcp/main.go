// Command linkhive-mcp exposes the control surface over MCP stdio, for
// use as a tool server by an MCP-speaking client.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/tarslinks/linkhive/internal/common"
	"github.com/tarslinks/linkhive/internal/config"
	"github.com/tarslinks/linkhive/internal/control"
	"github.com/tarslinks/linkhive/internal/embedder"
	"github.com/tarslinks/linkhive/internal/jobs"
	"github.com/tarslinks/linkhive/internal/mcpadapter"
	"github.com/tarslinks/linkhive/internal/search"
	"github.com/tarslinks/linkhive/internal/store/sqlite"
)

func main() {
	configPath := os.Getenv("LINKHIVE_CONFIG")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// A stdio MCP server must never write unstructured text to
	// stdout; keep logging to console at warn level only.
	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:             arbormodels.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	dbPath, ok := cfg.Database.Resolved()
	if !ok {
		logger.Fatal().Msg("database unconfigured: set [database].path or [database].url")
	}
	st, err := sqlite.Open(logger, dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer st.Close()

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

	surface := control.New(st, lex, dense, hybrid, runner, nil, emb, logger)

	mcpServer := mcpadapter.New(surface, common.GetVersion(), logger)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarslinks/linkhive/internal/models"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance commands",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema if it does not already exist",
	Run: func(cmd *cobra.Command, args []string) {
		_, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		fmt.Println("database initialized")
	},
}

var dbMigrateFile string

// dbMigrateCmd imports a legacy flat-file CSV export, three columns
// link,added_at,updated_at, inserting with ON CONFLICT DO NOTHING; no
// crawl data migrates.
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import a legacy link,added_at,updated_at CSV export",
	Run: func(cmd *cobra.Command, args []string) {
		if dbMigrateFile == "" {
			fatal(fmt.Errorf("--file is required"))
		}
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		f, err := os.Open(dbMigrateFile)
		if err != nil {
			fatal(err)
		}
		defer f.Close()

		imported, skipped, err := migrateCSV(cmd.Context(), c, f)

		if err != nil {
			fatal(err)
		}
		fmt.Printf("imported=%d skipped=%d\n", imported, skipped)
	},
}

// migrateCSV reads a header-driven CSV requiring the literal column
// names link,added_at,updated_at (in any order) and inserts each row
// via Surface.Add, counting AlreadyExists (and rows with an empty link)
// as skipped rather than failing the whole import (ON CONFLICT DO
// NOTHING semantics); any other Add error stops the import. Only link
// is stored: added_at/updated_at values are not carried over, so each
// imported document gets the import time.
func migrateCSV(ctx context.Context, c *components, r io.Reader) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	for _, required := range []string{"link", "added_at", "updated_at"} {
		if _, ok := cols[required]; !ok {
			return 0, 0, fmt.Errorf("CSV header missing required column %q", required)
		}
	}
	linkCol := cols["link"]

	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return imported, skipped, fmt.Errorf("failed to read CSV row: %w", readErr)
		}
		if linkCol >= len(row) || row[linkCol] == "" {
			skipped++
			continue
		}
		if _, addErr := c.surface.Add(ctx, row[linkCol]); addErr != nil {
			if models.KindOf(addErr) != models.KindAlreadyExists {
				return imported, skipped, addErr
			}
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped, nil
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report document counts and vector-index status",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		status, err := c.surface.Status(cmd.Context())
		if err != nil {
			fatal(err)
		}
		fmt.Printf("total_documents=%d crawled=%d vector_initialized=%t pending_embeddings=%d\n",
			status.TotalDocuments, status.CrawledCount, status.VectorInitialized, status.PendingEmbeddings)
	},
}

var dbVectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Vector-index commands",
}

var dbVectorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the embedding column/index and rebuild the dense search graph",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		if err := c.surface.VectorInit(cmd.Context()); err != nil {
			fatal(err)
		}
		fmt.Println("vector index initialized")
	},
}

var dbVectorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the vector index has been initialized",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		initialized, err := c.surface.VectorStatus(cmd.Context())
		if err != nil {
			fatal(err)
		}
		fmt.Printf("initialized=%t\n", initialized)
	},
}

var dbVectorEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Run a job computing embeddings for every pending searchable document and wait for it to finish",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		if err := c.surface.VectorEmbed(cmd.Context()); err != nil {
			fatal(err)
		}
		for c.surface.EmbedStatus().State == models.JobRunning {
			time.Sleep(500 * time.Millisecond)
		}
		printProgress("embed", c.surface.EmbedStatus())
	},
}

var dbVectorEmbedStatusCmd = &cobra.Command{
	Use:   "embed-status",
	Short: "Report this process's embed job progress (kept in memory only, so idle in a fresh process)",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		printProgress("embed", c.surface.EmbedStatus())
	},
}

func init() {
	dbMigrateCmd.Flags().StringVar(&dbMigrateFile, "file", "", "path to the legacy link,added_at,updated_at CSV export")
	dbVectorCmd.AddCommand(dbVectorInitCmd, dbVectorStatusCmd, dbVectorEmbedCmd, dbVectorEmbedStatusCmd)
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbStatusCmd, dbVectorCmd)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarslinks/linkhive/internal/models"
)

var (
	crawlMissing     bool
	crawlAll         bool
	crawlOldDays     int
	crawlMaxLinks    int
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [url]",
	Short: "Fetch one URL, or run a crawl job over a selection",
	Long: `crawl <url> fetches a single page synchronously. crawl --missing,
--all, or --old N run a crawl job over the matching documents, wait
for it to finish, and print its final progress.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(true)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		if len(args) == 1 {
			result, err := c.crawler.Fetch(cmd.Context(), args[0], crawlMaxLinks)
			if err != nil {
				fatal(err)
			}
			fmt.Printf("status=%d title=%q links=%d\n", result.HTTPStatus, result.Title, len(result.Links))
			return
		}

		selector, err := crawlSelector()
		if err != nil {
			fatal(err)
		}
		if err := c.surface.Crawl(cmd.Context(), selector, crawlMaxLinks); err != nil {
			fatal(err)
		}
		for c.surface.CrawlStatus().State == models.JobRunning {
			time.Sleep(500 * time.Millisecond)
		}
		printProgress("crawl", c.surface.CrawlStatus())
	},
}

func crawlSelector() (models.ListSelector, error) {
	switch {
	case crawlAll:
		return models.ListSelector{Mode: models.SelectorAll}, nil
	case crawlOldDays > 0:
		return models.ListSelector{Mode: models.SelectorOld, Days: crawlOldDays}, nil
	case crawlMissing:
		return models.ListSelector{Mode: models.SelectorMissing}, nil
	default:
		return models.ListSelector{}, fmt.Errorf("specify a url, or one of --missing, --all, --old N")
	}
}

var crawlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report this process's crawl job progress (kept in memory only, so idle in a fresh process)",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()
		printProgress("crawl", c.surface.CrawlStatus())
	},
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlMissing, "missing", false, "crawl every never-fetched document")
	crawlCmd.Flags().BoolVar(&crawlAll, "all", false, "crawl every document")
	crawlCmd.Flags().IntVar(&crawlOldDays, "old", 0, "crawl documents last crawled more than N days ago")
	crawlCmd.Flags().IntVar(&crawlMaxLinks, "max-links", 50, "maximum outbound links to record per page")
	crawlCmd.AddCommand(crawlStatusCmd)
}

func printProgress(kind string, p models.Progress) {
	fmt.Printf("%s: state=%s total=%d completed=%d success=%d errors=%d current=%q\n",
		kind, p.State, p.Total, p.Completed, p.Success, p.Errors, p.CurrentItem)
	if p.StartedAt != nil {
		fmt.Printf("  started=%s\n", p.StartedAt.Format(time.RFC3339))
	}
	if p.FinishedAt != nil {
		fmt.Printf("  finished=%s\n", p.FinishedAt.Format(time.RFC3339))
	}
	if p.ErrorMessage != "" {
		fmt.Printf("  error=%s\n", p.ErrorMessage)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a URL to the collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.Add(cmd.Context(), args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("added %s (%s)\n", result.Document.URL, result.Document.ID)
	},
}

var (
	listPage    int
	listPerPage int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.List(cmd.Context(), listPage, listPerPage)
		if err != nil {
			fatal(err)
		}
		for _, d := range result.Documents {
			status := "not crawled"
			if d.CrawledAt != nil {
				status = "crawled"
			}
			fmt.Printf("%s  %-8s  %s\n", d.ID, status, d.URL)
		}
		fmt.Printf("page %d/%d, %d total\n", result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.TotalCount)
	},
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "results per page")
}

var removeGlob bool

var removeCmd = &cobra.Command{
	Use:   "remove [id-or-url]",
	Short: "Remove a document by URL or id, or every match of a glob with --glob",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		if removeGlob {
			urls, err := c.surface.RemoveByGlob(cmd.Context(), args[0])
			if err != nil {
				fatal(err)
			}
			for _, u := range urls {
				fmt.Printf("removed %s\n", u)
			}
			fmt.Printf("%d removed\n", len(urls))
			return
		}

		removed, err := c.surface.Remove(cmd.Context(), args[0])
		if err != nil {
			fatal(err)
		}
		if removed {
			fmt.Printf("removed %s\n", args[0])
		} else {
			fmt.Printf("not found: %s\n", args[0])
		}
	},
}

func init() {
	removeCmd.Flags().BoolVar(&removeGlob, "glob", false, "treat the argument as a glob pattern over url")
}

var touchCmd = &cobra.Command{
	Use:   "update-timestamp [url]",
	Short: "Bump a document's updated_at to now",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		updated, err := c.surface.UpdateTimestamp(cmd.Context(), args[0])
		if err != nil {
			fatal(err)
		}
		if updated {
			fmt.Printf("updated %s\n", args[0])
		} else {
			fmt.Printf("not found: %s\n", args[0])
		}
	},
}

var cleanDuplicatesCmd = &cobra.Command{
	Use:   "clean-duplicates",
	Short: "Remove legacy duplicate URLs (no-op under the SQLite schema's UNIQUE(url) constraint)",
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.CleanDuplicates(cmd.Context())
		if err != nil {
			fatal(err)
		}
		fmt.Printf("removed %d duplicates\n", result.Removed)
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarslinks/linkhive/internal/control"
)

var (
	searchPage        int
	searchPerPage     int
	searchKeywordWt   float64
	searchVectorWt    float64
	searchMinScore    float64
	searchNoCache     bool
	searchMaxDistance float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Hybrid search (keyword + vector, fused by RRF)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.Search(cmd.Context(), control.SearchParams{
			Query:     args[0],
			Page:      searchPage,
			PerPage:   searchPerPage,
			KeywordWt: searchKeywordWt,
			VectorWt:  searchVectorWt,
			MinScore:  searchMinScore,
			UseCache:  !searchNoCache,
		})
		if err != nil {
			fatal(err)
		}
		for _, r := range result.Results {
			fmt.Printf("%.4f  kw=%d vw=%d  %s\n", r.Score, r.KeywordRank, r.VectorRank, r.Document.URL)
		}
		fmt.Printf("page %d/%d, %d total\n", result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.TotalCount)
	},
}

var textSearchCmd = &cobra.Command{
	Use:   "text-search [query]",
	Short: "Lexical-only BM25 search",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.TextSearch(cmd.Context(), args[0], searchPage, searchPerPage)
		if err != nil {
			fatal(err)
		}
		for _, r := range result.Results {
			fmt.Printf("%.4f  %s\n", r.Score, r.Document.URL)
		}
		fmt.Printf("page %d/%d, %d total\n", result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.TotalCount)
	},
}

var vectorSearchCmd = &cobra.Command{
	Use:   "vector-search [query]",
	Short: "Dense-only cosine nearest-neighbor search",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, cleanup, err := openComponents(false)
		if err != nil {
			fatal(err)
		}
		defer cleanup()

		result, err := c.surface.VectorSearch(cmd.Context(), args[0], searchPage, searchPerPage, searchMaxDistance)
		if err != nil {
			fatal(err)
		}
		for _, r := range result.Results {
			fmt.Printf("%.4f  %s\n", r.Distance, r.Document.URL)
		}
		fmt.Printf("page %d/%d, %d total\n", result.Pagination.Page, result.Pagination.TotalPages, result.Pagination.TotalCount)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{searchCmd, textSearchCmd, vectorSearchCmd} {
		cmd.Flags().IntVar(&searchPage, "page", 1, "page number")
		cmd.Flags().IntVar(&searchPerPage, "per-page", 20, "results per page")
	}
	searchCmd.Flags().Float64Var(&searchKeywordWt, "kw-weight", 0.5, "keyword weight in RRF fusion")
	searchCmd.Flags().Float64Var(&searchVectorWt, "vw-weight", 0.5, "vector weight in RRF fusion")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0.005, "minimum fused score to keep a result")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "bypass the hybrid result cache")
	vectorSearchCmd.Flags().Float64Var(&searchMaxDistance, "max-distance", 1.0, "maximum cosine distance to keep a result")
}

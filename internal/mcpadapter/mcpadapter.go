// Package mcpadapter exposes part of the control surface over MCP
// stdio as six tools (not every Surface operation has one): no markdown
// rendering, no cross-reference
// search, no GitHub-specific tools. Each handler parses arguments,
// calls exactly one Surface method, and formats its result as plain
// text; the adapter owns no business logic of its own.
package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/tarslinks/linkhive/internal/control"
	"github.com/tarslinks/linkhive/internal/models"
)

// New builds an MCP server exposing linkhive's document/search/crawl
// operations over surface. Call server.ServeStdio(result) to run it.
func New(surface *control.Surface, version string, logger arbor.ILogger) *server.MCPServer {
	s := server.NewMCPServer("linkhive", version, server.WithToolCapabilities(false))

	s.AddTool(addTool(), handleAdd(surface, logger))
	s.AddTool(listTool(), handleList(surface, logger))
	s.AddTool(searchTool(), handleSearch(surface, logger))
	s.AddTool(textSearchTool(), handleTextSearch(surface, logger))
	s.AddTool(vectorSearchTool(), handleVectorSearch(surface, logger))
	s.AddTool(crawlStatusTool(), handleCrawlStatus(surface))

	return s
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return textResult(fmt.Sprintf("Error: "+format, args...))
}

func addTool() mcp.Tool {
	return mcp.NewTool("add_link",
		mcp.WithDescription("Add a URL to the link collection"),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL to add; https:// is assumed if no scheme is given")),
	)
}

func handleAdd(surface *control.Surface, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return errorResult("url parameter is required"), nil
		}
		result, err := surface.Add(ctx, url)
		if err != nil {
			logger.Error().Err(err).Str("url", url).Msg("add_link failed")
			return errorResult("%v", err), nil
		}
		return textResult(fmt.Sprintf("added %s (%s)", result.Document.URL, result.Document.ID)), nil
	}
}

func listTool() mcp.Tool {
	return mcp.NewTool("list_links",
		mcp.WithDescription("List stored links, most recently updated first"),
		mcp.WithNumber("page", mcp.Description("page number, default 1")),
		mcp.WithNumber("per_page", mcp.Description("results per page, default 20, max 100")),
	)
}

func handleList(surface *control.Surface, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		page := request.GetInt("page", 1)
		perPage := request.GetInt("per_page", 20)
		result, err := surface.List(ctx, page, perPage)
		if err != nil {
			logger.Error().Err(err).Msg("list_links failed")
			return errorResult("%v", err), nil
		}
		return textResult(formatDocumentList(result.Documents)), nil
	}
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search_links",
		mcp.WithDescription("Hybrid search over the link collection (keyword + vector, fused by RRF)"),
		mcp.WithString("query", mcp.Required(), mcp.Description("search query")),
		mcp.WithNumber("limit", mcp.Description("max results, default 20")),
	)
}

func handleSearch(surface *control.Surface, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 20)
		result, err := surface.Search(ctx, control.SearchParams{
			Query: query, Page: 1, PerPage: limit, UseCache: true,
		})
		if err != nil {
			logger.Error().Err(err).Str("query", query).Msg("search_links failed")
			return errorResult("%v", err), nil
		}
		var b strings.Builder
		for _, r := range result.Results {
			fmt.Fprintf(&b, "%.4f  %s\n", r.Score, r.Document.URL)
		}
		if b.Len() == 0 {
			return textResult("no results"), nil
		}
		return textResult(b.String()), nil
	}
}

func textSearchTool() mcp.Tool {
	return mcp.NewTool("text_search_links",
		mcp.WithDescription("Lexical-only BM25 search over the link collection"),
		mcp.WithString("query", mcp.Required(), mcp.Description("search query")),
		mcp.WithNumber("limit", mcp.Description("max results, default 20")),
	)
}

func handleTextSearch(surface *control.Surface, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 20)
		result, err := surface.TextSearch(ctx, query, 1, limit)
		if err != nil {
			logger.Error().Err(err).Str("query", query).Msg("text_search_links failed")
			return errorResult("%v", err), nil
		}
		var b strings.Builder
		for _, r := range result.Results {
			fmt.Fprintf(&b, "%.4f  %s\n", r.Score, r.Document.URL)
		}
		if b.Len() == 0 {
			return textResult("no results"), nil
		}
		return textResult(b.String()), nil
	}
}

func vectorSearchTool() mcp.Tool {
	return mcp.NewTool("vector_search_links",
		mcp.WithDescription("Dense-only cosine nearest-neighbor search over the link collection"),
		mcp.WithString("query", mcp.Required(), mcp.Description("search query")),
		mcp.WithNumber("limit", mcp.Description("max results, default 20")),
	)
}

func handleVectorSearch(surface *control.Surface, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return errorResult("query parameter is required"), nil
		}
		limit := request.GetInt("limit", 20)
		result, err := surface.VectorSearch(ctx, query, 1, limit, 1.0)
		if err != nil {
			logger.Error().Err(err).Str("query", query).Msg("vector_search_links failed")
			return errorResult("%v", err), nil
		}
		var b strings.Builder
		for _, r := range result.Results {
			fmt.Fprintf(&b, "%.4f  %s\n", r.Distance, r.Document.URL)
		}
		if b.Len() == 0 {
			return textResult("no results"), nil
		}
		return textResult(b.String()), nil
	}
}

func crawlStatusTool() mcp.Tool {
	return mcp.NewTool("crawl_status", mcp.WithDescription("Report the running crawl job's progress"))
}

func handleCrawlStatus(surface *control.Surface) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p := surface.CrawlStatus()
		return textResult(fmt.Sprintf("state=%s total=%d completed=%d success=%d errors=%d", p.State, p.Total, p.Completed, p.Success, p.Errors)), nil
	}
}

func formatDocumentList(docs []models.Document) string {
	if len(docs) == 0 {
		return "no documents"
	}
	var b strings.Builder
	for _, d := range docs {
		status := "not crawled"
		if d.CrawledAt != nil {
			status = "crawled"
		}
		fmt.Fprintf(&b, "%s  %s  %s\n", d.ID, status, d.URL)
	}
	return b.String()
}

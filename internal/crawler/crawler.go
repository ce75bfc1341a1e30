// Package crawler renders a page with a headless browser and extracts
// title, description, main content, and same-site outbound links,
// using chromedp to drive Chrome and goquery to parse the rendered
// DOM.
package crawler

import "context"

// FetchResult is the outcome of rendering and extracting a single page.
type FetchResult struct {
	HTTPStatus int
	Title      string
	Description string
	Content    string
	Links      []string
}

// Crawler is the capability a page renderer exposes to callers: fetch
// renders url (trying HTTPS then, on failure, HTTP once) and extracts
// content plus same-site links.
type Crawler interface {
	Fetch(ctx context.Context, url string, maxLinks int) (FetchResult, error)
	Close() error
}

const (
	// maxContentChars truncates extracted content to a 50k-char cap.
	maxContentChars = 50000

	userAgent = "Mozilla/5.0 (compatible; linkhive/1.0; +https://github.com/tarslinks/linkhive)"
)

// extractionSelectors is tried in order; the first selector with a
// match supplies Content, else Content falls back to <body>. Order
// and membership are load-bearing: generic landmarks first, then
// common CMS content-container classes.
var extractionSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".content",
	".post-content",
	".article-content",
	"#content",
	".markdown-body",
	".prose",
}

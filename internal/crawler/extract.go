package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extract parses rendered HTML and pulls out title, description,
// content, and same-site links.
func extract(html, pageURL string, status int, maxLinks int) (FetchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{
		HTTPStatus:  status,
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Content:     extractContent(doc),
		Links:       extractLinks(doc, pageURL, maxLinks),
	}
	return result, nil
}

// extractTitle returns <title> if present, else the first <h1>.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractDescription returns meta[name=description], falling back to
// og:description.
func extractDescription(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}

// extractContent tries each selector in extractionSelectors in order,
// taking the first match's text; falls back to <body>. Truncates to
// maxContentChars with a literal "..." marker, matching the reference
// implementation exactly.
func extractContent(doc *goquery.Document) string {
	var content string
	for _, selector := range extractionSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			content = strings.TrimSpace(sel.Text())
			break
		}
	}
	if content == "" {
		content = strings.TrimSpace(doc.Find("body").First().Text())
	}
	if runes := []rune(content); len(runes) > maxContentChars {
		content = string(runes[:maxContentChars]) + "..."
	}
	return content
}

// extractLinks discovers <a href> targets on the same scheme+host as
// pageURL whose path starts with pageURL's path prefix (root paths
// match everything on the host), normalizing fragments and trailing
// slashes and skipping javascript:/mailto:/tel:/#-only hrefs. Capped
// at maxLinks, excluding pageURL itself.
func extractLinks(doc *goquery.Document, pageURL string, maxLinks int) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	normalizedBase := normalizeURL(base)

	seen := make(map[string]bool)
	var out []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if maxLinks > 0 && len(out) >= maxLinks {
			return
		}
		href, ok := s.Attr("href")
		if !ok || shouldSkipHref(href) {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		normalized := normalizeURL(resolved)
		full := normalized.String()
		if full == normalizedBase.String() || seen[full] {
			return
		}
		if !sameDomainAndPrefix(base, normalized) {
			return
		}
		seen[full] = true
		out = append(out, full)
	})

	return out
}

func shouldSkipHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" {
		return true
	}
	switch {
	case strings.HasPrefix(h, "javascript:"),
		strings.HasPrefix(h, "mailto:"),
		strings.HasPrefix(h, "tel:"),
		strings.HasPrefix(h, "#"):
		return true
	}
	return false
}

// normalizeURL strips the fragment and trims a trailing slash from
// the path (root "/" is kept), matching crawl.py's normalize_url.
func normalizeURL(u *url.URL) *url.URL {
	n := *u
	n.Fragment = ""
	path := strings.TrimSuffix(n.Path, "/")
	if path == "" {
		path = "/"
	}
	n.Path = path
	return &n
}

// sameDomainAndPrefix reports whether candidate is on base's host and
// scheme, and its path starts with base's path prefix (a root base
// path matches every path on the host).
func sameDomainAndPrefix(base, candidate *url.URL) bool {
	if base.Host != candidate.Host || base.Scheme != candidate.Scheme {
		return false
	}
	basePath := strings.TrimSuffix(base.Path, "/")
	if basePath == "" || basePath == "/" {
		return true
	}
	return strings.HasPrefix(strings.TrimSuffix(candidate.Path, "/"), basePath)
}

package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePage = `
<html>
<head>
	<title>Example Article</title>
	<meta name="description" content="An example article about Go.">
</head>
<body>
	<nav><a href="/nav-link">Nav</a></nav>
	<article>
		<p>The main body of the article.</p>
		<a href="/posts/1">Post 1</a>
		<a href="https://other.example.com/elsewhere">External</a>
		<a href="javascript:void(0)">JS link</a>
		<a href="mailto:a@example.com">Mail</a>
		<a href="#section">Anchor</a>
		<a href="/posts/1#frag">Post 1 with fragment</a>
		<a href="/posts/2/">Post 2 trailing slash</a>
	</article>
</body>
</html>`

func TestExtractTitleAndDescription(t *testing.T) {
	result, err := extract(samplePage, "https://example.com/", 200, 10)
	require.NoError(t, err)
	require.Equal(t, "Example Article", result.Title)
	require.Equal(t, "An example article about Go.", result.Description)
}

func TestExtractContentPrefersArticle(t *testing.T) {
	result, err := extract(samplePage, "https://example.com/", 200, 10)
	require.NoError(t, err)
	require.Contains(t, result.Content, "main body of the article")
	require.NotContains(t, result.Content, "Nav")
}

func TestExtractLinksAppliesDomainPrefixAndExclusions(t *testing.T) {
	result, err := extract(samplePage, "https://example.com/", 200, 10)
	require.NoError(t, err)

	require.Contains(t, result.Links, "https://example.com/nav-link")
	require.Contains(t, result.Links, "https://example.com/posts/1")
	require.Contains(t, result.Links, "https://example.com/posts/2")
	require.NotContains(t, result.Links, "https://other.example.com/elsewhere")

	for _, l := range result.Links {
		require.NotContains(t, l, "javascript:")
		require.NotContains(t, l, "mailto:")
	}
}

func TestExtractLinksDeduplicatesFragmentVariants(t *testing.T) {
	result, err := extract(samplePage, "https://example.com/", 200, 10)
	require.NoError(t, err)

	count := 0
	for _, l := range result.Links {
		if l == "https://example.com/posts/1" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestExtractLinksRespectsMaxLinks(t *testing.T) {
	result, err := extract(samplePage, "https://example.com/", 200, 1)
	require.NoError(t, err)
	require.Len(t, result.Links, 1)
}

func TestExtractLinksPathPrefixExcludesOutsidePrefix(t *testing.T) {
	page := `<html><body><a href="/blog/a">A</a><a href="/other/b">B</a></body></html>`
	result, err := extract(page, "https://example.com/blog/", 200, 10)
	require.NoError(t, err)
	require.Contains(t, result.Links, "https://example.com/blog/a")
	require.NotContains(t, result.Links, "https://example.com/other/b")
}

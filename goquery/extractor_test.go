package goquery_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarantula/goquery"
)

func baseURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("https://example.com/docs/guide/")
	require.NoError(t, err)
	return u
}

func TestExtractor_resolves_relative_links_against_base(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="intro">Intro</a>
		<a href="../api/">API</a>
		<a href="/about">About</a>
		<a href="https://other.example.org/page">Other</a>
	</body></html>`

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), html)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/docs/guide/intro",
		"https://example.com/docs/api/",
		"https://example.com/about",
		"https://other.example.org/page",
	}, links)
}

func TestExtractor_discards_non_web_links(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="#section">Anchor</a>
		<a href="mailto:hello@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="ftp://example.com/file">FTP</a>
		<a href="tel:+1234567890">Phone</a>
		<a href="  ">Blank</a>
		<a href="/kept">Kept</a>
	</body></html>`

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), html)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/kept"}, links)
}

func TestExtractor_deduplicates_within_a_page(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/page">One</a>
		<a href="/page">Two</a>
		<a href="/page#top">Three</a>
		<a href="HTTPS://EXAMPLE.COM/page">Four</a>
	</body></html>`

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), html)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/page"}, links)
}

func TestExtractor_normalizes_extracted_links(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="https://Example.COM:443/Path?q=1#frag">Link</a>
		<a href="http://example.com:80">Root</a>
	</body></html>`

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), html)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/Path?q=1",
		"http://example.com/",
	}, links)
}

func TestExtractor_handles_pages_without_links(t *testing.T) {
	t.Parallel()

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), "<html><body><p>No links here.</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractor_tolerates_malformed_HTML(t *testing.T) {
	t.Parallel()

	html := `<html><body><a href="/ok">unterminated <div><a href="/also-ok">`

	links, err := goquery.NewExtractor().ExtractLinks(baseURL(t), html)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/ok", "https://example.com/also-ok"}, links)
}

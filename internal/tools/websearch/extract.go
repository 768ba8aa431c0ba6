package websearch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ContentExtractor fetches a URL and reduces it to readable text, the same
// job a browser's reader-mode does, without pulling in a rendering engine.
type ContentExtractor struct {
	httpClient    *http.Client
	skipSSRFCheck bool // testing only: allows loopback/private targets
}

const extractorUserAgent = "Mozilla/5.0 (compatible; ConductorBot/1.0)"

// fetchBodyLimit caps how much of a response body Extract will read.
const fetchBodyLimit = 10 * 1024 * 1024

// extractedContentLimit caps the length of the text Extract returns, prior
// to any further trimming the caller (web_fetch's max_chars) applies.
const extractedContentLimit = 10000

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// NewContentExtractorForTesting builds an extractor that allows loopback
// targets, for exercising it against httptest servers.
func NewContentExtractorForTesting() *ContentExtractor {
	return &ContentExtractor{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		skipSSRFCheck: true,
	}
}

// reservedMetadataIP is the cloud-metadata endpoint exposed on most cloud
// providers' instance networks; it must never be reachable via web_fetch.
var reservedMetadataIP = net.ParseIP("169.254.169.254")

func isPrivateOrReservedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	switch {
	case ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return true
	case ip.IsPrivate(), ip.IsUnspecified(), ip.IsMulticast():
		return true
	case ip.Equal(reservedMetadataIP):
		return true
	default:
		return false
	}
}

// validateURLForSSRF rejects non-HTTP(S) schemes, localhost, and anything
// that resolves to a private or reserved address, since web_fetch is the
// one tool that lets a model-directed request reach an arbitrary host.
func validateURLForSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}
	if lower := strings.ToLower(hostname); lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Resolution failures are left to the HTTP client; a proxy or
		// custom resolver downstream may still be able to reach it.
		return nil
	}
	for _, ip := range ips {
		if isPrivateOrReservedIP(ip) {
			return fmt.Errorf("URL resolves to private/reserved IP address")
		}
	}
	return nil
}

// Extract fetches targetURL and returns a readable-text rendering of it.
func (e *ContentExtractor) Extract(ctx context.Context, targetURL string) (string, error) {
	if !e.skipSSRFCheck {
		if err := validateURLForSSRF(targetURL); err != nil {
			return "", fmt.Errorf("URL validation failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", extractorUserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchBodyLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	content := readableText(string(body))
	if len(content) > extractedContentLimit {
		content = content[:extractedContentLimit] + "..."
	}
	return content, nil
}

// strippedTags are removed wholesale, content included, before any
// extraction runs: none of them carry reader-facing prose.
var strippedTags = []string{"script", "style", "noscript", "iframe", "nav", "header", "footer", "aside"}

// contentContainers are tried in order; the first one yielding enough text
// wins. Earlier patterns are more specific (semantic tags, known content
// classes) and are preferred over a bare role="main" div.
var contentContainers = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`),
	regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`),
	regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*content[^"']*["'][^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<div[^>]*class=["'][^"']*article[^"']*["'][^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<div[^>]*id=["']content["'][^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<div[^>]*id=["']main["'][^>]*>(.*?)</div>`),
	regexp.MustCompile(`(?is)<div[^>]*role=["']main["'][^>]*>(.*?)</div>`),
}

// minContainerContentLength guards against container patterns matching a
// near-empty wrapper div and returning it as "the" content.
const minContainerContentLength = 200

// blockElements are replaced with newlines rather than stripped outright,
// so paragraph and list structure survives tag removal.
var blockElements = []string{"p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br"}

// htmlEntities covers the handful of named entities that show up in
// ordinary prose; numeric entities are left alone.
var htmlEntities = map[string]string{
	"&nbsp;":  " ",
	"&amp;":   "&",
	"&lt;":    "<",
	"&gt;":    ">",
	"&quot;":  "\"",
	"&#39;":   "'",
	"&apos;":  "'",
}

var (
	titleTagPattern    = regexp.MustCompile(`(?i)<title[^>]*>(.*?)</title>`)
	ogTitlePattern     = regexp.MustCompile(`(?i)<meta[^>]*property=["']og:title["'][^>]*content=["']([^"']*)["']`)
	h1Pattern          = regexp.MustCompile(`(?i)<h1[^>]*>(.*?)</h1>`)
	metaDescPattern    = regexp.MustCompile(`(?i)<meta[^>]*name=["']description["'][^>]*content=["']([^"']*)["']`)
	ogDescPattern      = regexp.MustCompile(`(?i)<meta[^>]*property=["']og:description["'][^>]*content=["']([^"']*)["']`)
	bodyPattern        = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	anyTagPattern      = regexp.MustCompile(`<[^>]*>`)
	interiorWhitespace = regexp.MustCompile(`[^\S\n]+`)
	extraBlankLines    = regexp.MustCompile(`\n{3,}`)
)

// readableText runs a simplified readability pass over raw HTML: strip
// noise tags, pull a title/description, locate the main content block (or
// fall back to the whole body), and normalize whitespace.
func readableText(html string) string {
	for _, tag := range strippedTags {
		html = removeTag(html, tag)
	}

	title := extractTitle(html)
	description := extractMetaDescription(html)

	content := mainContent(html)
	if content == "" {
		content = bodyText(html)
	}
	content = cleanText(content)

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", cleanText(title))
	}
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n\n", cleanText(description))
	}
	b.WriteString(content)
	return b.String()
}

func removeTag(html, tag string) string {
	re := regexp.MustCompile(`(?i)<` + tag + `[^>]*>.*?</` + tag + `>`)
	return re.ReplaceAllString(html, "")
}

// firstMatch returns the first capture group produced by the first pattern
// (in order) that matches html.
func firstMatch(html string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// extractTitle tries <title>, then og:title, then falls back to the first
// <h1> on the page.
func extractTitle(html string) string {
	return firstMatch(html, titleTagPattern, ogTitlePattern, h1Pattern)
}

// extractMetaDescription tries the description meta tag, then og:description.
func extractMetaDescription(html string) string {
	return firstMatch(html, metaDescPattern, ogDescPattern)
}

func mainContent(html string) string {
	for _, re := range contentContainers {
		m := re.FindStringSubmatch(html)
		if len(m) < 2 {
			continue
		}
		text := htmlToText(m[1])
		if len(strings.TrimSpace(text)) > minContainerContentLength {
			return text
		}
	}
	return ""
}

func bodyText(html string) string {
	m := bodyPattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	return htmlToText(m[1])
}

// htmlToText turns block-level tags into newlines and strips everything
// else, leaving paragraph structure intact but no markup.
func htmlToText(html string) string {
	for _, tag := range blockElements {
		html = regexp.MustCompile(`(?i)<`+tag+`[^>]*>`).ReplaceAllString(html, "\n")
		html = regexp.MustCompile(`(?i)</`+tag+`>`).ReplaceAllString(html, "\n")
	}
	return anyTagPattern.ReplaceAllString(html, "")
}

func cleanText(text string) string {
	for entity, replacement := range htmlEntities {
		text = strings.ReplaceAll(text, entity, replacement)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(interiorWhitespace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	text = extraBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractBatchConcurrency limits concurrent fetches in ExtractBatch so a
// caller passing a long URL list can't open unbounded sockets at once.
const extractBatchConcurrency = 5

type extractResult struct {
	url     string
	content string
}

// ExtractBatch extracts content from multiple URLs concurrently, bounded
// by extractBatchConcurrency. URLs that fail to extract are simply omitted
// from the result map.
func (e *ContentExtractor) ExtractBatch(ctx context.Context, urls []string) map[string]string {
	results := make(map[string]string, len(urls))
	out := make(chan extractResult, len(urls))
	sem := make(chan struct{}, extractBatchConcurrency)

	for _, target := range urls {
		sem <- struct{}{}
		go func(target string) {
			defer func() { <-sem }()
			content, err := e.Extract(ctx, target)
			if err != nil {
				content = ""
			}
			out <- extractResult{url: target, content: content}
		}(target)
	}

	for i := 0; i < len(urls); i++ {
		if r := <-out; r.content != "" {
			results[r.url] = r.content
		}
	}
	return results
}

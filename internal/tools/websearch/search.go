package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
)

// SearchBackend identifies which upstream search service to query.
type SearchBackend string

const (
	BackendSearXNG     SearchBackend = "searxng"
	BackendDuckDuckGo  SearchBackend = "duckduckgo"
	BackendBraveSearch SearchBackend = "brave"

	// maxCacheSize bounds the turn-independent result cache this tool keeps
	// for itself (distinct from tools.Runtime's turn-local cache, which
	// wraps this tool and resets every turn).
	maxCacheSize = 1000
)

// SearchType selects which flavor of result Brave/SearXNG should return.
type SearchType string

const (
	SearchTypeWeb   SearchType = "web"
	SearchTypeImage SearchType = "image"
	SearchTypeNews  SearchType = "news"
)

// Config holds the web_search tool's backend credentials and defaults.
type Config struct {
	SearXNGURL         string        `json:"searxng_url,omitempty"`
	BraveAPIKey        string        `json:"brave_api_key,omitempty"`
	DefaultBackend     SearchBackend `json:"default_backend"`
	ExtractContent     bool          `json:"extract_content"`
	DefaultResultCount int           `json:"default_result_count"`
	CacheTTL           int           `json:"cache_ttl"`
}

// SearchParams is the decoded form of the tool's JSON call parameters.
type SearchParams struct {
	Query          string        `json:"query"`
	Type           SearchType    `json:"type,omitempty"`
	ResultCount    int           `json:"result_count,omitempty"`
	ExtractContent bool          `json:"extract_content,omitempty"`
	Backend        SearchBackend `json:"backend,omitempty"`
}

// SearchResult is one hit, normalized across backends.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	Content     string `json:"content,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// SearchResponse is the full result set for one query.
type SearchResponse struct {
	Query       string         `json:"query"`
	Type        SearchType     `json:"type"`
	Results     []SearchResult `json:"results"`
	ResultCount int            `json:"result_count"`
	Backend     SearchBackend  `json:"backend"`
}

type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// searchFunc performs one backend's query. Every entry in backendSearches
// has this shape (a method expression, receiver first), so Execute
// dispatches by map lookup instead of a switch.
type searchFunc func(t *WebSearchTool, ctx context.Context, params *SearchParams) (*SearchResponse, error)

var backendSearches = map[SearchBackend]searchFunc{
	BackendSearXNG:     (*WebSearchTool).searchSearXNG,
	BackendDuckDuckGo:  (*WebSearchTool).searchDuckDuckGo,
	BackendBraveSearch: (*WebSearchTool).searchBrave,
}

// WebSearchTool implements agent.Tool for web search: it dispatches to a
// configured backend (falling back to DuckDuckGo on failure), optionally
// extracts full page content for each hit, and caches responses by query
// shape for CacheTTL seconds.
type WebSearchTool struct {
	config     *Config
	httpClient *http.Client
	extractor  *ContentExtractor
	cache      map[string]*cacheEntry
	cacheMu    sync.RWMutex
}

// NewWebSearchTool builds a WebSearchTool, filling in config defaults.
func NewWebSearchTool(config *Config) *WebSearchTool {
	if config.DefaultResultCount == 0 {
		config.DefaultResultCount = 5
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 300
	}
	if config.DefaultBackend == "" {
		if config.SearXNGURL != "" {
			config.DefaultBackend = BackendSearXNG
		} else {
			config.DefaultBackend = BackendDuckDuckGo
		}
	}

	return &WebSearchTool{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		extractor:  NewContentExtractor(),
		cache:      make(map[string]*cacheEntry),
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Search the web for information. Supports web search, image search, and news search. Can optionally extract full content from result URLs."
}

// Schema returns the JSON schema for tool parameters used by LLMs.
func (t *WebSearchTool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{"web", "image", "news"},
				"description": "Type of search to perform (default: web)",
			},
			"result_count": map[string]any{
				"type":        "integer",
				"description": "Number of results to return (default: 5, max: 20)",
				"minimum":     1,
				"maximum":     20,
			},
			"extract_content": map[string]any{
				"type":        "boolean",
				"description": "Whether to extract full content from result URLs (default: false)",
			},
			"backend": map[string]any{
				"type":        "string",
				"enum":        []string{"searxng", "duckduckgo", "brave"},
				"description": "Search backend to use (default: configured default)",
			},
		},
		"required": []string{"query"},
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return schemaBytes
}

// Execute runs one search, applying defaults, cache, backend dispatch, and
// the DuckDuckGo fallback, in that order.
func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var searchParams SearchParams
	if err := json.Unmarshal(params, &searchParams); err != nil {
		return toolError("invalid parameters: %v", err), nil
	}
	if searchParams.Query == "" {
		return toolError("query parameter is required"), nil
	}
	t.applyDefaults(&searchParams)

	cacheKey := t.getCacheKey(&searchParams)
	if cached := t.getFromCache(cacheKey); cached != nil {
		return t.formatResponse(cached), nil
	}

	response, err := t.runSearch(ctx, &searchParams)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}

	if searchParams.ExtractContent && searchParams.Type == SearchTypeWeb {
		t.extractContentForResults(ctx, response)
	}

	t.putInCache(cacheKey, response)
	return t.formatResponse(response), nil
}

func (t *WebSearchTool) applyDefaults(p *SearchParams) {
	if p.Type == "" {
		p.Type = SearchTypeWeb
	}
	if p.ResultCount == 0 {
		p.ResultCount = t.config.DefaultResultCount
	} else if p.ResultCount > 20 {
		p.ResultCount = 20
	}
	if p.Backend == "" {
		p.Backend = t.config.DefaultBackend
	}
	if !p.ExtractContent {
		p.ExtractContent = t.config.ExtractContent
	}
}

// runSearch dispatches to the configured backend and falls back to
// DuckDuckGo on failure, unless DuckDuckGo was already the backend tried.
func (t *WebSearchTool) runSearch(ctx context.Context, params *SearchParams) (*SearchResponse, error) {
	search, ok := backendSearches[params.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", params.Backend)
	}

	response, err := search(t, ctx, params)
	if err == nil {
		return response, nil
	}
	if params.Backend == BackendDuckDuckGo {
		return nil, err
	}

	response, err = t.searchDuckDuckGo(ctx, params)
	if err != nil {
		return nil, err
	}
	response.Backend = BackendDuckDuckGo
	return response, nil
}

func toolError(format string, args ...any) *agent.ToolResult {
	return &agent.ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

func (t *WebSearchTool) formatResponse(response *SearchResponse) *agent.ToolResult {
	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return toolError("failed to format response: %v", err)
	}
	return &agent.ToolResult{Content: string(output)}
}

func (t *WebSearchTool) getCacheKey(params *SearchParams) string {
	return fmt.Sprintf("%s:%s:%d:%v:%s", params.Backend, params.Type, params.ResultCount, params.ExtractContent, params.Query)
}

func (t *WebSearchTool) getFromCache(key string) *SearchResponse {
	t.cacheMu.RLock()
	defer t.cacheMu.RUnlock()

	entry, exists := t.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.response
}

// putInCache stores response under key, first sweeping expired entries and
// then, if still over maxCacheSize, evicting whichever entry expires
// soonest until the cache is back under the cap.
func (t *WebSearchTool) putInCache(key string, response *SearchResponse) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	now := time.Now()
	for k, v := range t.cache {
		if now.After(v.expiresAt) {
			delete(t.cache, k)
		}
	}

	for len(t.cache) >= maxCacheSize {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range t.cache {
			if oldestKey == "" || v.expiresAt.Before(oldestTime) {
				oldestKey, oldestTime = k, v.expiresAt
			}
		}
		if oldestKey == "" {
			break
		}
		delete(t.cache, oldestKey)
	}

	t.cache[key] = &cacheEntry{response: response, expiresAt: now.Add(time.Duration(t.config.CacheTTL) * time.Second)}
}

// extractContentForResults fetches each result's page content concurrently,
// leaving the snippet in place for any URL that fails to extract.
func (t *WebSearchTool) extractContentForResults(ctx context.Context, response *SearchResponse) {
	var wg sync.WaitGroup
	for i := range response.Results {
		wg.Add(1)
		go func(result *SearchResult) {
			defer wg.Done()
			if content, err := t.extractor.Extract(ctx, result.URL); err == nil && content != "" {
				result.Content = content
			}
		}(&response.Results[i])
	}
	wg.Wait()
}

func (t *WebSearchTool) searchSearXNG(ctx context.Context, params *SearchParams) (*SearchResponse, error) {
	if t.config.SearXNGURL == "" {
		return nil, fmt.Errorf("SearXNG URL not configured")
	}

	searchURL, err := url.Parse(t.config.SearXNGURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SearXNG URL: %w", err)
	}

	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("format", "json")
	query.Set("pageno", "1")
	switch params.Type {
	case SearchTypeImage:
		query.Set("categories", "images")
	case SearchTypeNews:
		query.Set("categories", "news")
	default:
		query.Set("categories", "general")
	}
	searchURL.Path = "/search"
	searchURL.RawQuery = query.Encode()

	body, err := t.getJSON(ctx, searchURL.String(), nil, "SearXNG")
	if err != nil {
		return nil, err
	}

	var searxngResp struct {
		Results []struct {
			Title         string `json:"title"`
			URL           string `json:"url"`
			Content       string `json:"content"`
			ImgSrc        string `json:"img_src,omitempty"`
			PublishedDate string `json:"publishedDate,omitempty"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &searxngResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]SearchResult, 0, params.ResultCount)
	for i := 0; i < len(searxngResp.Results) && i < params.ResultCount; i++ {
		r := searxngResp.Results[i]
		results = append(results, SearchResult{
			Title: r.Title, URL: r.URL, Snippet: r.Content,
			ImageURL: r.ImgSrc, PublishedAt: r.PublishedDate,
		})
	}

	return &SearchResponse{Query: params.Query, Type: params.Type, Results: results, ResultCount: len(results), Backend: BackendSearXNG}, nil
}

// searchDuckDuckGo queries the Instant Answer API, which returns an
// abstract plus loosely related topics rather than ranked web results —
// the best this tool can do without a paid DuckDuckGo search product, and
// the backend everything else falls back to.
func (t *WebSearchTool) searchDuckDuckGo(ctx context.Context, params *SearchParams) (*SearchResponse, error) {
	instantURL := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1", url.QueryEscape(params.Query))
	headers := map[string]string{"User-Agent": "Mozilla/5.0 (compatible; ConductorBot/1.0)"}

	body, err := t.getJSON(ctx, instantURL, headers, "DuckDuckGo")
	if err != nil {
		return nil, err
	}

	var ddgResp struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]SearchResult, 0)
	if ddgResp.AbstractText != "" && ddgResp.AbstractURL != "" {
		results = append(results, SearchResult{Title: ddgResp.Heading, URL: ddgResp.AbstractURL, Snippet: ddgResp.AbstractText})
	}
	for i := 0; i < len(ddgResp.RelatedTopics) && len(results) < params.ResultCount; i++ {
		topic := ddgResp.RelatedTopics[i]
		if topic.FirstURL != "" && topic.Text != "" {
			results = append(results, SearchResult{Title: topic.Text[:min(len(topic.Text), 100)], URL: topic.FirstURL, Snippet: topic.Text})
		}
	}

	return &SearchResponse{Query: params.Query, Type: params.Type, Results: results, ResultCount: len(results), Backend: BackendDuckDuckGo}, nil
}

func (t *WebSearchTool) searchBrave(ctx context.Context, params *SearchParams) (*SearchResponse, error) {
	if t.config.BraveAPIKey == "" {
		return nil, fmt.Errorf("Brave API key not configured")
	}

	var endpoint string
	switch params.Type {
	case SearchTypeImage:
		endpoint = "/images/search"
	case SearchTypeNews:
		endpoint = "/news/search"
	default:
		endpoint = "/web/search"
	}

	searchURL, err := url.Parse("https://api.search.brave.com/res/v1" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("count", fmt.Sprintf("%d", params.ResultCount))
	searchURL.RawQuery = query.Encode()

	headers := map[string]string{"Accept": "application/json", "X-Subscription-Token": t.config.BraveAPIKey}
	body, err := t.getJSON(ctx, searchURL.String(), headers, "Brave API")
	if err != nil {
		return nil, err
	}

	results, err := parseBraveResults(params.Type, body)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{Query: params.Query, Type: params.Type, Results: results, ResultCount: len(results), Backend: BackendBraveSearch}, nil
}

func parseBraveResults(searchType SearchType, body []byte) ([]SearchResult, error) {
	results := make([]SearchResult, 0)

	switch searchType {
	case SearchTypeImage:
		var resp struct {
			Results []struct {
				Title     string `json:"title"`
				Thumbnail struct {
					Src string `json:"src"`
				} `json:"thumbnail"`
				Properties struct {
					URL string `json:"url"`
				} `json:"properties"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		for _, r := range resp.Results {
			results = append(results, SearchResult{Title: r.Title, URL: r.Properties.URL, ImageURL: r.Thumbnail.Src})
		}

	case SearchTypeNews:
		var resp struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
				Age         string `json:"age"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		for _, r := range resp.Results {
			results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description, PublishedAt: r.Age})
		}

	default:
		var resp struct {
			Web struct {
				Results []struct {
					Title       string `json:"title"`
					URL         string `json:"url"`
					Description string `json:"description"`
				} `json:"results"`
			} `json:"web"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		for _, r := range resp.Web.Results {
			results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
		}
	}

	return results, nil
}

// getJSON issues a GET request and returns the response body, mapping a
// non-200 status and read failures into one error shape for all three
// backends to share.
func (t *WebSearchTool) getJSON(ctx context.Context, reqURL string, headers map[string]string, backendName string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", backendName, resp.StatusCode, string(body))
	}
	return body, nil
}

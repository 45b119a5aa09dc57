// Package wikimedia resolves car photos through the Wikipedia API:
// a direct page-image lookup first, then a search for the best
// matching article and its page image. Results, including misses,
// are cached with a TTL and concurrent lookups for the same query
// are collapsed into one request.
package wikimedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org/w/api.php"
	defaultUserAgent = "EngineAtlas/1.0 (https://example.com)"
	defaultTimeout   = 10 * time.Second
	defaultCacheTTL  = 24 * time.Hour

	thumbnailSize = 500
)

// ErrNotFound reports that neither the direct lookup nor the search
// fallback produced an image.
var ErrNotFound = errors.New("no image found")

// Options configure the client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// Client is a Wikipedia page-image client. Safe for concurrent use.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
	cache      *imageCache
	group      singleflight.Group
}

// NewClient returns a client with the given options applied.
func NewClient(logger *slog.Logger, opts Options) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Client{
		logger:     logger.With(slog.String("component", "wikimedia")),
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		cache:      newImageCache(opts.CacheTTL, time.Now),
	}
}

// ImageURL resolves the thumbnail URL for a search phrase. A miss is
// ErrNotFound and is cached like a hit, so repeated lookups for
// unphotographed cars stay cheap.
func (c *Client) ImageURL(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNotFound
	}

	if cached, ok := c.cache.get(query); ok {
		if cached == "" {
			return "", ErrNotFound
		}
		return cached, nil
	}

	v, err, _ := c.group.Do(query, func() (interface{}, error) {
		found, err := c.lookup(ctx, query)
		if err != nil {
			return "", err
		}
		c.cache.put(query, found)
		return found, nil
	})
	if err != nil {
		return "", fmt.Errorf("image lookup for %q failed: %w", query, err)
	}
	if v.(string) == "" {
		return "", ErrNotFound
	}
	return v.(string), nil
}

// lookup runs the two-step resolution. An empty return with nil error
// means no image exists for the query.
func (c *Client) lookup(ctx context.Context, query string) (string, error) {
	direct, err := c.pageImage(ctx, query)
	if err != nil {
		return "", err
	}
	if direct != "" {
		return direct, nil
	}

	title, err := c.searchTitle(ctx, query)
	if err != nil {
		return "", err
	}
	if title == "" {
		c.logger.DebugContext(ctx, "no article for query", slog.String("query", query))
		return "", nil
	}
	return c.pageImage(ctx, title)
}

type pageImageResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string `json:"title"`
			Thumbnail *struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// pageImage asks for the lead image of the page titled title. Returns
// "" when the page has none.
func (c *Client) pageImage(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"prop":        {"pageimages"},
		"titles":      {title},
		"pithumbsize": {fmt.Sprint(thumbnailSize)},
	}

	var decoded pageImageResponse
	if err := c.call(ctx, params, &decoded); err != nil {
		return "", err
	}
	for _, page := range decoded.Query.Pages {
		if page.Thumbnail != nil && page.Thumbnail.Source != "" {
			return page.Thumbnail.Source, nil
		}
	}
	return "", nil
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// searchTitle finds the best matching article title, "" when nothing
// matches.
func (c *Client) searchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"format":   {"json"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
	}

	var decoded searchResponse
	if err := c.call(ctx, params, &decoded); err != nil {
		return "", err
	}
	if len(decoded.Query.Search) == 0 {
		return "", nil
	}
	return decoded.Query.Search[0].Title, nil
}

func (c *Client) call(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.DebugContext(ctx, "wikipedia call",
		slog.String("action", params.Get("action")),
		slog.String("list", params.Get("list")),
		slog.Duration("duration", time.Since(start)))
	return nil
}

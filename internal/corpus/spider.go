package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nao1215/pagerank/internal/rank"
)

// Spider crawls a website breadth-first within one host and turns the pages
// it fetched into a link graph.
type Spider struct {
	client *http.Client
	logger *slog.Logger

	// maxDepth limits how many links away from the start page the crawl goes.
	// 0 means only the start page.
	maxDepth int

	// maxPages limits the number of pages fetched.
	maxPages int

	// delay is the pause between two requests.
	delay time.Duration

	userAgent   string
	maxBodySize int64

	// ignorePatterns are path globs that are never crawled.
	ignorePatterns []string

	// followPatterns, when set, restrict the crawl to matching paths.
	followPatterns []string

	stats SpiderStats
}

// SpiderStats describes the last crawl.
type SpiderStats struct {
	// PagesFetched is the number of HTML pages that became graph nodes.
	PagesFetched int

	// PagesFailed is the number of requests that errored or returned a
	// non-2xx status.
	PagesFailed int

	// PagesSkipped is the number of responses that were not HTML.
	PagesSkipped int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the pause between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize limits how many bytes of each response are read.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithIgnorePatterns sets path globs to skip, e.g. "/admin/*" or "*.pdf".
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts the crawl to paths matching at least one glob.
// The start page is always fetched.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger that receives per-page debug messages.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches pages with client.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	s := &Spider{
		client:      client,
		logger:      slog.New(slog.DiscardHandler),
		maxDepth:    5,
		maxPages:    100,
		delay:       500 * time.Millisecond,
		userAgent:   "pagerank/1.0 (+https://github.com/nao1215/pagerank)",
		maxBodySize: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the statistics of the last crawl.
func (s *Spider) Stats() SpiderStats {
	return s.stats
}

type queueItem struct {
	url   *url.URL
	depth int
}

// Crawl fetches pages starting at startURL and returns the link graph between
// them. Pages are named by their normalized path (plus query, if any), so
// "https://example.com/docs/" becomes "/docs/".
//
// Links to pages that were not fetched, because of the depth or page limits,
// a pattern, an error or a non-HTML response, are dropped. When ctx is
// cancelled, the graph of the pages fetched so far is returned together
// with the context error.
func (s *Spider) Crawl(ctx context.Context, startURL string) (*rank.Graph, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStartURL, err)
	}
	if start.Scheme == "" {
		start.Scheme = "http"
	}
	if start.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidStartURL, startURL)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidStartURL, start.Scheme)
	}

	s.stats = SpiderStats{}
	raw := make(map[rank.Page][]string)
	seen := map[string]bool{pageKey(start): true}
	queue := []queueItem{{url: start, depth: 0}}

	var crawlErr error
	for len(queue) > 0 && s.stats.PagesFetched < s.maxPages {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		item := queue[0]
		queue = queue[1:]

		links, ok := s.fetchPage(ctx, item.url)
		if !ok {
			continue
		}
		key := pageKey(item.url)
		raw[rank.Page(key)] = make([]string, 0, len(links))

		for _, link := range links {
			target := pageKey(link)
			raw[rank.Page(key)] = append(raw[rank.Page(key)], target)

			if item.depth >= s.maxDepth || seen[target] || !s.shouldCrawl(link) {
				continue
			}
			seen[target] = true
			queue = append(queue, queueItem{url: link, depth: item.depth + 1})
		}

		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				crawlErr = ctx.Err()
			case <-time.After(s.delay):
			}
			if crawlErr != nil {
				break
			}
		}
	}

	if len(raw) == 0 {
		if crawlErr != nil {
			return nil, crawlErr
		}
		return nil, fmt.Errorf("%w: %s", ErrNoPages, start.String())
	}

	g, err := closeGraph(raw)
	if err != nil {
		return nil, err
	}
	return g, crawlErr
}

// fetchPage downloads an HTML page and returns its same-host links.
// It reports false when the page does not become part of the graph.
func (s *Spider) fetchPage(ctx context.Context, pageURL *url.URL) ([]*url.URL, bool) {
	logger := s.logger.With(slog.String("url", pageURL.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		s.stats.PagesFailed++
		logger.Debug("failed to build request", slog.String("error", err.Error()))
		return nil, false
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		s.stats.PagesFailed++
		logger.Debug("request failed", slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.stats.PagesFailed++
		logger.Debug("unexpected status", slog.Int("status", resp.StatusCode))
		return nil, false
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		s.stats.PagesSkipped++
		logger.Debug("skipping non-HTML response", slog.String("content_type", resp.Header.Get("Content-Type")))
		return nil, false
	}

	// Links resolve against the final URL so redirects are honored.
	base := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	parser := &Parser{baseURL: base}
	result, err := parser.Parse(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		s.stats.PagesFailed++
		logger.Debug("failed to parse page", slog.String("error", err.Error()))
		return nil, false
	}

	s.stats.PagesFetched++
	logger.Debug("fetched page", slog.String("title", result.Title), slog.Int("links", len(result.InternalLinks)))

	links := make([]*url.URL, 0, len(result.InternalLinks))
	for _, link := range result.InternalLinks {
		u, err := url.Parse(link)
		if err != nil || !strings.EqualFold(u.Host, pageURL.Host) {
			continue
		}
		links = append(links, u)
	}
	return links, true
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// pageKey names a page by its cleaned path and query. The fragment, scheme
// and host are not part of the name.
func pageKey(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if trailing && p != "/" {
		p += "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// shouldCrawl applies the ignore patterns first, then the follow patterns.
func (s *Spider) shouldCrawl(u *url.URL) bool {
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern reports whether p matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it.
//   - "*.pdf" matches any path ending in ".pdf".
//   - Other patterns use path.Match, and patterns without a slash are also
//     tried against the last path element.
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}

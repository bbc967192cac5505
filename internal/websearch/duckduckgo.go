// Package websearch queries the DuckDuckGo HTML endpoint and turns result
// links into text snippets for the LLM.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/katakuxiko/luminarag/internal/model"
)

const (
	DefaultBaseURL    = "https://html.duckduckgo.com/html/"
	DefaultMaxResults = 5

	// NoResults is what FormatResults renders for an empty result list.
	NoResults = "No web results found."

	userAgent = "Mozilla/5.0"
)

// Result is one search hit.
type Result struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Client scrapes search results. It is safe for concurrent use; requests
// are throttled by a shared limiter.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// New creates a client. ratePerSec <= 0 disables throttling.
func New(baseURL string, ratePerSec float64, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Search returns up to maxResults results for query. Non-200 responses and
// transport errors wrap model.ErrSearch.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSearch, err)
	}

	u := c.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSearch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", model.ErrSearch, resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", model.ErrSearch, err)
	}
	return collectResults(doc, maxResults), nil
}

// collectResults walks the document for <a class="result__a"> anchors.
func collectResults(root *html.Node, limit int) []Result {
	var out []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			out = append(out, Result{
				Title: strings.Join(strings.Fields(textOf(n)), " "),
				Link:  unwrapLink(attr(n, "href")),
			})
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// FormatResults renders results as "- title (link)" lines, or NoResults.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}
	lines := make([]string, len(results))
	for i, r := range results {
		lines[i] = fmt.Sprintf("- %s (%s)", r.Title, r.Link)
	}
	return strings.Join(lines, "\n")
}

// unwrapLink resolves DuckDuckGo redirect links (/l/?uddg=<target>).
func unwrapLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

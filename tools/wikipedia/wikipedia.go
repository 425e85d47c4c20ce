// Package wikipedia looks up article summaries through the Wikipedia REST API.
package wikipedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/KamdynS/agent-contrib/tools"
	webhttp "github.com/KamdynS/agent-contrib/tools/http"
)

// DefaultBaseURL is the English Wikipedia.
const DefaultBaseURL = "https://en.wikipedia.org"

// ErrNoArticle is returned when neither the title nor a search finds a page.
var ErrNoArticle = errors.New("no good Wikipedia search result was found")

// Summary is the lead section of an article.
type Summary struct {
	Title   string
	Extract string
	URL     string
}

// Client talks to one Wikipedia site.
type Client struct {
	BaseURL string
	Client  *http.Client
}

// New returns a client for en.wikipedia.org.
func New() *Client {
	return &Client{BaseURL: DefaultBaseURL, Client: webhttp.NewClient(10*time.Second, 2)}
}

// Lookup returns the summary for title. When the title has no page it falls
// back to the first hit of the site search.
func (c *Client) Lookup(ctx context.Context, title string) (*Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("wikipedia: empty query")
	}
	s, err := c.summary(ctx, title)
	if !errors.Is(err, ErrNoArticle) {
		return s, err
	}
	found, err := c.search(ctx, title)
	if err != nil {
		return nil, err
	}
	return c.summary(ctx, found)
}

func (c *Client) summary(ctx context.Context, title string) (*Summary, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNoArticle
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("wikipedia: summary %q: status %d", title, status)
	}
	res := gjson.ParseBytes(body)
	if res.Get("type").String() == "disambiguation" && res.Get("extract").String() == "" {
		return nil, ErrNoArticle
	}
	return &Summary{
		Title:   res.Get("title").String(),
		Extract: res.Get("extract").String(),
		URL:     res.Get("content_urls.desktop.page").String(),
	}, nil
}

// search scrapes the first result title off the search results page.
func (c *Client) search(ctx context.Context, query string) (string, error) {
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/w/index.php?" + url.Values{"search": {query}, "fulltext": {"1"}, "ns0": {"1"}}.Encode()
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("wikipedia: search %q: status %d", query, status)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("wikipedia: parse search page: %w", err)
	}
	first := doc.Find(".mw-search-result-heading a").First()
	title := strings.TrimSpace(first.AttrOr("title", first.Text()))
	if title == "" {
		return "", ErrNoArticle
	}
	return title, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", webhttp.UserAgent)
	req.Header.Set("Accept", "application/json, text/html")
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, 0, err
	}
	return b, resp.StatusCode, nil
}

// Args is the tool input.
type Args struct {
	Query string `json:"query" jsonschema:"description=Article title or search terms" validate:"required"`
}

// NewTool exposes c as the "wikipedia" tool. Its output is
// "Page: {title}\nSummary: {extract}".
func NewTool(c *Client) tools.Tool {
	return tools.NewFunc("wikipedia",
		"Search Wikipedia for encyclopedic knowledge, definitions, and background information.",
		func(ctx context.Context, a Args) (string, error) {
			s, err := c.Lookup(ctx, a.Query)
			if errors.Is(err, ErrNoArticle) {
				return "No good Wikipedia Search Result was found", nil
			}
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Page: %s\nSummary: %s", s.Title, s.Extract), nil
		})
}

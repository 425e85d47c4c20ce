// Package webpage fetches a page and reduces it to its readable content.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/KamdynS/agent-contrib/tools"
	webhttp "github.com/KamdynS/agent-contrib/tools/http"
)

const (
	// DefaultMaxChars caps the content handed to the model.
	DefaultMaxChars = 20000
	maxPageBytes    = 5 << 20
)

// BrowserUserAgent is what sites see; some refuse unknown agents.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Page is a fetched and cleaned document.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt,omitempty"`
	Text     string `json:"text"`
	Markdown string `json:"markdown"`
}

// Fetcher downloads pages.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	MaxChars  int
}

// NewFetcher returns a fetcher with a 30s timeout and 2 requests per second
// per host.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: webhttp.NewClient(30*time.Second, 2), UserAgent: BrowserUserAgent, MaxChars: DefaultMaxChars}
}

// Fetch downloads rawURL and extracts it.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status code %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	return Extract(body, resp.Request.URL, f.MaxChars)
}

// Extract runs readability for the title and plain text, and renders the
// main content as sanitized markdown.
func Extract(body []byte, u *url.URL, maxChars int) (*Page, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	page := &Page{URL: u.String()}
	if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Excerpt = strings.TrimSpace(article.Excerpt)
		page.Text = bluemonday.StrictPolicy().Sanitize(article.TextContent)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("head title").Text())
	}
	if page.Text == "" {
		page.Text = collapse(doc.Find("body").Text())
	}
	main := mainContent(doc)
	safe := bluemonday.UGCPolicy().Sanitize(main)
	md, err := htmltomarkdown.ConvertString(safe, converter.WithDomain(u.Scheme+"://"+u.Host))
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	page.Markdown = truncate(cleanMarkdown(md), maxChars)
	page.Text = truncate(strings.TrimSpace(page.Text), maxChars)
	return page, nil
}

func mainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()
	for _, sel := range []string{"main", "article", "#content, #main", ".content, .main", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			if h, err := s.Html(); err == nil && strings.TrimSpace(h) != "" {
				return h
			}
		}
	}
	h, _ := doc.Html()
	return h
}

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaces     = regexp.MustCompile(`\s+`)
)

func cleanMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func collapse(s string) string { return strings.TrimSpace(spaces.ReplaceAllString(s, " ")) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n... (content truncated) ..."
}

// Args of the fetch_webpage tool.
type Args struct {
	URL    string `json:"url" jsonschema:"description=The full URL of the webpage" validate:"required,url"`
	Format string `json:"format,omitempty" jsonschema:"enum=markdown,enum=text,description=Output format (default markdown)"`
}

// NewTool exposes f as fetch_webpage.
func NewTool(f *Fetcher) tools.Tool {
	return tools.NewFunc("fetch_webpage", "Fetch a webpage URL and extract the main content as clean markdown or text.",
		func(ctx context.Context, a Args) (string, error) {
			p, err := f.Fetch(ctx, a.URL)
			if err != nil {
				return "Error: " + err.Error(), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "TITLE: %s\n", p.Title)
			if p.Excerpt != "" {
				fmt.Fprintf(&b, "EXCERPT: %s\n", p.Excerpt)
			}
			b.WriteString("\n-- CONTENT --\n")
			if a.Format == "text" {
				b.WriteString(p.Text)
			} else {
				b.WriteString(p.Markdown)
			}
			return b.String(), nil
		})
}

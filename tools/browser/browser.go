// Package browser drives a shared headless Chrome through chromedp and
// exposes it as a small set of navigation tools.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/KamdynS/agent-contrib/tools"
)

// ActionTimeout bounds every browser action.
const ActionTimeout = 60 * time.Second

// MaxTextChars caps extract_text output.
const MaxTextChars = 20000

// Browser is a lazily started Chrome instance shared by all browser tools.
type Browser struct {
	Headless bool
	// ExecPath overrides chromedp's Chrome discovery when set.
	ExecPath string

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// New returns a headless browser. Chrome is not started until first use.
func New() *Browser { return &Browser{Headless: true} }

func (b *Browser) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return b.browserCtx, nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", b.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(b.browserCtx); err != nil {
		b.cleanup()
		return nil, err
	}
	return b.browserCtx, nil
}

func (b *Browser) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts Chrome down. The next action starts a fresh instance.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanup()
}

// run executes actions on the shared tab, cancelled by ctx or ActionTimeout.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	bctx, err := b.start()
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	actx, cancel := context.WithTimeout(bctx, ActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(actx, actions...)
}

// Navigate loads u.
func (b *Browser) Navigate(ctx context.Context, u string) (string, error) {
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("url %q must use http or https", u)
	}
	if err := b.run(ctx, chromedp.Navigate(u)); err != nil {
		return "", err
	}
	return "Navigated to " + u, nil
}

// HTML returns the current document.
func (b *Browser) HTML(ctx context.Context) (string, error) {
	var html string
	err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Location returns the current URL.
func (b *Browser) Location(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, chromedp.Location(&loc))
	return loc, err
}

// Click clicks the first visible element matching selector.
func (b *Browser) Click(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Back navigates one entry back in history.
func (b *Browser) Back(ctx context.Context) error {
	return b.run(ctx, chromedp.NavigateBack())
}

// Text is the visible text of html with whitespace collapsed.
func Text(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Links returns the absolute http(s) links in html, deduplicated in document order.
func Links(html, base string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	baseURL, _ := url.Parse(base)
	seen := map[string]bool{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		ref, err := url.Parse(strings.TrimSpace(s.AttrOr("href", "")))
		if err != nil {
			return
		}
		if baseURL != nil {
			ref = baseURL.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return
		}
		ref.Fragment = ""
		link := ref.String()
		if !seen[link] {
			seen[link] = true
			out = append(out, link)
		}
	})
	return out, nil
}

type urlArgs struct {
	URL string `json:"url" jsonschema:"description=URL to navigate to" validate:"required,url"`
}

type selectorArgs struct {
	Selector string `json:"selector" jsonschema:"description=CSS selector for the element to click" validate:"required"`
}

type noArgs struct{}

// Tools returns the browser toolkit. Action failures are reported as text so
// the model can recover.
func Tools(b *Browser) []tools.Tool {
	failed := func(err error) string { return "Browser action failed: " + err.Error() }
	return []tools.Tool{
		tools.NewFunc("navigate_browser", "Navigate a browser to the specified URL",
			func(ctx context.Context, a urlArgs) (string, error) {
				out, err := b.Navigate(ctx, a.URL)
				if err != nil {
					return failed(err), nil
				}
				return out, nil
			}),
		tools.NewFunc("extract_text", "Extract all the text on the current webpage",
			func(ctx context.Context, _ noArgs) (string, error) {
				html, err := b.HTML(ctx)
				if err != nil {
					return failed(err), nil
				}
				text, err := Text(html)
				if err != nil {
					return failed(err), nil
				}
				if r := []rune(text); len(r) > MaxTextChars {
					text = string(r[:MaxTextChars]) + "\n... (truncated)"
				}
				return text, nil
			}),
		tools.NewFunc("extract_hyperlinks", "Extract all hyperlinks on the current webpage",
			func(ctx context.Context, _ noArgs) (string, error) {
				html, err := b.HTML(ctx)
				if err != nil {
					return failed(err), nil
				}
				loc, err := b.Location(ctx)
				if err != nil {
					return failed(err), nil
				}
				links, err := Links(html, loc)
				if err != nil {
					return failed(err), nil
				}
				if links == nil {
					links = []string{}
				}
				out, _ := json.Marshal(links)
				return string(out), nil
			}),
		tools.NewFunc("current_webpage", "Returns the URL of the current page",
			func(ctx context.Context, _ noArgs) (string, error) {
				loc, err := b.Location(ctx)
				if err != nil {
					return failed(err), nil
				}
				return loc, nil
			}),
		tools.NewFunc("click_element", "Click on an element with the given CSS selector",
			func(ctx context.Context, a selectorArgs) (string, error) {
				if err := b.Click(ctx, a.Selector); err != nil {
					return fmt.Sprintf("Unable to click on element '%s': %v", a.Selector, err), nil
				}
				return fmt.Sprintf("Clicked element '%s'", a.Selector), nil
			}),
		tools.NewFunc("previous_webpage", "Navigate back to the previous page in the browser history",
			func(ctx context.Context, _ noArgs) (string, error) {
				if err := b.Back(ctx); err != nil {
					return "Unable to navigate back; " + err.Error(), nil
				}
				loc, _ := b.Location(ctx)
				return "Navigated back to the previous page with URL '" + loc + "'", nil
			}),
	}
}

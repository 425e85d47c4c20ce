package sidekick

import (
	"fmt"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/tools"
	"github.com/KamdynS/agent-contrib/tools/browser"
	"github.com/KamdynS/agent-contrib/tools/files"
	httptool "github.com/KamdynS/agent-contrib/tools/http"
	"github.com/KamdynS/agent-contrib/tools/push"
	"github.com/KamdynS/agent-contrib/tools/search"
	"github.com/KamdynS/agent-contrib/tools/textops"
	"github.com/KamdynS/agent-contrib/tools/webpage"
	"github.com/KamdynS/agent-contrib/tools/wikipedia"
)

// ToolOptions picks the sidekick toolbox. Zero values leave a tool out,
// except search which falls back to DuckDuckGo.
type ToolOptions struct {
	// Model backs the summarizer and translator.
	Model     llm.Client
	SerperKey string
	// SearchName renames the search tool. Defaults to "search".
	SearchName string
	PushToken  string
	PushUser   string
	// SandboxRoot enables the file tools under this directory.
	SandboxRoot string
	Browser     *browser.Browser
	Wikipedia   bool
	// WebPage adds fetch_webpage, a readable markdown view of a URL.
	WebPage bool
	// HTTPRequests adds the raw http_request tool, limited per host.
	HTTPRequests bool
}

// Toolbox assembles the registry a sidekick works with.
func Toolbox(opts ToolOptions) (*tools.DefaultRegistry, error) {
	reg := tools.NewRegistry()
	add := func(ts ...tools.Tool) error {
		for _, t := range ts {
			if err := reg.Register(t); err != nil {
				return err
			}
		}
		return nil
	}

	backend, err := search.Default(opts.SerperKey)
	if err != nil {
		return nil, fmt.Errorf("search backend: %w", err)
	}
	name := opts.SearchName
	if name == "" {
		name = "search"
	}
	if err := add(search.NewTool(name, "Use this tool when you want to get the results of an online web search", backend)); err != nil {
		return nil, err
	}
	if opts.Browser != nil {
		if err := add(browser.Tools(opts.Browser)...); err != nil {
			return nil, err
		}
	}
	if opts.Wikipedia {
		if err := add(wikipedia.NewTool(wikipedia.New())); err != nil {
			return nil, err
		}
	}
	if opts.WebPage {
		if err := add(webpage.NewTool(webpage.NewFetcher())); err != nil {
			return nil, err
		}
	}
	if opts.HTTPRequests {
		if err := add(httptool.NewRequestTool(20*time.Second, 2)); err != nil {
			return nil, err
		}
	}
	if opts.SandboxRoot != "" {
		sb, err := files.NewSandbox(opts.SandboxRoot)
		if err != nil {
			return nil, fmt.Errorf("sandbox: %w", err)
		}
		if err := add(sb.Tools()...); err != nil {
			return nil, err
		}
	}
	if opts.PushToken != "" && opts.PushUser != "" {
		if err := add(push.NewTool(push.New(opts.PushToken, opts.PushUser))); err != nil {
			return nil, err
		}
	}
	if opts.Model != nil {
		if err := add(textops.Tools(opts.Model)...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// EventToolbox is the event planner's registry: event_search, the browser
// and files under EventSandbox.
func EventToolbox(serperKey string, b *browser.Browser) (*tools.DefaultRegistry, error) {
	return Toolbox(ToolOptions{SerperKey: serperKey, SearchName: "event_search", Browser: b, SandboxRoot: EventSandbox, WebPage: true})
}

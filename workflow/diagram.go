package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// MermaidOption configures Mermaid rendering.
type MermaidOption func(*mermaidConfig)

type mermaidConfig struct {
	direction               string // TD, LR, BT, RL
	showConditionIndicators bool   // label conditional edges with their route key
}

// WithDirection sets graph direction (e.g., "TD", "LR").
func WithDirection(dir string) MermaidOption {
	return func(c *mermaidConfig) {
		dir = strings.TrimSpace(strings.ToUpper(dir))
		switch dir {
		case "TD", "LR", "BT", "RL":
			c.direction = dir
		}
	}
}

// WithConditionIndicators toggles route-key labels on conditional edges.
func WithConditionIndicators(enabled bool) MermaidOption {
	return func(c *mermaidConfig) { c.showConditionIndicators = enabled }
}

// Mermaid renders the graph as a Mermaid flowchart definition. Static edges
// are solid, conditional edges dotted. Output starts with `graph TD` by default.
func (g *Graph[S]) Mermaid(opts ...MermaidOption) string {
	cfg := mermaidConfig{direction: "TD"}
	for _, o := range opts {
		o(&cfg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", cfg.direction)
	fmt.Fprintf(&b, "%s([\"%s\"])\n", START, "start")
	for _, name := range g.order {
		fmt.Fprintf(&b, "%s[\"%s\"]\n", mermaidID(name), strings.ReplaceAll(name, "\"", "\\\""))
	}
	fmt.Fprintf(&b, "%s([\"%s\"])\n", END, "end")

	for _, from := range append([]string{START}, g.order...) {
		if to, ok := g.edges[from]; ok {
			fmt.Fprintf(&b, "%s --> %s\n", mermaidID(from), mermaidID(to))
			continue
		}
		c, ok := g.conds[from]
		if !ok {
			continue
		}
		routes := c.pathMap
		if routes == nil {
			routes = make(map[string]string, len(g.order)+1)
			for _, n := range g.order {
				routes[n] = n
			}
			routes[END] = END
		}
		keys := make([]string, 0, len(routes))
		for k := range routes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if cfg.showConditionIndicators {
				fmt.Fprintf(&b, "%s -.->|%s| %s\n", mermaidID(from), k, mermaidID(routes[k]))
			} else {
				fmt.Fprintf(&b, "%s -.-> %s\n", mermaidID(from), mermaidID(routes[k]))
			}
		}
	}
	return b.String()
}

// mermaidID keeps node names usable as identifiers.
func mermaidID(name string) string {
	if name == START || name == END {
		return name
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

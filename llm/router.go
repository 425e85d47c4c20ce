package llm

import (
	"context"
	"errors"
	"strings"
)

// RoutePolicy decides which client/model to use for a given request
type RoutePolicy interface {
	// Select returns the target client to use and (optionally) a model override
	Select(req *ChatRequest) (Client, string, error)
}

// StaticPolicy routes by req.Model if present, otherwise uses default
type StaticPolicy struct {
	Default Client
	ByModel map[string]Client
}

func (p StaticPolicy) Select(req *ChatRequest) (Client, string, error) {
	if req != nil && req.Model != "" {
		if c, ok := p.ByModel[req.Model]; ok && c != nil {
			return c, req.Model, nil
		}
	}
	if p.Default == nil {
		return nil, "", errors.New("no default client configured")
	}
	if req != nil {
		return p.Default, req.Model, nil
	}
	return p.Default, "", nil
}

// PrefixPolicy routes models written as "provider/model" to the client registered
// for that provider and strips the prefix. OpenRouter model ids contain a slash
// themselves ("xiaomi/mimo-v2-flash:free"), so only registered prefixes are stripped.
type PrefixPolicy struct {
	Default    Client
	ByProvider map[Provider]Client
}

func (p PrefixPolicy) Select(req *ChatRequest) (Client, string, error) {
	if req != nil && req.Model != "" {
		if prefix, rest, ok := strings.Cut(req.Model, "/"); ok {
			if c, found := p.ByProvider[Provider(prefix)]; found && c != nil {
				return c, rest, nil
			}
		}
	}
	return StaticPolicy{Default: p.Default}.Select(req)
}

// RouterClient implements Client and delegates to inner clients via RoutePolicy
type RouterClient struct {
	policy RoutePolicy
}

func NewRouterClient(policy RoutePolicy) *RouterClient { return &RouterClient{policy: policy} }

func (r *RouterClient) route(req *ChatRequest) (Client, *ChatRequest, error) {
	c, model, err := r.policy.Select(req)
	if err != nil {
		return nil, nil, err
	}
	if req == nil {
		req = &ChatRequest{}
	}
	if model != req.Model {
		cp := *req
		cp.Model = model
		req = &cp
	}
	return c, req, nil
}

func (r *RouterClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	c, req, err := r.route(req)
	if err != nil {
		return nil, err
	}
	return c.Chat(ctx, req)
}

func (r *RouterClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	c, _, err := r.policy.Select(&ChatRequest{})
	if err != nil {
		return nil, err
	}
	return c.Completion(ctx, prompt)
}

func (r *RouterClient) Stream(ctx context.Context, req *ChatRequest, output chan<- *Response) error {
	c, req, err := r.route(req)
	if err != nil {
		return err
	}
	return c.Stream(ctx, req, output)
}

func (r *RouterClient) Model() string      { return "router" }
func (r *RouterClient) Provider() Provider { return Provider("router") }
func (r *RouterClient) Validate() error {
	if r.policy == nil {
		return errors.New("nil route policy")
	}
	return nil
}

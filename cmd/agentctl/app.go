package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KamdynS/agent-contrib/activity"
	"github.com/KamdynS/agent-contrib/config"
	"github.com/KamdynS/agent-contrib/crew"
	"github.com/KamdynS/agent-contrib/guardrail"
	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/llm/anthropic"
	"github.com/KamdynS/agent-contrib/llm/openai"
	"github.com/KamdynS/agent-contrib/mcp"
	"github.com/KamdynS/agent-contrib/mcpserver"
	"github.com/KamdynS/agent-contrib/memory"
	"github.com/KamdynS/agent-contrib/memory/inmemory"
	"github.com/KamdynS/agent-contrib/memory/redis"
	"github.com/KamdynS/agent-contrib/memory/vector/pgvector"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/observability/filetrace"
	"github.com/KamdynS/agent-contrib/observability/otel"
	"github.com/KamdynS/agent-contrib/rag"
	"github.com/KamdynS/agent-contrib/research"
	"github.com/KamdynS/agent-contrib/sidekick"
	"github.com/KamdynS/agent-contrib/tools"
	"github.com/KamdynS/agent-contrib/tools/browser"
	"github.com/KamdynS/agent-contrib/tools/email"
	"github.com/KamdynS/agent-contrib/tools/search"
	"github.com/KamdynS/agent-contrib/tools/ticketmaster"
	"github.com/KamdynS/agent-contrib/tools/weatherapi"
)

// app builds the agents from the loaded configuration. Resources opened on
// the way are released by close.
type app struct {
	cfg     *config.Config
	closers []func() error
	store   memory.Store
}

func newApp(cfg *config.Config) *app { return &app{cfg: cfg} }

func (a *app) onClose(fn func() error) { a.closers = append(a.closers, fn) }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// setupTracing installs the configured global tracer.
func (a *app) setupTracing() error {
	t := a.cfg.Tracing
	switch t.Exporter {
	case "memory":
		obs.SetTracer(obs.NewDefaultTracer())
	case "file":
		ft, err := filetrace.New(t.Dir, filetrace.WithLogger(obs.Component("filetrace")))
		if err != nil {
			return err
		}
		obs.SetTracer(ft)
		a.onClose(ft.Shutdown)
	case "otel":
		obs.SetTracer(otel.NewTracer(t.ServiceName))
	}
	return nil
}

// model returns a client for the configured provider, optionally overriding
// the model name.
func (a *app) model(name string) (llm.Client, error) {
	if err := a.cfg.RequireLLM(); err != nil {
		return nil, err
	}
	c := a.cfg.WithModel(name)
	var client llm.Client
	var err error
	switch c.Provider {
	case llm.ProviderAnthropic:
		client, err = anthropic.NewClient(anthropic.FromConfig(c))
	default:
		client, err = openai.NewClient(openai.FromConfig(c))
	}
	if err != nil {
		return nil, err
	}
	return llm.NewInstrumentedClient(client), nil
}

// checkpoints is the store behind graph checkpoints.
func (a *app) checkpoints(ctx context.Context) (memory.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.Memory.Backend == "redis" {
		if a.cfg.Memory.RedisURL == "" {
			return nil, errors.New("memory backend redis needs REDIS_URL")
		}
		s, err := redis.NewFromURL(ctx, a.cfg.Memory.RedisURL, a.cfg.Memory.TTL, "agent")
		if err != nil {
			return nil, err
		}
		a.onClose(s.Client().Close)
		a.store = s
		return s, nil
	}
	a.store = inmemory.NewStore()
	return a.store, nil
}

func (a *app) limiter(ctx context.Context) (guardrail.Limiter, error) {
	r := a.cfg.Research
	if a.cfg.Memory.Backend == "redis" {
		st, err := a.checkpoints(ctx)
		if err != nil {
			return nil, err
		}
		return guardrail.NewRedisLimiter(st.(*redis.Store).Client(), r.RateLimit, r.RateWindow), nil
	}
	return guardrail.NewSlidingWindow(r.RateLimit, r.RateWindow), nil
}

func (a *app) searchTool() (tools.Tool, error) {
	backend, err := search.Default(a.cfg.Keys.Serper)
	if err != nil {
		return nil, err
	}
	return search.NewTool("search", "Search the web for current information on a topic", backend), nil
}

// researcher is either the fixed pipeline manager or the tool driven
// orchestrator.
type researcher interface {
	Run(ctx context.Context, query string) <-chan string
}

func (a *app) researcher(ctx context.Context) (researcher, *research.Clarifier, error) {
	model, err := a.model(a.cfg.Research.Model)
	if err != nil {
		return nil, nil, err
	}
	searchTool, err := a.searchTool()
	if err != nil {
		return nil, nil, err
	}
	r := a.cfg.Research
	send := email.NewTool(email.NewSender(a.cfg.Keys.SendGrid, r.EmailFrom, r.EmailTo))
	clarifier := &research.Clarifier{Model: model}
	if r.Mode == "orchestrator" {
		return research.NewOrchestrator(model, searchTool, send), clarifier, nil
	}
	m := research.NewManager(research.NewAgents(model, searchTool, send))
	m.Concurrency = r.Concurrency
	m.TraceURL = r.TraceURL
	if m.Limiter, err = a.limiter(ctx); err != nil {
		return nil, nil, err
	}
	return m, clarifier, nil
}

// sidekickFactory returns a constructor sharing one toolbox and checkpoint
// store between sidekicks.
func (a *app) sidekickFactory(ctx context.Context) (func() (*sidekick.Sidekick, error), error) {
	sc := a.cfg.Sidekick
	worker, err := a.model(sc.WorkerModel)
	if err != nil {
		return nil, err
	}
	evaluator, err := a.model(sc.EvaluatorModel)
	if err != nil {
		return nil, err
	}
	opts := sidekick.ToolOptions{
		Model:        worker,
		SerperKey:    a.cfg.Keys.Serper,
		PushToken:    a.cfg.Keys.PushoverToken,
		PushUser:     a.cfg.Keys.PushoverUser,
		SandboxRoot:  sc.SandboxRoot,
		Wikipedia:    true,
		WebPage:      true,
		HTTPRequests: sc.HTTPRequests,
	}
	if sc.Browser {
		b := browser.New()
		a.onClose(func() error { b.Close(); return nil })
		opts.Browser = b
	}
	reg, err := sidekick.Toolbox(opts)
	if err != nil {
		return nil, err
	}
	store, err := a.checkpoints(ctx)
	if err != nil {
		return nil, err
	}
	guards := guardrail.NewManager(evaluator, sc.MaxTokens)
	return func() (*sidekick.Sidekick, error) {
		return sidekick.New(sidekick.Config{
			Worker:         worker,
			Evaluator:      evaluator,
			Tools:          reg,
			Guardrails:     guards,
			Store:          store,
			RecursionLimit: sc.RecursionLimit,
		})
	}, nil
}

// activity connects to the weather MCP server, spawning it when a command
// is configured and running it in process otherwise.
func (a *app) activity(ctx context.Context) (*activity.Assistant, error) {
	model, err := a.model(a.cfg.Activity.Model)
	if err != nil {
		return nil, err
	}
	var session *mcp.StdioClient
	if cmd := a.cfg.Activity.WeatherCommand; len(cmd) > 0 {
		session, err = mcp.NewStdioClient(ctx, mcp.StdioConfig{Command: cmd[0], Args: cmd[1:]})
	} else {
		ct, st := sdkmcp.NewInMemoryTransports()
		ss, serr := mcpserver.Weather(weatherapi.New(a.cfg.Keys.WeatherAPI)).Connect(ctx, st, nil)
		if serr != nil {
			return nil, serr
		}
		a.onClose(ss.Close)
		session, err = mcp.Connect(ctx, ct, "", "")
	}
	if err != nil {
		return nil, fmt.Errorf("weather server: %w", err)
	}
	a.onClose(session.Close)
	return activity.New(model, activity.MCPWeather{Session: session}, ticketmaster.New(a.cfg.Keys.Ticketmaster)), nil
}

// embeddingDims is the width of text-embedding-3-small vectors.
const embeddingDims = 1536

// crew wires long-term memory in SQLite and, when an OpenAI key is
// available for embeddings, short-term memory in pgvector or in memory.
func (a *app) crew(ctx context.Context) (*crew.Crew, error) {
	model, err := a.model("")
	if err != nil {
		return nil, err
	}
	searchTool, err := a.searchTool()
	if err != nil {
		return nil, err
	}
	c, err := crew.New(model, searchTool)
	if err != nil {
		return nil, err
	}
	if path := a.cfg.Memory.LongTermDB; path != "" {
		lt, err := crew.OpenLongTermMemory(path)
		if err != nil {
			return nil, err
		}
		a.onClose(lt.Close)
		c.LongTerm = lt
	}
	key := a.cfg.Keys.OpenAI
	if a.cfg.LLM.Provider == llm.ProviderOpenAI {
		key = a.cfg.LLM.APIKey
	}
	if key == "" {
		return c, nil
	}
	embedder, err := openai.NewClient(openai.Config{APIKey: key})
	if err != nil {
		return nil, err
	}
	var vs memory.VectorStore = inmemory.NewVectorStore()
	if dsn := a.cfg.Memory.DatabaseURL; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error { pool.Close(); return nil })
		pg := pgvector.New(pool, a.cfg.Memory.VectorTable)
		if err := pg.EnsureSchema(ctx, embeddingDims); err != nil {
			return nil, err
		}
		vs = pg
	}
	c.ShortTerm = &rag.Memory{Store: vs, Embedder: rag.OpenAIEmbedder{Client: embedder}}
	return c, nil
}

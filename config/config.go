// Package config loads process configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
)

// EnvPrefix prefixes every config key in the environment, with dots as
// underscores: AGENT_LLM_MODEL sets llm.model.
const EnvPrefix = "AGENT"

// Config is the whole process configuration.
type Config struct {
	LLM       llm.Config      `mapstructure:"llm"`
	Keys      Keys            `mapstructure:"keys"`
	Research  ResearchConfig  `mapstructure:"research"`
	Sidekick  SidekickConfig  `mapstructure:"sidekick"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Expense   ExpenseConfig   `mapstructure:"expense"`
	LangAudit LangAuditConfig `mapstructure:"langaudit"`
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       obs.LogConfig   `mapstructure:"log"`
}

// Keys are third party credentials. Each is also read from its conventional
// environment variable.
type Keys struct {
	OpenAI          string `mapstructure:"openai"`
	OpenRouter      string `mapstructure:"openrouter"`
	Anthropic       string `mapstructure:"anthropic"`
	AzureOpenAI     string `mapstructure:"azure_openai"`
	AzureEndpoint   string `mapstructure:"azure_endpoint"`
	AzureDeployment string `mapstructure:"azure_deployment"`
	Serper          string `mapstructure:"serper"`
	SendGrid        string `mapstructure:"sendgrid"`
	Ticketmaster    string `mapstructure:"ticketmaster"`
	WeatherAPI      string `mapstructure:"weatherapi"`
	PushoverToken   string `mapstructure:"pushover_token"`
	PushoverUser    string `mapstructure:"pushover_user"`
}

var envNames = map[string]string{
	"keys.openai":           "OPENAI_API_KEY",
	"keys.openrouter":       "OPENROUTER_API_KEY",
	"keys.anthropic":        "ANTHROPIC_API_KEY",
	"keys.azure_openai":     "AZURE_OPENAI_API_KEY",
	"keys.azure_endpoint":   "AZURE_OPENAI_ENDPOINT",
	"keys.azure_deployment": "AZURE_OPENAI_DEPLOYMENT",
	"keys.serper":           "SERPER_API_KEY",
	"keys.sendgrid":         "SENDGRID_API_KEY",
	"keys.ticketmaster":     "TICKETMASTER_KEY",
	"keys.weatherapi":       "WEATHERAPI_KEY",
	"keys.pushover_token":   "PUSHOVER_TOKEN",
	"keys.pushover_user":    "PUSHOVER_USER",
	"telegram.token":        "TELEGRAM_BOT_TOKEN",
	"memory.redis_url":      "REDIS_URL",
	"memory.database_url":   "DATABASE_URL",
}

// ResearchConfig configures the deep research manager.
type ResearchConfig struct {
	Model       string        `mapstructure:"model"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=0,max=20"`
	RateLimit   int           `mapstructure:"rate_limit" validate:"min=0"`
	RateWindow  time.Duration `mapstructure:"rate_window"`
	TraceURL    string        `mapstructure:"trace_url"`
	EmailFrom   string        `mapstructure:"email_from" validate:"omitempty,email"`
	EmailTo     string        `mapstructure:"email_to" validate:"omitempty,email"`
	// Mode is "manager" (fixed pipeline) or "orchestrator" (agent with tools).
	Mode string `mapstructure:"mode" validate:"oneof=manager orchestrator"`
}

// SidekickConfig configures the worker/evaluator graph.
type SidekickConfig struct {
	WorkerModel    string `mapstructure:"worker_model"`
	EvaluatorModel string `mapstructure:"evaluator_model"`
	SandboxRoot    string `mapstructure:"sandbox_root" validate:"required"`
	RecursionLimit int    `mapstructure:"recursion_limit" validate:"min=1"`
	MaxTokens      int    `mapstructure:"max_tokens" validate:"min=1"`
	Browser        bool   `mapstructure:"browser"`
	HTTPRequests   bool   `mapstructure:"http_requests"`
	Criteria       string `mapstructure:"criteria"`
}

// ActivityConfig configures the activity assistant.
type ActivityConfig struct {
	Model string `mapstructure:"model"`
	// WeatherCommand launches the weather MCP server over stdio. Empty runs it
	// in process.
	WeatherCommand []string `mapstructure:"weather_command"`
}

// ExpenseConfig selects the expense tracker backend.
type ExpenseConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path       string `mapstructure:"path"`
	Categories string `mapstructure:"categories"`
}

// LangAuditConfig sets the auditor's folders.
type LangAuditConfig struct {
	InputDir  string `mapstructure:"input_dir" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
	// ToolBridges are base URLs of HTTP tool bridges whose tools the chat
	// agent may call.
	ToolBridges []string `mapstructure:"tool_bridges" validate:"dive,url"`
	// BlockedTerms refuse chat messages containing any of them.
	BlockedTerms  []string `mapstructure:"blocked_terms"`
	ChatMaxTokens int      `mapstructure:"chat_max_tokens" validate:"min=1"`
}

// TelegramConfig configures the Telegram gateway.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// Responder is "sidekick" or "research".
	Responder string `mapstructure:"responder" validate:"oneof=sidekick research"`
}

// MemoryConfig selects where checkpoints, vectors and crew memory live.
type MemoryConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=inmemory redis"`
	RedisURL    string        `mapstructure:"redis_url"`
	TTL         time.Duration `mapstructure:"ttl"`
	DatabaseURL string        `mapstructure:"database_url"`
	VectorTable string        `mapstructure:"vector_table"`
	LongTermDB  string        `mapstructure:"long_term_db"`
}

// TracingConfig selects the tracer.
type TracingConfig struct {
	Exporter    string `mapstructure:"exporter" validate:"oneof=none memory file otel"`
	Dir         string `mapstructure:"dir"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", string(llm.ProviderOpenAI))
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout", 60*time.Second)
	for key := range envNames {
		v.SetDefault(key, "")
	}

	v.SetDefault("research.model", "")
	v.SetDefault("research.concurrency", 0)
	v.SetDefault("research.rate_limit", 10)
	v.SetDefault("research.rate_window", time.Hour)
	v.SetDefault("research.trace_url", "https://platform.openai.com/traces/trace?trace_id=")
	v.SetDefault("research.email_from", "")
	v.SetDefault("research.email_to", "")
	v.SetDefault("research.mode", "manager")

	v.SetDefault("sidekick.worker_model", "")
	v.SetDefault("sidekick.evaluator_model", "")
	v.SetDefault("sidekick.sandbox_root", "sandbox")
	v.SetDefault("sidekick.recursion_limit", 25)
	v.SetDefault("sidekick.max_tokens", 8000)
	v.SetDefault("sidekick.browser", false)
	v.SetDefault("sidekick.http_requests", false)
	v.SetDefault("sidekick.criteria", "")

	v.SetDefault("activity.model", "")
	v.SetDefault("activity.weather_command", []string{})

	v.SetDefault("expense.driver", "sqlite")
	v.SetDefault("expense.path", "expenses.db")
	v.SetDefault("expense.categories", "categories.json")

	v.SetDefault("langaudit.input_dir", "input")
	v.SetDefault("langaudit.output_dir", "output")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.enable_cors", false)
	v.SetDefault("server.tool_bridges", []string{})
	v.SetDefault("server.blocked_terms", []string{})
	v.SetDefault("server.chat_max_tokens", 16000)

	v.SetDefault("telegram.responder", "sidekick")

	v.SetDefault("memory.backend", "inmemory")
	v.SetDefault("memory.ttl", 24*time.Hour)
	v.SetDefault("memory.vector_table", "crew_memory")
	v.SetDefault("memory.long_term_db", "crew_memory.db")

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.dir", "sandbox")
	v.SetDefault("tracing.service_name", "agent-contrib")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

var validate = validator.New()

// Load reads path (optional) and the environment, resolves provider keys and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envNames {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.resolveLLM()
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// resolveLLM fills the LLM key, endpoint and model from the provider's
// conventional variables when they were not set directly.
func (c *Config) resolveLLM() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = llm.ProviderOpenAI
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case llm.ProviderOpenAI:
			c.LLM.APIKey = c.Keys.OpenAI
		case llm.ProviderOpenRouter:
			c.LLM.APIKey = c.Keys.OpenRouter
		case llm.ProviderAnthropic:
			c.LLM.APIKey = c.Keys.Anthropic
		case llm.ProviderAzure:
			c.LLM.APIKey = c.Keys.AzureOpenAI
		case llm.ProviderOllama:
			c.LLM.APIKey = "ollama"
		}
	}
	if c.LLM.Provider == llm.ProviderAzure {
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = c.Keys.AzureEndpoint
		}
		if c.LLM.Model == "" {
			c.LLM.Model = c.Keys.AzureDeployment
		}
	}
}

// ErrNoLLMKey is returned by RequireLLM when no key could be resolved.
var ErrNoLLMKey = errors.New("no API key for the configured LLM provider")

// RequireLLM reports whether the LLM section is usable.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w (%s)", ErrNoLLMKey, c.LLM.Provider)
	}
	return nil
}

// WithModel returns the LLM config with model swapped in when non-empty.
func (c *Config) WithModel(model string) llm.Config {
	out := c.LLM
	if model != "" {
		out.Model = model
	}
	return out
}

package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/rag"
	"github.com/KamdynS/agent-contrib/tools"
)

// EmergingCompany is a company in the news.
type EmergingCompany struct {
	Name   string `json:"name" jsonschema:"description=Company name" validate:"required"`
	Ticker string `json:"ticker" jsonschema:"description=Stock ticker symbol"`
	Reason string `json:"reason" jsonschema:"description=Reason this company is trending in the news"`
}

// EmergingCompanyList is the finder's output.
type EmergingCompanyList struct {
	Companies []EmergingCompany `json:"companies" jsonschema:"description=List of companies emerging and trending in the news" validate:"min=1,dive"`
}

// EmergingCompaniesResearch is the researcher's view of one company.
type EmergingCompaniesResearch struct {
	Name                string `json:"name" jsonschema:"description=Company name" validate:"required"`
	MarketPosition      string `json:"market_position" jsonschema:"description=Current market position and competitive analysis"`
	FutureOutlook       string `json:"future_outlook" jsonschema:"description=Future outlook and growth prospects"`
	InvestmentPotential string `json:"investment_potential" jsonschema:"description=Investment potential and suitability for investment"`
}

// EmergingCompaniesResearchList is the researcher's output.
type EmergingCompaniesResearchList struct {
	ResearchList []EmergingCompaniesResearch `json:"research_list" jsonschema:"description=Comprehensive research on all trending companies" validate:"min=1,dive"`
}

var outputSchemas = map[string]func() map[string]any{
	"emerging_companies": llm.SchemaFor[EmergingCompanyList],
	"company_research":   llm.SchemaFor[EmergingCompaniesResearchList],
}

// TaskOutput is the result of one task.
type TaskOutput struct {
	Name   string
	Agent  string
	Raw    string
	Parsed any
}

// Result is a finished crew run. Raw is the last task's output.
type Result struct {
	Tasks []TaskOutput
	Raw   string
}

// Crew runs the configured tasks in order.
type Crew struct {
	Config *Config
	Model  llm.Client
	// Tools maps the names used in the agent definitions to tools.
	Tools     map[string]tools.Tool
	ShortTerm *rag.Memory
	LongTerm  *LongTermMemory
	Runner    *core.Runner
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// New builds a crew from the embedded definition.
func New(model llm.Client, search tools.Tool) (*Crew, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	c := &Crew{Config: cfg, Model: model, Tools: map[string]tools.Tool{}, Runner: core.NewRunner(nil), Now: time.Now}
	if search != nil {
		c.Tools["search"] = search
	}
	return c, nil
}

var validate = validator.New()

// Kickoff runs every task in order.
func (c *Crew) Kickoff(ctx context.Context, in Inputs) (*Result, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("crew inputs: %w", err)
	}
	log := obs.LoggerOr(c.Logger, "crew")
	ctx, trace := obs.WithTrace(ctx, "crew")
	defer obs.EndTrace(ctx)
	log.Info().Str("trace_id", trace.ID).Str("topic", in.Topic).Msg("crew kickoff")

	r := in.replacer()
	res := &Result{}
	for _, name := range c.Config.Order {
		out, err := c.runTask(ctx, name, r, res.Tasks)
		if err != nil {
			return res, fmt.Errorf("task %s: %w", name, err)
		}
		res.Tasks = append(res.Tasks, out)
		res.Raw = out.Raw
		log.Info().Str("task", name).Str("agent", out.Agent).Int("chars", len(out.Raw)).Msg("task complete")
	}
	return res, nil
}

func (c *Crew) definition(agentName string, task TaskConfig, r *strings.Replacer) (*core.Definition, error) {
	ac := c.Config.Agents[agentName]
	var ts []tools.Tool
	for _, tn := range ac.Tools {
		if t, ok := c.Tools[tn]; ok {
			ts = append(ts, t)
		}
	}
	def := &core.Definition{
		Name: agentName,
		Instructions: fmt.Sprintf("You are %s. %s\nYour personal goal is: %s",
			trim(r.Replace(ac.Role)), trim(r.Replace(ac.Backstory)), trim(r.Replace(ac.Goal))),
		Model: c.Model,
		Tools: tools.NewRegistry(ts...),
	}
	if task.Output != "" {
		schema, ok := outputSchemas[task.Output]
		if !ok {
			return nil, fmt.Errorf("unknown output %q", task.Output)
		}
		def.OutputSchema = schema()
	}
	return def, nil
}

func (c *Crew) prompt(ctx context.Context, name string, task TaskConfig, r *strings.Replacer, prior []TaskOutput) string {
	log := obs.LoggerOr(c.Logger, "crew")
	var b strings.Builder
	desc := trim(r.Replace(task.Description))
	b.WriteString(desc)
	b.WriteString("\n\nThis is the expected criteria for your final answer: ")
	b.WriteString(trim(r.Replace(task.ExpectedOutput)))
	b.WriteString("\nyou MUST return the actual complete content as the final answer, not a summary.")

	if len(prior) > 0 {
		b.WriteString("\n\nThis is the context you're working with:\n")
		for _, p := range prior {
			b.WriteString(p.Raw)
			b.WriteString("\n\n")
		}
	}
	if c.ShortTerm != nil {
		docs, err := c.ShortTerm.Recall(ctx, desc)
		if err != nil {
			log.Warn().Err(err).Str("task", name).Msg("short term recall failed")
		} else if len(docs) > 0 {
			b.WriteString("\n\nRecent insights:\n")
			b.WriteString(rag.Context(docs))
		}
	}
	if c.LongTerm != nil {
		mems, err := c.LongTerm.Load(ctx, name, 3)
		if err != nil {
			log.Warn().Err(err).Str("task", name).Msg("long term load failed")
		} else if len(mems) > 0 {
			b.WriteString("\n\nResults of previous runs of this task:\n")
			for _, m := range mems {
				fmt.Fprintf(&b, "- %s: %s\n", m.Timestamp.Format("2006-01-02"), m.Metadata["summary"])
			}
		}
	}
	return b.String()
}

func (c *Crew) runTask(ctx context.Context, name string, r *strings.Replacer, prior []TaskOutput) (TaskOutput, error) {
	task := c.Config.Tasks[name]
	out := TaskOutput{Name: name, Agent: task.Agent}
	def, err := c.definition(task.Agent, task, r)
	if err != nil {
		return out, err
	}
	run, err := c.Runner.Run(ctx, def, c.prompt(ctx, name, task, r, prior))
	if err != nil {
		return out, err
	}
	out.Raw = run.FinalOutput

	switch task.Output {
	case "emerging_companies":
		v, err := core.Output[EmergingCompanyList](run)
		if err != nil {
			return out, err
		}
		out.Parsed = v
	case "company_research":
		v, err := core.Output[EmergingCompaniesResearchList](run)
		if err != nil {
			return out, err
		}
		out.Parsed = v
	}

	c.remember(ctx, name, task.Agent, out.Raw)
	return out, nil
}

// summaryRunes bounds the result text kept in long term memory.
const summaryRunes = 500

func (c *Crew) remember(ctx context.Context, name, agent, raw string) {
	log := obs.LoggerOr(c.Logger, "crew")
	if c.ShortTerm != nil {
		if err := c.ShortTerm.Remember(ctx, name, raw, map[string]string{"agent": agent}); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("short term save failed")
		}
	}
	if c.LongTerm != nil {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		summary := raw
		if r := []rune(summary); len(r) > summaryRunes {
			summary = string(r[:summaryRunes])
		}
		if err := c.LongTerm.Save(ctx, name, map[string]string{"agent": agent, "summary": summary}, now()); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("long term save failed")
		}
	}
}

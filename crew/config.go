// Package crew runs the market research crew: a finder, a researcher and a
// stock picker working through their tasks in order, each seeing the output
// of the task before it.
package crew

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var defaultConfig []byte

// AgentConfig describes one crew member.
type AgentConfig struct {
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal"`
	Backstory string   `yaml:"backstory"`
	Tools     []string `yaml:"tools"`
}

// TaskConfig describes one step. Output names the structured result, if any.
type TaskConfig struct {
	Agent          string `yaml:"agent"`
	Output         string `yaml:"output"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// Config is the crew definition.
type Config struct {
	Agents map[string]AgentConfig `yaml:"agents"`
	Tasks  map[string]TaskConfig  `yaml:"tasks"`
	Order  []string               `yaml:"order"`
}

// DefaultConfig parses the embedded definition.
func DefaultConfig() (*Config, error) {
	return ParseConfig(defaultConfig)
}

// ParseConfig decodes and checks a crew definition.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse crew config: %w", err)
	}
	if len(c.Order) == 0 {
		return nil, fmt.Errorf("crew config has no tasks in order")
	}
	for _, name := range c.Order {
		t, ok := c.Tasks[name]
		if !ok {
			return nil, fmt.Errorf("crew config: unknown task %q", name)
		}
		if _, ok := c.Agents[t.Agent]; !ok {
			return nil, fmt.Errorf("crew config: task %q uses unknown agent %q", name, t.Agent)
		}
	}
	return &c, nil
}

// Inputs fill the {placeholders} of the definition.
type Inputs struct {
	Topic               string `json:"topic" validate:"required"`
	RiskProfile         string `json:"risk_profile"`
	InvestmentHorizon   string `json:"investment_horizon"`
	Region              string `json:"region"`
	MarketCapPreference string `json:"market_cap_preference"`
	NumberOfPicks       int    `json:"number_of_picks" validate:"omitempty,min=1,max=10"`
}

// DefaultInputs are the values the crew runs with when none are given.
func DefaultInputs() Inputs {
	return Inputs{
		Topic:               "Technology",
		RiskProfile:         "High",
		InvestmentHorizon:   "Short",
		Region:              "Europe",
		MarketCapPreference: "any",
		NumberOfPicks:       3,
	}
}

func (in Inputs) replacer() *strings.Replacer {
	picks := in.NumberOfPicks
	if picks <= 0 {
		picks = 3
	}
	return strings.NewReplacer(
		"{topic}", in.Topic,
		"{risk_profile}", in.RiskProfile,
		"{investment_horizon}", in.InvestmentHorizon,
		"{region}", in.Region,
		"{market_cap_preference}", in.MarketCapPreference,
		"{number_of_picks}", strconv.Itoa(picks),
	)
}

func trim(s string) string { return strings.TrimSpace(s) }

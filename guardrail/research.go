package guardrail

import (
	"context"
	"strings"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm"
)

// Query categories reported by the validators.
const (
	Academic      = "ACADEMIC"
	Business      = "BUSINESS"
	Technical     = "TECHNICAL"
	General       = "GENERAL"
	Sensitive     = "SENSITIVE"
	Inappropriate = "INAPPROPRIATE"
)

// QueryValidationResult is the input validator's verdict.
type QueryValidationResult struct {
	IsValid        bool   `json:"is_valid"`
	ErrorMessage   string `json:"error_message,omitempty"`
	SanitizedQuery string `json:"sanitized_query,omitempty"`
	WarningMessage string `json:"warning_message,omitempty"`
	QueryCategory  string `json:"query_category,omitempty"`
}

// ReportValidationResult is the output validator's verdict.
type ReportValidationResult struct {
	IsValid         bool   `json:"is_valid"`
	ErrorMessage    string `json:"error_message,omitempty"`
	NeedsDisclaimer bool   `json:"needs_disclaimer"`
	QueryCategory   string `json:"query_category,omitempty"`
}

// Guardrail names, also the GuardrailInfo keys of a run.
const (
	InputValidatorName  = "InputValidator"
	OutputValidatorName = "OutputValidator"
)

const inputValidatorPrompt = `You are an input validation specialist. Check if the research query is appropriate and safe.

Validate for:
- Minimum length (3 characters)
- Maximum length (500 characters)
- No harmful content (hacking, weapons, illegal activities)
- Identify if topic is sensitive (medical, legal, financial advice)

Return a JSON object with these exact fields:
- is_valid (boolean): true if query passes validation, false otherwise
- error_message (string or null): error message if is_valid is false, null otherwise
- sanitized_query (string or null): cleaned up version of the query
- warning_message (string or null): warning if sensitive topic
- query_category (string or null): ACADEMIC, BUSINESS, TECHNICAL, GENERAL, SENSITIVE, or INAPPROPRIATE`

const outputValidatorPrompt = `You are a report validation specialist. Check if the research report meets quality standards.

Validate for:
- Minimum length (100 characters)
- Maximum length (50000 characters)
- Content completeness
- Determine if disclaimer needed based on topic sensitivity

Return a JSON object with these exact fields:
- is_valid (boolean): true if report passes validation, false otherwise
- error_message (string or null): error message if is_valid is false, null otherwise
- needs_disclaimer (boolean): true if disclaimer should be added
- query_category (string or null): category of the topic`

// reportSample is how much of a report the output validator reads.
const reportSample = 1000

// InputValidator asks model to vet a research query. It trips when the
// query is not valid.
func InputValidator(model llm.Client) core.InputGuardrail {
	return core.InputGuardrail{
		Name: InputValidatorName,
		Check: func(ctx context.Context, _ *core.Definition, input string) (core.GuardrailResult, error) {
			res, err := llm.Generate[QueryValidationResult](ctx, model,
				[]llm.Message{llm.UserMessage(input)},
				llm.GenerateOptions{Name: "query_validation", Instructions: inputValidatorPrompt})
			if err != nil {
				return core.GuardrailResult{}, err
			}
			v := res.Data
			return core.GuardrailResult{TripwireTriggered: !v.IsValid, Info: v, Message: v.ErrorMessage}, nil
		},
	}
}

// OutputValidator asks model to vet the start of a report. It trips when the
// report is not valid; the verdict (with NeedsDisclaimer) is left in the
// run's GuardrailInfo.
func OutputValidator(model llm.Client) core.OutputGuardrail {
	return core.OutputGuardrail{
		Name: OutputValidatorName,
		Check: func(ctx context.Context, _ *core.Definition, output string) (core.GuardrailResult, error) {
			sample := output
			if r := []rune(sample); len(r) > reportSample {
				sample = string(r[:reportSample])
			}
			res, err := llm.Generate[ReportValidationResult](ctx, model,
				[]llm.Message{llm.UserMessage("Validate this report:\n\n" + sample)},
				llm.GenerateOptions{Name: "report_validation", Instructions: outputValidatorPrompt})
			if err != nil {
				return core.GuardrailResult{}, err
			}
			v := res.Data
			return core.GuardrailResult{TripwireTriggered: !v.IsValid, Info: v, Message: v.ErrorMessage}, nil
		},
	}
}

const (
	sensitiveDisclaimer = "\n\n---\n**DISCLAIMER**: This report is for informational purposes only " +
		"and does not constitute professional medical, legal, or financial advice. " +
		"Please consult qualified professionals for specific guidance.\n---\n"
	generalDisclaimer = "\n\n---\n**Note**: This research report is generated using AI and web sources. " +
		"Please verify critical information with authoritative sources.\n---\n"
)

// Disclaimer returns the footer for a query category.
func Disclaimer(category string) string {
	if strings.EqualFold(strings.TrimSpace(category), Sensitive) {
		return sensitiveDisclaimer
	}
	return generalDisclaimer
}

// AddDisclaimer appends the category's disclaimer to report.
func AddDisclaimer(report, category string) string {
	return report + Disclaimer(category)
}

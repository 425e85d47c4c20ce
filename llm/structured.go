package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// Structured is implemented by output types that carry rules beyond their
// `validate` struct tags.
type Structured interface {
	Validate() error
}

// StructuredResponse contains the parsed and validated structured output
type StructuredResponse[T any] struct {
	Data        T                 `json:"data"`
	RawResponse *Response         `json:"raw_response,omitempty"`
	Usage       *Usage            `json:"usage,omitempty"`
	Validation  *ValidationResult `json:"validation,omitempty"`
}

// ValidationResult contains details about validation
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Retries  int      `json:"retries"`
	RawJSON  string   `json:"raw_json,omitempty"`
	Repaired bool     `json:"repaired,omitempty"`
}

// Usage contains token usage information
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost,omitempty"`
}

// Add accumulates o into u.
func (u *Usage) Add(o *Usage) {
	if u == nil || o == nil {
		return
	}
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
	u.Cost += o.Cost
}

var (
	validate        = validator.New(validator.WithRequiredStructEnabled())
	schemaCache     sync.Map // reflect.Type -> map[string]any
	schemaReflector = &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
)

// SchemaFor returns the JSON schema of T as a plain map suitable for tool
// parameters and response formats.
func SchemaFor[T any]() map[string]any {
	var zero T
	return SchemaOf(zero)
}

// SchemaOf returns the JSON schema for the dynamic type of v.
func SchemaOf(v any) map[string]any {
	t := reflect.TypeOf(v)
	if t == nil {
		return map[string]any{"type": "object"}
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(map[string]any)
	}
	s := schemaReflector.Reflect(v)
	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	schemaCache.Store(t, out)
	return out
}

// ValidateStruct runs `validate` tag checks and, when v implements Structured,
// its own Validate method.
func ValidateStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return &ValidationError{Message: "nil value"}
	}
	if reflect.Indirect(rv).Kind() == reflect.Struct {
		if err := validate.Struct(v); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) && len(ve) > 0 {
				return &ValidationError{Field: ve[0].Namespace(), Message: ve[0].Error()}
			}
			return &ValidationError{Message: err.Error()}
		}
	}
	if s, ok := v.(Structured); ok {
		if err := s.Validate(); err != nil {
			return &ValidationError{Message: err.Error()}
		}
	}
	return nil
}

// ExtractJSON pulls the JSON object out of a model reply. Models often wrap the
// object in a ```json fence or surround it with prose.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		} else {
			s = strings.TrimSpace(rest)
		}
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	if end := strings.LastIndexByte(s, closer); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// ParseStructured decodes a model reply into T. Invalid JSON is run through
// jsonrepair once before giving up; the decoded value must pass ValidateStruct.
func ParseStructured[T any](text string) (*StructuredResponse[T], error) {
	raw := ExtractJSON(text)
	vr := &ValidationResult{RawJSON: raw}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			vr.Errors = []string{err.Error()}
			return &StructuredResponse[T]{Validation: vr},
				NewLLMErrorWithCause("", ErrorTypeJSONParsingError, "json parsing error", err)
		}
		out = *new(T)
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			vr.Errors = []string{err.Error()}
			return &StructuredResponse[T]{Validation: vr},
				NewLLMErrorWithCause("", ErrorTypeJSONParsingError, "json parsing error", err)
		}
		vr.RawJSON, vr.Repaired = repaired, true
	}

	if err := ValidateStruct(&out); err != nil {
		vr.Errors = []string{err.Error()}
		return &StructuredResponse[T]{Data: out, Validation: vr}, fmt.Errorf("validation failed: %w", err)
	}
	vr.Valid = true
	return &StructuredResponse[T]{Data: out, Validation: vr}, nil
}

// GenerateOptions tunes Generate.
type GenerateOptions struct {
	// Name labels the schema in the request and in error messages.
	Name string
	// Instructions become the system prompt, followed by the schema.
	Instructions string
	// MaxAttempts bounds parse/validation retries. Defaults to 2.
	MaxAttempts int
	Model       string
	Temperature *float64
}

// Generate asks the model for a JSON object matching T. When the reply does not
// parse or validate, the error is fed back to the model and the request retried.
func Generate[T any](ctx context.Context, c Client, messages []Message, opts GenerateOptions) (*StructuredResponse[T], error) {
	if c == nil {
		return nil, errors.New("nil llm client")
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}

	schema := SchemaFor[T]()
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	system := strings.TrimSpace(opts.Instructions)
	if system != "" {
		system += "\n\n"
	}
	system += "Respond only with a JSON object that matches this JSON schema:\n" + string(schemaJSON)

	convo := make([]Message, 0, len(messages)+3)
	convo = append(convo, SystemMessage(system))
	for _, m := range messages {
		if m.Role == RoleSystem {
			continue
		}
		convo = append(convo, m)
	}

	usage := &Usage{}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.Chat(ctx, &ChatRequest{
			Messages:       convo,
			Model:          opts.Model,
			Temperature:    opts.Temperature,
			ResponseFormat: &ResponseFormat{Type: "json_object", Name: opts.Name, JSONSchema: schema},
		})
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)

		parsed, perr := ParseStructured[T](resp.Content)
		if perr == nil {
			parsed.RawResponse = resp
			parsed.Usage = usage
			parsed.Validation.Retries = attempt
			return parsed, nil
		}
		lastErr = perr
		convo = append(convo,
			AssistantText(resp.Content),
			UserMessage(fmt.Sprintf("Your previous reply could not be used: %v. Reply again with only the corrected JSON object.", perr)),
		)
	}
	name := opts.Name
	if name == "" {
		name = "structured output"
	}
	return nil, fmt.Errorf("%s: %w", name, lastErr)
}

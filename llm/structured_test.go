package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type plan struct {
	Searches []planItem `json:"searches" validate:"required,min=1,dive" jsonschema:"description=Searches to run"`
}

type planItem struct {
	Reason string `json:"reason" validate:"required"`
	Query  string `json:"query" validate:"required"`
}

type scored struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (s scored) Validate() error {
	if s.Score < 0 || s.Score > 1 {
		return errors.New("score out of range")
	}
	return nil
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor[plan]()
	if s["type"] != "object" {
		t.Fatalf("schema type = %v", s["type"])
	}
	props := s["properties"].(map[string]any)
	searches := props["searches"].(map[string]any)
	if searches["type"] != "array" || searches["description"] != "Searches to run" {
		t.Fatalf("unexpected searches schema %v", searches)
	}
	items := searches["items"].(map[string]any)
	if _, ok := items["properties"].(map[string]any)["query"]; !ok {
		t.Fatalf("nested struct should be expanded: %v", items)
	}
	if _, ok := s["$schema"]; ok {
		t.Fatalf("$schema should be stripped")
	}
}

func TestParseStructured(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantErr  bool
		repaired bool
	}{
		{"plain", `{"searches":[{"reason":"r","query":"q"}]}`, false, false},
		{"fenced", "Here you go:\n```json\n{\"searches\":[{\"reason\":\"r\",\"query\":\"q\"}]}\n```", false, false},
		{"trailing comma", `{"searches":[{"reason":"r","query":"q",}],}`, false, true},
		{"fails validation", `{"searches":[]}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseStructured[plan](tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !tt.wantErr {
				if resp.Data.Searches[0].Query != "q" || resp.Validation.Repaired != tt.repaired {
					t.Fatalf("unexpected %+v", resp.Validation)
				}
			}
		})
	}

	if _, err := ParseStructured[scored](`{"label":"x","score":3}`); err == nil {
		t.Fatalf("Validate method should run")
	}
}

type jsonClient struct {
	dummyClient
	replies []string
	reqs    []*ChatRequest
}

func (c *jsonClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	c.reqs = append(c.reqs, req)
	r := c.replies[0]
	c.replies = c.replies[1:]
	return &Response{Content: r, Usage: &Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func TestGenerateRetriesWithFeedback(t *testing.T) {
	c := &jsonClient{replies: []string{`{"searches":[]}`, `{"searches":[{"reason":"why","query":"what"}]}`}}
	out, err := Generate[plan](context.Background(), c, []Message{UserMessage("Query: go")}, GenerateOptions{
		Name:         "WebSearchPlan",
		Instructions: "Plan searches.",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Data.Searches[0].Query != "what" || out.Validation.Retries != 1 || out.Usage.TotalTokens != 30 {
		t.Fatalf("unexpected result %+v", out)
	}
	if len(c.reqs) != 2 {
		t.Fatalf("expected 2 requests")
	}
	first := c.reqs[0]
	if first.Messages[0].Role != RoleSystem || !strings.HasPrefix(first.Messages[0].Content, "Plan searches.") ||
		first.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected first request %+v", first)
	}
	last := c.reqs[1].Messages[len(c.reqs[1].Messages)-1]
	if !strings.Contains(last.Content, "could not be used") {
		t.Fatalf("feedback message missing: %q", last.Content)
	}
}

func TestGenerateGivesUp(t *testing.T) {
	c := &jsonClient{replies: []string{"nope", "still nope"}}
	_, err := Generate[plan](context.Background(), c, nil, GenerateOptions{Name: "plan"})
	if err == nil || !strings.HasPrefix(err.Error(), "plan:") {
		t.Fatalf("expected named failure, got %v", err)
	}
}

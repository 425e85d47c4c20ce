// Package textops holds LLM-backed text tools: summarization and translation.
package textops

import (
	"context"
	"fmt"
	"strings"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/tools"
)

// DefaultSummaryWords is the summarizer's length when none is given.
const DefaultSummaryWords = 200

// SummarizeArgs is the smart_summarizer input.
type SummarizeArgs struct {
	Text      string `json:"text" jsonschema:"description=The text to summarize" validate:"required"`
	MaxLength int    `json:"max_length,omitempty" jsonschema:"description=Maximum length of summary in words,default=200" validate:"omitempty,min=1"`
}

// TranslateArgs is the translator input.
type TranslateArgs struct {
	Text           string `json:"text" jsonschema:"description=The text to translate" validate:"required"`
	TargetLanguage string `json:"target_language" jsonschema:"description=Target language (e.g. 'Spanish' or 'French')" validate:"required"`
}

// Summarize condenses text to at most maxWords words.
func Summarize(ctx context.Context, c llm.Client, text string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = DefaultSummaryWords
	}
	prompt := fmt.Sprintf("Summarize the following text in no more than %d words. \nFocus on the most important information:\n\n%s\n\nSummary:", maxWords, text)
	return complete(ctx, c, prompt)
}

// Translate renders text in lang keeping tone and meaning.
func Translate(ctx context.Context, c llm.Client, text, lang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text to %s. \nPreserve the tone and meaning:\n\n%s\n\nTranslation:", lang, text)
	return complete(ctx, c, prompt)
}

func complete(ctx context.Context, c llm.Client, prompt string) (string, error) {
	resp, err := c.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage(prompt)}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Tools returns smart_summarizer and translator bound to c.
func Tools(c llm.Client) []tools.Tool {
	return []tools.Tool{
		tools.NewFunc("smart_summarizer",
			"Summarize long text intelligently, preserving key information. Use this when you need to condense articles, documents, or web pages.",
			func(ctx context.Context, a SummarizeArgs) (string, error) {
				return Summarize(ctx, c, a.Text, a.MaxLength)
			}),
		tools.NewFunc("translator",
			"Translate text to any language while preserving meaning and tone",
			func(ctx context.Context, a TranslateArgs) (string, error) {
				return Translate(ctx, c, a.Text, a.TargetLanguage)
			}),
	}
}

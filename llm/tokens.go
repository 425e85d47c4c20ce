package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var encodings sync.Map // model name -> *tiktoken.Tiktoken, or nil when unavailable

func encodingFor(model string) *tiktoken.Tiktoken {
	if v, ok := encodings.Load(model); ok {
		enc, _ := v.(*tiktoken.Tiktoken)
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		enc = nil
	}
	encodings.Store(model, enc)
	return enc
}

// CountTokens estimates the number of tokens text occupies for model. When no
// BPE table can be loaded it falls back to four characters per token.
func CountTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encodingFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}

// CountMessageTokens sums CountTokens over contents plus a small per message
// overhead for role framing.
func CountMessageTokens(model string, msgs []Message) int {
	n := 0
	for _, m := range msgs {
		n += 4 + CountTokens(model, m.Content)
		for _, tc := range m.ToolCalls {
			n += CountTokens(model, tc.Function.Name) + CountTokens(model, tc.Function.Arguments)
		}
	}
	return n
}

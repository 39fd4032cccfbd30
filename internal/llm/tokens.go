package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// TruncateToBudget cuts text to at most budget tokens under the model's
// encoding. Unknown models fall back to cl100k_base. On encoder failure
// the text passes through unchanged; over-long prompts then fail at the
// API instead, which is a clearer error than silent mangling.
func TruncateToBudget(text, model string, budget int) string {
	if budget <= 0 || text == "" {
		return text
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return text
		}
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

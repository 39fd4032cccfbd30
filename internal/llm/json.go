package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals the first JSON value in an LLM response into T,
// tolerating surrounding prose or markdown fences. Both objects and
// arrays are handled; which one is expected follows from T.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start, end := jsonBounds(response, '{', '}')
	if s, e := jsonBounds(response, '[', ']'); s != -1 && (start == -1 || s < start) {
		start, end = s, e
	}
	if start == -1 || end <= start {
		return zero, fmt.Errorf("no JSON value found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

func jsonBounds(s string, open, close byte) (int, int) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return -1, -1
	}
	end := strings.LastIndexByte(s, close)
	if end == -1 {
		return -1, -1
	}
	return start, end
}

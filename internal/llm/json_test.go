package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONObject(t *testing.T) {
	type out struct {
		Items []string `json:"items"`
	}

	got, err := ParseJSON[out](`Here you go: {"items": ["a", "b"]} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Items)
}

func TestParseJSONArray(t *testing.T) {
	got, err := ParseJSON[[]string]("```json\n[\"x\", \"y\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestParseJSONArrayBeforeObject(t *testing.T) {
	// When both brackets appear, the earliest value wins.
	got, err := ParseJSON[[]int](`[1, 2] trailing {"k": 3}`)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestParseJSONNoValue(t *testing.T) {
	_, err := ParseJSON[[]string]("no json here at all")
	assert.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON[[]string](`["unterminated`)
	assert.Error(t, err)
}

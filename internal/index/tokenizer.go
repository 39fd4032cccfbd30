package index

import (
	"strings"
	"unicode"
)

// stopwords covers the short function-word list the lexical index drops.
// Kept deliberately small: aggressive stopping hurts short item titles.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"was": true, "with": true,
}

// Tokenize lowercases text and splits it on non-letter/digit boundaries,
// dropping stopwords and single-rune noise tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		runes := []rune(f)
		if len(runes) < 2 && !unicode.IsDigit(runes[0]) {
			continue
		}
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

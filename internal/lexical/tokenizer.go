// Package lexical implements keyword search over active memory items: a
// query tokenizer, and a search strategy that falls back from strict
// matching to relaxed matching and, when IncludeSuperseded is set, merges in
// an archived keyword scan.
package lexical

import (
	"regexp"
	"strings"
)

const (
	minTokenLength = 2
	maxTokens      = 12
)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases text, strips surrounding quotes, and splits on
// non-word boundaries, dropping tokens shorter than two characters and
// capping the result at maxTokens terms.
func Tokenize(text string) []string {
	text = strings.Trim(text, `"'`)
	words := tokenRegex.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minTokenLength {
			continue
		}
		tokens = append(tokens, w)
		if len(tokens) >= maxTokens {
			break
		}
	}
	return tokens
}

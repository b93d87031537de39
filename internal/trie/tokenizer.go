package trie

import (
	"strings"
	"unicode"
)

// punctuation is the fixed delimiter class terms are split on, in addition to
// any unicode whitespace.
const punctuation = `,.!?;:'"()[]{}/\`

// Tokenize normalizes text into an ordered sequence of non-empty terms.
// Unless caseSensitive is set, every character is folded to lowercase before
// splitting. Empty or all-delimiter input yields no tokens.
func Tokenize(text string, caseSensitive bool) []string {
	if !caseSensitive {
		text = strings.ToLower(text)
	}
	return strings.FieldsFunc(text, isDelimiter)
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(punctuation, r)
}

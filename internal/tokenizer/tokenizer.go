// Package tokenizer turns free text into a deterministic stream of index
// terms shared by ingest and query paths.
package tokenizer

import (
	"strings"
	"unicode"
)

// stopWords is the closed English stop-word set used to filter tokens.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "to": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"for": {}, "with": {}, "by": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "so": {}, "not": {}, "no": {}, "do": {}, "does": {},
	"did": {}, "have": {}, "has": {}, "had": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {}, "her": {},
	"us": {}, "them": {}, "this": {}, "that": {}, "these": {}, "those": {},
}

// minTokenLen is the shortest token length retained after filtering.
const minTokenLen = 2

// Tokenize lowercases text, splits on non-alphanumeric Unicode boundaries,
// and drops short tokens and stop words. It is pure: the same input always
// produces the same output, which is required since indexing and querying
// must agree on term identity.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)

	tokens := make([]string, 0, len(lower)/5)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if len(tok) < minTokenLen {
			return
		}
		if _, stop := stopWords[tok]; stop {
			return
		}
		tokens = append(tokens, tok)
	}

	for _, r := range lower {
		if isWordRune(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// IsStopWord reports whether word is in the closed stop-word set.
func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

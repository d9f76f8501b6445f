package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences cuts text at every whitespace run that directly follows
// '.', '!' or '?'. The punctuation stays with the sentence before the cut.
// Abbreviations and decimals are not special-cased.
func SplitSentences(text string) []string {
	var sentences []string

	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) || i == 0 || !isSentenceEnder(text[i-1]) {
			i += size
			continue
		}

		sentences = appendSentence(sentences, text[start:i])

		// Swallow the whole whitespace run
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		start = i
	}

	return appendSentence(sentences, text[start:])
}

func isSentenceEnder(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func appendSentence(sentences []string, fragment string) []string {
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		sentences = append(sentences, fragment)
	}
	return sentences
}

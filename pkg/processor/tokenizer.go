package processor

import "strings"

// Tokenizer turns a sentence into its significant words: lowercase runs of
// ASCII letters that are not stopwords. A Tokenizer is read-only after
// construction and safe for concurrent use.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer builds a Tokenizer over the given stopwords. Matching is
// case-insensitive.
func NewTokenizer(stopwords []string) *Tokenizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, word := range stopwords {
		set[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
	}
	return &Tokenizer{stopwords: set}
}

// IsStopword reports whether word is filtered out.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[strings.ToLower(word)]
	return ok
}

// Tokens returns every significant word of the sentence in order,
// duplicates included.
func (t *Tokenizer) Tokens(sentence string) []string {
	var tokens []string

	lower := strings.ToLower(sentence)
	for i := 0; i < len(lower); {
		if !isASCIILetter(lower[i]) {
			i++
			continue
		}
		j := i
		for j < len(lower) && isASCIILetter(lower[j]) {
			j++
		}
		if word := lower[i:j]; !t.IsStopword(word) {
			tokens = append(tokens, word)
		}
		i = j
	}

	return tokens
}

// WordSet returns the unique significant words of the sentence.
func (t *Tokenizer) WordSet(sentence string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range t.Tokens(sentence) {
		set[word] = struct{}{}
	}
	return set
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

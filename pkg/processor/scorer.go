package processor

import "fmt"

// FrequencyTable counts, per significant word, the number of distinct
// sentences that contain it.
type FrequencyTable map[string]int

// SentenceScores maps a sentence, by value, to its score.
type SentenceScores map[string]int

// BuildFrequencyTable adds one per sentence for each unique significant word.
// A word repeated inside one sentence still counts once for that sentence.
func BuildFrequencyTable(tok *Tokenizer, sentences []string) (FrequencyTable, error) {
	table := make(FrequencyTable)
	for _, sentence := range sentences {
		for word := range tok.WordSet(sentence) {
			table[word]++
		}
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("%w: failed to compute word frequencies for summarization", ErrInsufficientContent)
	}

	return table, nil
}

// ScoreSentences sums the table frequency of every token occurrence, so
// repeating a frequent word raises the score.
func ScoreSentences(tok *Tokenizer, table FrequencyTable, sentences []string) SentenceScores {
	scores := make(SentenceScores, len(sentences))
	for _, sentence := range sentences {
		score := 0
		for _, word := range tok.Tokens(sentence) {
			score += table[word]
		}
		scores[sentence] = score
	}
	return scores
}

// Score builds the frequency table over sentences and scores each of them.
func Score(tok *Tokenizer, sentences []string) (FrequencyTable, SentenceScores, error) {
	table, err := BuildFrequencyTable(tok, sentences)
	if err != nil {
		return nil, nil, err
	}
	return table, ScoreSentences(tok, table, sentences), nil
}

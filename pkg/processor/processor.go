package processor

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/xhad/skim/internal/models"
)

// ErrInsufficientContent is returned when filtering or scoring leaves
// nothing to summarize.
var ErrInsufficientContent = errors.New("insufficient content")

type ProcessorConfig struct {
	MaxSentences    int
	MinChars        int
	Stopwords       []string // replaces the English list when set
	CustomStopwords []string // added on top of the base list
}

// Processor ranks the sentences of one page and picks the summary. It holds
// no per-call state.
type Processor struct {
	config    ProcessorConfig
	tokenizer *Tokenizer
}

func NewWithConfig(config ProcessorConfig) *Processor {
	if config.MaxSentences == 0 {
		config.MaxSentences = 5
	}
	if config.MinChars == 0 {
		config.MinChars = 40
	}

	stopwords := config.Stopwords
	if len(stopwords) == 0 {
		stopwords = EnglishStopwords()
	}
	stopwords = append(append([]string(nil), stopwords...), config.CustomStopwords...)

	return &Processor{
		config:    config,
		tokenizer: NewTokenizer(stopwords),
	}
}

func New() *Processor {
	return NewWithConfig(ProcessorConfig{})
}

func (p *Processor) Tokenizer() *Tokenizer {
	return p.tokenizer
}

// SummarizePage summarizes a page with the configured limits.
func (p *Processor) SummarizePage(page models.PageContent) ([]string, error) {
	return p.Summarize(page.Sentences(), p.config.MaxSentences, p.config.MinChars)
}

// Summarize returns up to maxSentences of the highest scoring sentences that
// are at least minChars runes long, in document order.
//
// Selected sentences are placed by the first position their text occupies
// in sentences, so a sentence that appears twice is ordered as if it were
// the first copy.
func (p *Processor) Summarize(sentences []string, maxSentences, minChars int) ([]string, error) {
	if maxSentences < 1 {
		return nil, fmt.Errorf("max sentences must be positive, got %d", maxSentences)
	}

	var filtered []string
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) >= minChars {
			filtered = append(filtered, sentence)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: not enough substantial sentences were found to build a summary", ErrInsufficientContent)
	}

	_, scores, err := Score(p.tokenizer, filtered)
	if err != nil {
		return nil, err
	}

	ranked := append([]string(nil), filtered...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if len(ranked) > maxSentences {
		ranked = ranked[:maxSentences]
	}

	firstIndex := make(map[string]int, len(sentences))
	for i, sentence := range sentences {
		if _, seen := firstIndex[sentence]; !seen {
			firstIndex[sentence] = i
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return firstIndex[ranked[i]] < firstIndex[ranked[j]]
	})

	return ranked, nil
}

// Fingerprint hashes the frequency table of sentences into a unit vector of
// size dim. Pages sharing vocabulary end up close in cosine distance.
func (p *Processor) Fingerprint(sentences []string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}

	vector := make([]float32, dim)
	table, err := BuildFrequencyTable(p.tokenizer, sentences)
	if err != nil {
		return vector
	}

	for word, count := range table {
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%uint32(dim)] += float32(count)
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}

	return vector
}

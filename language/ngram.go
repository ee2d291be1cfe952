package language

import (
	"slices"
	"strings"

	"github.com/ieee0824/ctcdecode/internal/mathutil"
)

// Sentence boundary and unknown-word symbols used in ARPA files.
const (
	SentenceStart = "<s>"
	SentenceEnd   = "</s>"
	Unknown       = "<unk>"
)

// NGramModel is a backoff n-gram language model of any order. Scores are
// natural logs.
type NGramModel struct {
	Order int

	// grams[k] holds the (k+1)-grams, keyed by their words joined with
	// a single space.
	grams []map[string]ngramEntry
}

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// NewNGramModel creates an empty n-gram model.
func NewNGramModel(order int) *NGramModel {
	m := &NGramModel{}
	m.grow(max(order, 1))
	return m
}

func (m *NGramModel) grow(order int) {
	for len(m.grams) < order {
		m.grams = append(m.grams, make(map[string]ngramEntry))
	}
	m.Order = max(m.Order, order)
}

// Add stores an n-gram. The model order grows to len(words) if needed.
func (m *NGramModel) Add(words []string, logProb, logBackoff float64) {
	m.grow(len(words))
	m.grams[len(words)-1][strings.Join(words, " ")] = ngramEntry{LogProb: logProb, LogBackoff: logBackoff}
}

// Lookup returns the stored scores of an n-gram.
func (m *NGramModel) Lookup(words ...string) (logProb, logBackoff float64, ok bool) {
	if len(words) == 0 {
		return 0, 0, false
	}
	e, ok := m.lookup(strings.Join(words, " "))
	return e.LogProb, e.LogBackoff, ok
}

func (m *NGramModel) lookup(key string) (ngramEntry, bool) {
	n := strings.Count(key, " ") + 1
	if n > len(m.grams) {
		return ngramEntry{}, false
	}
	e, ok := m.grams[n-1][key]
	return e, ok
}

// Count returns the number of n-grams of the given order.
func (m *NGramModel) Count(order int) int {
	if order < 1 || order > len(m.grams) {
		return 0
	}
	return len(m.grams[order-1])
}

// LogProb returns the log probability of a word given its history.
// Only the last Order-1 words of history are used. Words missing from the
// model are scored as <unk> when it is present, LogZero otherwise.
func (m *NGramModel) LogProb(history []string, word string) float64 {
	return m.score(m.context(history), word, 0)
}

// context joins the last Order-1 words of history.
func (m *NGramModel) context(history []string) string {
	n := min(len(history), m.Order-1)
	if n <= 0 {
		return ""
	}
	return strings.Join(history[len(history)-n:], " ")
}

// next appends word to ctx and keeps the last Order-1 words. Words
// without a unigram enter the context as <unk>.
func (m *NGramModel) next(ctx, word string) string {
	if m.Order < 2 {
		return ""
	}
	if !m.Contains(word) {
		word = Unknown
	}
	if ctx != "" {
		word = ctx + " " + word
	}
	for strings.Count(word, " ") >= m.Order-1 {
		_, word, _ = strings.Cut(word, " ")
	}
	return word
}

// score walks from the longest matching n-gram down to the unigram,
// collecting backoff weights of the contexts it leaves. A non-zero oov
// replaces the score of words without a unigram.
func (m *NGramModel) score(ctx, word string, oov float64) float64 {
	if !m.Contains(word) {
		if oov != 0 {
			return m.backoff(ctx) + oov
		}
		if !m.Contains(Unknown) {
			return mathutil.LogZero
		}
		word = Unknown
	}
	bo := 0.0
	for ctx != "" {
		if e, ok := m.lookup(ctx + " " + word); ok {
			return bo + e.LogProb
		}
		if e, ok := m.lookup(ctx); ok {
			bo += e.LogBackoff
		}
		_, ctx, _ = strings.Cut(ctx, " ")
	}
	return bo + m.grams[0][word].LogProb
}

// backoff sums the backoff weights of ctx and all its suffixes.
func (m *NGramModel) backoff(ctx string) float64 {
	bo := 0.0
	for ctx != "" {
		if e, ok := m.lookup(ctx); ok {
			bo += e.LogBackoff
		}
		_, ctx, _ = strings.Cut(ctx, " ")
	}
	return bo
}

// Contains reports whether word has a unigram entry.
func (m *NGramModel) Contains(word string) bool {
	_, ok := m.grams[0][word]
	return ok
}

// SentenceLogProb returns the total log probability of a sentence (word sequence).
// Automatically adds <s> at the beginning and </s> at the end.
func (m *NGramModel) SentenceLogProb(words []string) float64 {
	total := 0.0
	ctx := m.next("", SentenceStart)
	for _, w := range words {
		total += m.score(ctx, w, 0)
		ctx = m.next(ctx, w)
	}
	return total + m.score(ctx, SentenceEnd, 0)
}

// Vocab returns all words in the unigram vocabulary, sorted.
func (m *NGramModel) Vocab() []string {
	words := make([]string, 0, len(m.grams[0]))
	for w := range m.grams[0] {
		words = append(words, w)
	}
	slices.Sort(words)
	return words
}

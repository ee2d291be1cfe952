package language

import (
	"io"
	"math"
	"slices"
	"strings"

	"github.com/ieee0824/ctcdecode/internal/mathutil"
)

// Builder counts n-grams over tokenized sentences and estimates a
// Witten-Bell smoothed backoff model from them.
type Builder struct {
	order  int
	counts []map[string]int // counts[k]: (k+1)-gram -> count

	vocab      map[string]bool // nil means every word is kept
	unkLogProb float64         // log10; 0 = no extra <unk> entry
}

// NewBuilder creates a Builder for models of the given order (at least 2).
func NewBuilder(order int) *Builder {
	order = max(order, 2)
	b := &Builder{order: order, counts: make([]map[string]int, order)}
	for k := range b.counts {
		b.counts[k] = make(map[string]int)
	}
	return b
}

// RestrictTo limits the model vocabulary to words, typically the words of
// a lexicon. Sentences added afterwards count every other word as <unk>.
func (b *Builder) RestrictTo(words []string) {
	b.vocab = make(map[string]bool, len(words))
	for _, w := range words {
		b.vocab[w] = true
	}
}

// SetUnkLogProb gives <unk> the given log10 probability when no sentence
// produced an <unk> count.
func (b *Builder) SetUnkLogProb(log10prob float64) {
	b.unkLogProb = log10prob
}

// AddSentence adds a tokenized sentence. <s> and </s> are added automatically.
func (b *Builder) AddSentence(words []string) {
	if len(words) == 0 {
		return
	}
	seq := make([]string, 0, len(words)+2)
	seq = append(seq, SentenceStart)
	for _, w := range words {
		if b.vocab != nil && !b.vocab[w] {
			w = Unknown
		}
		seq = append(seq, w)
	}
	seq = append(seq, SentenceEnd)

	for i := range seq {
		for k := 0; k < b.order && k <= i; k++ {
			b.counts[k][strings.Join(seq[i-k:i+1], " ")]++
		}
	}
}

// wbContext holds the Witten-Bell statistics of one history.
type wbContext struct {
	total int      // N(h): tokens seen after h
	next  []string // words seen after h; T(h) = len(next)
}

// Build estimates the model. Unigrams are maximum likelihood; higher
// orders use P(w|h) = C(h w) / (N(h) + T(h)), and every history gets the
// backoff weight that makes its distribution sum to one.
func (b *Builder) Build() *NGramModel {
	m := NewNGramModel(b.order)

	total := 0
	for _, c := range b.counts[0] {
		total += c
	}
	for w, c := range b.counts[0] {
		m.grams[0][w] = ngramEntry{LogProb: math.Log(float64(c) / float64(total))}
	}
	if !m.Contains(Unknown) && b.unkLogProb != 0 {
		m.grams[0][Unknown] = ngramEntry{LogProb: mathutil.FromLog10(b.unkLogProb)}
	}

	// histories[k] maps k-word histories to the words that follow them.
	histories := make([]map[string]*wbContext, b.order)
	for k := 1; k < b.order; k++ {
		hs := make(map[string]*wbContext)
		for key, c := range b.counts[k] {
			i := strings.LastIndexByte(key, ' ')
			h := hs[key[:i]]
			if h == nil {
				h = &wbContext{}
				hs[key[:i]] = h
			}
			h.total += c
			h.next = append(h.next, key[i+1:])
		}
		for key, c := range b.counts[k] {
			h := hs[key[:strings.LastIndexByte(key, ' ')]]
			m.grams[k][key] = ngramEntry{LogProb: math.Log(float64(c) / float64(h.total+len(h.next)))}
		}
		histories[k] = hs
	}

	// Backoff weights use the lower-order distribution, so shorter
	// histories are finished first.
	for k := 1; k < b.order; k++ {
		for ctx, h := range histories[k] {
			slices.Sort(h.next)
			_, lower, _ := strings.Cut(ctx, " ")
			var seen, shorter float64
			for _, w := range h.next {
				seen += math.Exp(m.grams[k][ctx+" "+w].LogProb)
				shorter += math.Exp(m.score(lower, w, 0))
			}
			if shorter >= 1 {
				continue
			}
			e := m.grams[k-1][ctx]
			e.LogBackoff = math.Log((1 - seen) / (1 - shorter))
			m.grams[k-1][ctx] = e
		}
	}
	return m
}

// WriteARPA builds the model and writes it in ARPA format to w.
func (b *Builder) WriteARPA(w io.Writer) error {
	return b.Build().WriteARPA(w)
}

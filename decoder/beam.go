package decoder

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ieee0824/ctcdecode/internal/mathutil"
	"github.com/ieee0824/ctcdecode/internal/observe"
	"github.com/ieee0824/ctcdecode/language"
	"github.com/ieee0824/ctcdecode/trie"
)

// Tokens names the special token and word indices the decoder needs.
type Tokens struct {
	Blank   int // CTC blank token
	Silence int // word boundary token
	UnkWord int // word id of <unk>; -1 if there is none
}

// Decoder is a CTC beam-search decoder constrained by a lexicon trie and
// scored by a word language model. A Decoder is immutable after New and
// may be used from multiple goroutines.
type Decoder struct {
	cfg     Config
	trie    *trie.Trie
	lm      language.Model
	tokens  Tokens
	logger  *slog.Logger
	metrics *observe.Metrics
	workers int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for per-decode debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithMetrics records decode metrics to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// WithWorkers bounds how many batch items DecodeBatch decodes at once.
// n <= 0 means no limit.
func WithWorkers(n int) Option {
	return func(d *Decoder) {
		d.workers = n
	}
}

// New creates a Decoder. The trie and language model must share the same
// word id space.
func New(cfg Config, t *trie.Trie, lm language.Model, tokens Tokens, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("decoder: nil trie")
	}
	if lm == nil {
		return nil, errors.New("decoder: nil language model")
	}
	if tokens.Blank == tokens.Silence {
		return nil, errors.New("decoder: blank and silence must be distinct tokens")
	}
	d := &Decoder{
		cfg:    cfg,
		trie:   t,
		lm:     lm,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the decoder parameters.
func (d *Decoder) Config() Config { return d.cfg }

// hyp is one beam entry. Histories are not stored; parent indexes the
// previous generation and is followed back when the search ends.
type hyp struct {
	score     float64 // search score, including the trie look-ahead
	am        float64
	lm        float64
	words     int
	sils      int
	unks      int
	lmState   language.State
	node      int32
	token     int
	word      int // word committed on this frame, or -1
	prevBlank bool
	parent    int
}

// mergeKey identifies hypotheses with identical futures.
type mergeKey struct {
	node      int32
	token     int
	prevBlank bool
	lmState   language.State
}

// candidates collects the next generation for one frame.
type candidates struct {
	list    []hyp
	index   map[mergeKey]int
	best    float64
	logAdd  bool
	thresh  float64
	dropped int
}

func (c *candidates) reset() {
	c.list = c.list[:0]
	clear(c.index)
	c.best = math.Inf(-1)
	c.dropped = 0
}

func (c *candidates) add(h hyp) {
	if math.IsNaN(h.score) || math.IsInf(h.score, -1) || h.score < c.best-c.thresh {
		c.dropped++
		return
	}
	key := mergeKey{node: h.node, token: h.token, prevBlank: h.prevBlank, lmState: h.lmState}
	if i, ok := c.index[key]; ok {
		c.dropped++
		old := &c.list[i]
		merged := math.Max(old.score, h.score)
		if c.logAdd {
			merged = mathutil.LogAdd(old.score, h.score)
		}
		if h.score > old.score {
			*old = h
		}
		old.score = merged
		c.best = math.Max(c.best, merged)
		return
	}
	c.index[key] = len(c.list)
	c.list = append(c.list, h)
	c.best = math.Max(c.best, h.score)
}

// prune keeps the beamSize best candidates within the threshold of the
// best one, in score order. Ties keep creation order.
func (c *candidates) prune(beamSize int) []hyp {
	next := make([]hyp, 0, min(len(c.list), beamSize))
	for _, h := range c.list {
		if h.score >= c.best-c.thresh {
			next = append(next, h)
		}
	}
	slices.SortStableFunc(next, func(a, b hyp) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(next) > beamSize {
		next = next[:beamSize]
	}
	c.dropped += len(c.list) - len(next)
	return next
}

// Decode runs the beam search over one utterance and returns up to NBest
// hypotheses, best first. Empty input yields a single empty hypothesis
// with score 0.
func (d *Decoder) Decode(em *Emissions) []Hypothesis {
	return d.decode(context.Background(), em)
}

func (d *Decoder) decode(ctx context.Context, em *Emissions) []Hypothesis {
	start := time.Now()
	hyps, pruned := d.search(em)
	frames, _ := em.Dims()

	status := "ok"
	if len(hyps[0].Tokens) == 0 {
		status = "empty"
	}
	d.logger.Debug("decoded utterance",
		"frames", frames,
		"words", hyps[0].WordCount,
		"score", hyps[0].Score,
		"pruned", pruned,
		"elapsed", time.Since(start),
	)
	if d.metrics != nil {
		d.metrics.RecordDecode(ctx, observe.DecodeStats{
			Frames:   frames,
			Words:    hyps[0].WordCount,
			Pruned:   pruned,
			Duration: time.Since(start),
			Status:   status,
		})
	}
	return hyps
}

func (d *Decoder) search(em *Emissions) ([]Hypothesis, int) {
	T, N := em.Dims()
	if T == 0 {
		return []Hypothesis{{}}, 0
	}

	k := d.cfg.BeamSizeToken
	if k <= 0 || k > N {
		k = N
	}
	scratch := make([]float64, N)
	idx := make([]int, N)

	generations := make([][]hyp, 0, T+1)
	generations = append(generations, []hyp{{
		lmState: d.lm.Start(),
		node:    trie.Root,
		token:   d.tokens.Silence,
		word:    -1,
		parent:  -1,
	}})

	c := &candidates{
		index:  make(map[mergeKey]int),
		logAdd: d.cfg.LogAdd,
		thresh: d.cfg.BeamThreshold,
	}
	pruned := 0
	for t := 0; t < T; t++ {
		frame := em.Frame(t)
		targets := topTokens(frame, k, scratch, idx)
		c.reset()
		prev := generations[t]
		for pi := range prev {
			d.expand(c, &prev[pi], pi, frame, targets)
		}
		next := c.prune(d.cfg.BeamSize)
		pruned += c.dropped
		if len(next) == 0 {
			d.logger.Warn("beam emptied; returning empty hypothesis", "frame", t)
			return []Hypothesis{{}}, pruned
		}
		generations = append(generations, next)
	}
	return d.finish(generations), pruned
}

// expand adds every successor of p for one frame.
func (d *Decoder) expand(c *candidates, p *hyp, pi int, frame []float64, targets []int) {
	blank, sil := d.tokens.Blank, d.tokens.Silence
	lexMax := 0.0
	if p.node != trie.Root {
		lexMax = d.trie.MaxScore(p.node)
	}

	for _, n := range targets {
		e := frame[n]
		if n == blank || e <= mathutil.LogZero {
			continue
		}
		// CTC repeat without an intervening blank is handled below.
		if n == p.token && !p.prevBlank {
			continue
		}

		if n == sil {
			d.expandSilence(c, p, pi, e, lexMax)
			continue
		}

		child, ok := d.trie.Child(p.node, n)
		if !ok {
			continue
		}
		h := d.successor(p, pi, n, e)
		h.node = child
		h.score += d.cfg.LMWeight * (d.trie.MaxScore(child) - lexMax)
		c.add(h)
	}

	// Repeat of the previous token collapses onto the same trie position.
	if !p.prevBlank && p.token != blank {
		if e := frame[p.token]; e > mathutil.LogZero {
			c.add(d.successor(p, pi, p.token, e))
		}
	}

	if e := frame[blank]; e > mathutil.LogZero {
		h := d.successor(p, pi, blank, e)
		h.prevBlank = true
		c.add(h)
	}
}

// expandSilence handles a new silence emission: a pause at the root, or
// the end of the word spelled so far.
func (d *Decoder) expandSilence(c *candidates, p *hyp, pi int, e, lexMax float64) {
	sil := d.tokens.Silence
	if p.node == trie.Root {
		h := d.successor(p, pi, sil, e)
		h.score += d.cfg.SilScore
		h.sils++
		c.add(h)
		return
	}
	for _, label := range d.trie.Labels(p.node) {
		state, lmScore := d.lm.Score(p.lmState, label.WordID)
		h := d.successor(p, pi, sil, e)
		h.node = trie.Root
		h.lmState = state
		h.word = label.WordID
		h.lm += lmScore
		h.words++
		h.sils++
		h.score += d.cfg.LMWeight*(lmScore-lexMax) + d.cfg.WordScore + d.cfg.SilScore
		if label.WordID == d.tokens.UnkWord {
			h.unks++
			h.score += d.cfg.UnkScore
		}
		c.add(h)
	}
}

func (d *Decoder) successor(p *hyp, pi, token int, e float64) hyp {
	h := *p
	h.score += e
	h.am += e
	h.token = token
	h.word = -1
	h.prevBlank = false
	h.parent = pi
	return h
}

type ranked struct {
	gen   int
	score float64
	lm    float64
}

// finish applies the end-of-sentence score, ranks the last generation and
// rebuilds the n-best histories.
func (d *Decoder) finish(generations [][]hyp) []Hypothesis {
	last := generations[len(generations)-1]

	// Hypotheses resting between words are complete; prefer them.
	pool := make([]int, 0, len(last))
	for i := range last {
		if last[i].node == trie.Root {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		for i := range last {
			pool = append(pool, i)
		}
	}

	cands := make([]ranked, len(pool))
	for j, i := range pool {
		h := &last[i]
		_, endScore := d.lm.Finish(h.lmState)
		lm := h.lm + endScore
		cands[j] = ranked{gen: i, score: d.finalScore(h, lm), lm: lm}
	}
	slices.SortStableFunc(cands, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})

	n := min(d.cfg.NBest, len(cands))
	out := make([]Hypothesis, n)
	for j := 0; j < n; j++ {
		h := &last[cands[j].gen]
		out[j] = Hypothesis{
			Score:     cands[j].score,
			AMScore:   h.am,
			LMScore:   cands[j].lm,
			WordCount: h.words,
			SilCount:  h.sils,
		}
		out[j].Tokens, out[j].Words = backtrack(generations, cands[j].gen)
	}
	return out
}

func (d *Decoder) finalScore(h *hyp, lm float64) float64 {
	s := h.am + d.cfg.LMWeight*lm + d.cfg.WordScore*float64(h.words) + d.cfg.SilScore*float64(h.sils)
	if h.unks > 0 {
		s += d.cfg.UnkScore * float64(h.unks)
	}
	return s
}

func backtrack(generations [][]hyp, i int) ([]int, []int) {
	T := len(generations) - 1
	tokens := make([]int, T)
	var words []int
	for t := T; t > 0; t-- {
		h := &generations[t][i]
		tokens[t-1] = h.token
		if h.word >= 0 {
			words = append(words, h.word)
		}
		i = h.parent
	}
	slices.Reverse(words)
	return tokens, words
}

package language

// State is an opaque language-model context. Implementations must use
// comparable, immutable values: the decoder merges hypotheses whose states
// compare equal.
type State any

// Model is a stateful word-level scorer. Word ids come from the decoder's
// word dictionary. Implementations must be safe for concurrent use.
type Model interface {
	// Start returns the sentence-initial state.
	Start() State
	// Score advances s by wordID and returns the new state and the
	// incremental natural-log probability.
	Score(s State, wordID int) (State, float64)
	// Finish scores the end of sentence from s.
	Finish(s State) (State, float64)
}

// Words maps word ids back to strings.
type Words interface {
	Entry(id int) string
}

// WordModel adapts an NGramModel to the Model interface. Its states carry
// the last Order-1 words of history.
type WordModel struct {
	lm    *NGramModel
	words Words
	oov   float64
}

// WordModelOption configures a WordModel.
type WordModelOption func(*WordModel)

// WithOOVLogProb scores words missing from the n-gram model with
// logProb, a natural log, instead of the model's <unk> entry. The
// NGramModel itself is left untouched.
func WithOOVLogProb(logProb float64) WordModelOption {
	return func(w *WordModel) {
		w.oov = logProb
	}
}

// ngramState is the space-joined history context.
type ngramState struct {
	ctx string
}

// NewWordModel binds m to the id space of words.
func NewWordModel(m *NGramModel, words Words, opts ...WordModelOption) *WordModel {
	w := &WordModel{lm: m, words: words}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start returns the state after <s>.
func (w *WordModel) Start() State {
	return ngramState{ctx: w.lm.next("", SentenceStart)}
}

// Score returns the state after wordID and log P(word | state).
func (w *WordModel) Score(s State, wordID int) (State, float64) {
	st := s.(ngramState)
	word := w.words.Entry(wordID)
	lp := w.lm.score(st.ctx, word, w.oov)
	return ngramState{ctx: w.lm.next(st.ctx, word)}, lp
}

// Finish returns the final state and log P(</s> | state).
func (w *WordModel) Finish(s State) (State, float64) {
	st := s.(ngramState)
	lp := w.lm.score(st.ctx, SentenceEnd, w.oov)
	return ngramState{ctx: w.lm.next(st.ctx, SentenceEnd)}, lp
}

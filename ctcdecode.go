// Package ctcdecode recognizes words in CTC acoustic model output with a
// lexicon-constrained beam search scored by an n-gram language model.
package ctcdecode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ieee0824/ctcdecode/decoder"
	"github.com/ieee0824/ctcdecode/internal/mathutil"
	"github.com/ieee0824/ctcdecode/internal/observe"
	"github.com/ieee0824/ctcdecode/language"
	"github.com/ieee0824/ctcdecode/lexicon"
	"github.com/ieee0824/ctcdecode/trie"
	"github.com/ieee0824/ctcdecode/vocab"
)

var (
	// ErrMissingModel is returned when a required model path is empty.
	ErrMissingModel = errors.New("ctcdecode: missing model path")
	// ErrEmissionWidth is returned when an emission matrix does not have
	// one column per vocabulary token.
	ErrEmissionWidth = errors.New("ctcdecode: emission width does not match vocabulary")
)

// Recognizer is the top-level word recognizer. It is safe for concurrent
// use once constructed.
type Recognizer struct {
	Vocab   *vocab.Vocabulary
	Lexicon *lexicon.Lexicon
	Dict    *lexicon.WordDict
	LM      *language.NGramModel
	DecCfg  decoder.Config

	UnkLogProb    float64 // log10 probability for words missing from the LM. 0 = disable.
	Subwords      bool    // lexicon entries are word pieces
	FrameDuration float64 // seconds per emission frame

	trie    *trie.Trie
	model   language.Model
	dec     *decoder.Decoder
	post    *decoder.PostProcessor
	logger  *slog.Logger
	metrics *observe.Metrics
	workers int
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithDecoderConfig sets custom decoder parameters.
func WithDecoderConfig(cfg decoder.Config) Option {
	return func(r *Recognizer) {
		r.DecCfg = cfg
	}
}

// WithSubwords treats lexicon entries as "_"-delimited word pieces.
func WithSubwords(enabled bool) Option {
	return func(r *Recognizer) {
		r.Subwords = enabled
	}
}

// WithFrameDuration sets the emission frame shift in seconds.
func WithFrameDuration(seconds float64) Option {
	return func(r *Recognizer) {
		r.FrameDuration = seconds
	}
}

// WithUnkLogProb sets the LM probability, in log10, of words the language
// model does not contain (e.g. -5.0). The loaded NGramModel is not
// modified, so recognizers sharing it keep their own setting.
func WithUnkLogProb(log10prob float64) Option {
	return func(r *Recognizer) {
		r.UnkLogProb = log10prob
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// WithMetrics records decode metrics to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Recognizer) {
		r.metrics = m
	}
}

// WithWorkers bounds how many batch items are decoded at once.
func WithWorkers(n int) Option {
	return func(r *Recognizer) {
		r.workers = n
	}
}

// NewRecognizer creates a Recognizer from model files: a token list, an
// ARPA language model and a lexicon.
func NewRecognizer(vocabPath, lmPath, lexiconPath string, opts ...Option) (*Recognizer, error) {
	switch {
	case vocabPath == "":
		return nil, fmt.Errorf("%w: vocabulary", ErrMissingModel)
	case lmPath == "":
		return nil, fmt.Errorf("%w: language model", ErrMissingModel)
	case lexiconPath == "":
		return nil, fmt.Errorf("%w: lexicon", ErrMissingModel)
	}

	v, err := vocab.LoadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	lm, err := language.LoadARPAFile(lmPath)
	if err != nil {
		return nil, fmt.Errorf("load language model: %w", err)
	}
	lex, err := lexicon.LoadFile(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	return NewRecognizerFromModels(v, lex, lm, opts...)
}

// NewRecognizerFromModels creates a Recognizer from pre-loaded models.
func NewRecognizerFromModels(v *vocab.Vocabulary, lex *lexicon.Lexicon, lm *language.NGramModel, opts ...Option) (*Recognizer, error) {
	r := &Recognizer{
		Vocab:         v,
		Lexicon:       lex,
		LM:            lm,
		DecCfg:        decoder.DefaultConfig(),
		FrameDuration: decoder.DefaultFrameDuration,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var lmOpts []language.WordModelOption
	if r.UnkLogProb != 0 {
		lmOpts = append(lmOpts, language.WithOOVLogProb(mathutil.FromLog10(r.UnkLogProb)))
	}

	r.Dict = lexicon.NewWordDict(lex)
	r.model = language.NewWordModel(lm, r.Dict, lmOpts...)
	t, err := trie.Build(v, lex, r.Dict, r.model)
	if err != nil {
		return nil, fmt.Errorf("build lexicon trie: %w", err)
	}
	r.trie = t
	if err := r.init(); err != nil {
		return nil, err
	}
	r.logger.Info("recognizer ready",
		"tokens", v.Len(),
		"words", r.Dict.Len(),
		"trie_nodes", t.Len(),
		"lm_order", lm.Order,
	)
	return r, nil
}

func (r *Recognizer) init() error {
	opts := []decoder.Option{decoder.WithLogger(r.logger), decoder.WithWorkers(r.workers)}
	if r.metrics != nil {
		opts = append(opts, decoder.WithMetrics(r.metrics))
	}
	dec, err := decoder.New(r.DecCfg, r.trie, r.model, decoder.Tokens{
		Blank:   r.Vocab.Blank(),
		Silence: r.Vocab.Silence(),
		UnkWord: r.Dict.UnkID(),
	}, opts...)
	if err != nil {
		return err
	}
	r.dec = dec
	r.post = &decoder.PostProcessor{
		Words:         r.Dict,
		Blank:         r.Vocab.Blank(),
		Silence:       r.Vocab.Silence(),
		FrameDuration: r.FrameDuration,
		Subwords:      r.Subwords,
	}
	return nil
}

// WithConfig returns a Recognizer that shares r's models and trie but
// decodes with cfg.
func (r *Recognizer) WithConfig(cfg decoder.Config) (*Recognizer, error) {
	c := *r
	c.DecCfg = cfg
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Recognize decodes every utterance of batch and returns the best
// hypothesis of each, in order. An utterance without frames yields an
// empty Result. Every utterance must have one column per vocabulary token.
func (r *Recognizer) Recognize(ctx context.Context, batch []*decoder.Emissions) ([]decoder.Result, error) {
	start := time.Now()
	log := r.logger.With("request_id", uuid.NewString())

	for i, em := range batch {
		if err := r.checkWidth(em); err != nil {
			log.Warn("recognition rejected", "item", i, "err", err)
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	nbest, err := r.dec.DecodeBatch(ctx, batch)
	if err != nil {
		log.Warn("recognition aborted", "items", len(batch), "err", err)
		return nil, err
	}
	results := make([]decoder.Result, len(nbest))
	words := 0
	for i, hyps := range nbest {
		results[i] = r.post.Process(hyps[0])
		words += len(results[i].Words)
	}
	log.Info("recognized batch",
		"items", len(batch),
		"words", words,
		"elapsed", time.Since(start),
	)
	return results, nil
}

// NBest decodes one utterance and returns up to DecCfg.NBest results, best
// first.
func (r *Recognizer) NBest(em *decoder.Emissions) ([]decoder.Result, error) {
	if err := r.checkWidth(em); err != nil {
		return nil, err
	}
	hyps := r.dec.Decode(em)
	results := make([]decoder.Result, len(hyps))
	for i, h := range hyps {
		results[i] = r.post.Process(h)
	}
	return results, nil
}

func (r *Recognizer) checkWidth(em *decoder.Emissions) error {
	if _, n := em.Dims(); n != r.Vocab.Len() {
		return fmt.Errorf("%w: %d columns, %d tokens", ErrEmissionWidth, n, r.Vocab.Len())
	}
	return nil
}

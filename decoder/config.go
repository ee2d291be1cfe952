package decoder

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds beam search parameters.
type Config struct {
	BeamSize      int     `yaml:"beam_size"`       // maximum number of active hypotheses
	BeamSizeToken int     `yaml:"beam_size_token"` // tokens expanded per frame; 0 = whole vocabulary
	BeamThreshold float64 `yaml:"beam_threshold"`  // log-domain distance from the best hypothesis
	LMWeight      float64 `yaml:"lm_weight"`       // language model scaling factor
	WordScore     float64 `yaml:"word_score"`      // added per committed word
	SilScore      float64 `yaml:"sil_score"`       // added per silence emission
	UnkScore      float64 `yaml:"unk_score"`       // added per <unk> word; -Inf forbids them
	LogAdd        bool    `yaml:"log_add"`         // merge equivalent hypotheses with log-add instead of max
	NBest         int     `yaml:"nbest"`           // hypotheses returned per utterance
}

// DefaultConfig returns reasonable default parameters.
func DefaultConfig() Config {
	return Config{
		BeamSize:      15,
		BeamSizeToken: 0,
		BeamThreshold: 25.0,
		LMWeight:      1.0,
		WordScore:     0.0,
		SilScore:      0.0,
		UnkScore:      math.Inf(-1),
		NBest:         1,
	}
}

// Validate checks that every parameter is usable. It returns a joined
// error listing all problems found.
func (c Config) Validate() error {
	var errs []error
	if c.BeamSize <= 0 {
		errs = append(errs, fmt.Errorf("beam_size %d must be positive", c.BeamSize))
	}
	if c.BeamSizeToken < 0 {
		errs = append(errs, fmt.Errorf("beam_size_token %d must not be negative", c.BeamSizeToken))
	}
	if c.NBest <= 0 {
		errs = append(errs, fmt.Errorf("nbest %d must be positive", c.NBest))
	}
	if !finite(c.BeamThreshold) || c.BeamThreshold < 0 {
		errs = append(errs, fmt.Errorf("beam_threshold %v must be a finite non-negative number", c.BeamThreshold))
	}
	weights := []struct {
		name string
		v    float64
	}{
		{"lm_weight", c.LMWeight},
		{"word_score", c.WordScore},
		{"sil_score", c.SilScore},
	}
	for _, w := range weights {
		if !finite(w.v) {
			errs = append(errs, fmt.Errorf("%s %v must be finite", w.name, w.v))
		}
	}
	if math.IsNaN(c.UnkScore) || math.IsInf(c.UnkScore, 1) {
		errs = append(errs, fmt.Errorf("unk_score %v must be finite or -Inf", c.UnkScore))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("decoder: invalid config: %w", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseConfig decodes YAML from r on top of DefaultConfig and validates
// the result. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoder: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML decoder configuration from path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("decoder: open %q: %w", path, err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// Package config loads the YAML configuration shared by the command-line
// tools: model file locations, decoder tuning and logging.
package config

import (
	"log/slog"

	"github.com/ieee0824/ctcdecode/decoder"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level. The empty level is info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the top-level configuration file.
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Workers bounds how many utterances are decoded at once. 0 means one
	// per utterance.
	Workers int `yaml:"workers"`

	Model ModelConfig `yaml:"model"`

	// Decoder holds beam search parameters. Omitted keys keep
	// [decoder.DefaultConfig] values.
	Decoder decoder.Config `yaml:"decoder"`
}

// ModelConfig locates the model files.
type ModelConfig struct {
	// Vocabulary is the token list, one token per line, in emission order.
	Vocabulary string `yaml:"vocabulary"`

	// Lexicon maps words to token spellings.
	Lexicon string `yaml:"lexicon"`

	// LanguageModel is an ARPA n-gram file.
	LanguageModel string `yaml:"language_model"`

	// UnkLogProb, when non-zero, is the log10 probability given to words
	// the language model does not know.
	UnkLogProb float64 `yaml:"unk_log_prob"`

	// Subwords marks lexicon entries as word pieces joined by "_".
	Subwords bool `yaml:"subwords"`

	// FrameDuration is the acoustic frame shift in seconds.
	FrameDuration float64 `yaml:"frame_duration"`
}

// Default returns a configuration with decoder defaults and a 20 ms frame.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Model: ModelConfig{
			FrameDuration: decoder.DefaultFrameDuration,
		},
		Decoder: decoder.DefaultConfig(),
	}
}

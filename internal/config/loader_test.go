package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimal = `
model:
  vocabulary: tokens.txt
  lexicon: lexicon.txt
  language_model: lm.arpa
`

func TestLoadFromReader_Defaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("LoadFromReader error: %v", err)
	}
	if cfg.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Model.FrameDuration != 0.02 {
		t.Errorf("FrameDuration = %v, want 0.02", cfg.Model.FrameDuration)
	}
	if cfg.Decoder.BeamSize != 15 || !math.IsInf(cfg.Decoder.UnkScore, -1) {
		t.Errorf("Decoder = %+v, want defaults", cfg.Decoder)
	}
}

func TestLoadFromReader_Full(t *testing.T) {
	in := `
log_level: debug
workers: 4
model:
  vocabulary: tokens.txt
  lexicon: lexicon.txt
  language_model: lm.arpa
  unk_log_prob: -6
  subwords: true
  frame_duration: 0.04
decoder:
  beam_size: 100
  lm_weight: 2
  word_score: 1.5
`
	cfg, err := LoadFromReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadFromReader error: %v", err)
	}
	if cfg.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", cfg.LogLevel.Level())
	}
	if cfg.Workers != 4 || !cfg.Model.Subwords || cfg.Model.FrameDuration != 0.04 || cfg.Model.UnkLogProb != -6 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Decoder.BeamSize != 100 || cfg.Decoder.LMWeight != 2 || cfg.Decoder.WordScore != 1.5 {
		t.Errorf("Decoder = %+v", cfg.Decoder)
	}
	if cfg.Decoder.BeamThreshold != 25 {
		t.Errorf("BeamThreshold = %v, want default 25", cfg.Decoder.BeamThreshold)
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unknown key", minimal + "beam: 3\n", "decode yaml"},
		{"bad log level", minimal + "log_level: loud\n", "log_level"},
		{"missing lexicon", "model:\n  vocabulary: a\n  language_model: b\n", "model.lexicon"},
		{"negative workers", minimal + "workers: -1\n", "workers"},
		{"bad decoder", minimal + "decoder:\n  beam_size: 0\n", "beam_size"},
		{"zero frame", strings.Replace(minimal, "lm.arpa", "lm.arpa\n  frame_duration: 0", 1), "frame_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctcdecode.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.LanguageModel != "lm.arpa" {
		t.Errorf("LanguageModel = %q", cfg.Model.LanguageModel)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level LogLevel
		valid bool
		want  slog.Level
	}{
		{LogDebug, true, slog.LevelDebug},
		{LogInfo, true, slog.LevelInfo},
		{LogWarn, true, slog.LevelWarn},
		{LogError, true, slog.LevelError},
		{"", false, slog.LevelInfo},
		{"trace", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.level.IsValid(); got != tt.valid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.level, got, tt.valid)
		}
		if got := tt.level.Level(); got != tt.want {
			t.Errorf("%q.Level() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

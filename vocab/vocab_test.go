package vocab

import (
	"errors"
	"strings"
	"testing"
)

func TestSpecialTokenResolution(t *testing.T) {
	tests := []struct {
		name        string
		tokens      []string
		wantBlank   int
		wantSilence int
	}{
		{"ctc_blank_preferred", []string{"<s>", "<ctc_blank>", "|", "a"}, 1, 2},
		{"legacy_blank", []string{"<pad>", "<s>", "a", "|"}, 1, 3},
		{"sep_preferred", []string{"<s>", "|", "<sep>", "</s>"}, 0, 2},
		{"pipe_before_eos", []string{"<s>", "</s>", "|", "a"}, 0, 2},
		{"eos_fallback", []string{"<s>", "a", "</s>"}, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.tokens)
			if err != nil {
				t.Fatalf("New error: %v", err)
			}
			if v.Blank() != tt.wantBlank {
				t.Errorf("Blank() = %d, want %d", v.Blank(), tt.wantBlank)
			}
			if v.Silence() != tt.wantSilence {
				t.Errorf("Silence() = %d, want %d", v.Silence(), tt.wantSilence)
			}
		})
	}
}

func TestMissingSpecialTokens(t *testing.T) {
	if _, err := New([]string{"a", "b", "|"}); !errors.Is(err, ErrMissingBlank) {
		t.Errorf("err = %v, want ErrMissingBlank", err)
	}
	if _, err := New([]string{"<s>", "a", "b"}); !errors.Is(err, ErrMissingSilence) {
		t.Errorf("err = %v, want ErrMissingSilence", err)
	}
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestIndexCaseFolding(t *testing.T) {
	v, err := New([]string{"<s>", "|", "a", "B", "b"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	tests := []struct {
		tok  string
		want int
		ok   bool
	}{
		{"a", 2, true},
		{"A", 2, true},
		{"B", 3, true},
		{"b", 4, true},
		{"c", 0, false},
	}
	for _, tt := range tests {
		got, ok := v.Index(tt.tok)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Index(%q) = %d, %v, want %d, %v", tt.tok, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLoad(t *testing.T) {
	src := "<s> 0\n<pad> 1\n\n| 2\nE 3\n"
	v, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if v.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", v.Len())
	}
	if v.Token(3) != "E" {
		t.Errorf("Token(3) = %q, want E", v.Token(3))
	}
	if v.Silence() != 2 {
		t.Errorf("Silence() = %d, want 2", v.Silence())
	}
}

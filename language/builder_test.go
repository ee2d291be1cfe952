package language

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestBuilderBigram(t *testing.T) {
	b := NewBuilder(2)
	b.AddSentence([]string{"new", "york"})
	b.AddSentence([]string{"new", "york", "is", "big"})
	b.AddSentence([]string{"new", "jersey"})

	var buf bytes.Buffer
	if err := b.WriteARPA(&buf); err != nil {
		t.Fatalf("WriteARPA error: %v", err)
	}
	arpa := buf.String()
	for _, section := range []string{"\\data\\", "\\1-grams:", "\\2-grams:", "\\end\\"} {
		if !strings.Contains(arpa, section) {
			t.Errorf("missing %s section", section)
		}
	}
	if strings.Contains(arpa, "\\3-grams:") {
		t.Error("unexpected \\3-grams: section for bigram model")
	}

	model := mustLoad(t, arpa)
	if model.Order != 2 {
		t.Errorf("Order = %d, want 2", model.Order)
	}
	if !model.Contains("jersey") {
		t.Error("jersey not in vocabulary")
	}
	// york follows new twice; N(new) = 3, T(new) = 2
	lp := model.LogProb([]string{"new"}, "york")
	if want := math.Log(2.0 / 5.0); math.Abs(lp-want) > 1e-5 {
		t.Errorf("P(york | new) = %f, want %f", lp, want)
	}
}

// Every history's distribution over the vocabulary must sum to one once
// backoff weights are applied.
func TestBuilderNormalized(t *testing.T) {
	sentences := [][]string{
		{"a", "b", "c"},
		{"a", "b", "a", "b", "d"},
		{"c", "a", "b"},
		{"d", "d", "a"},
	}
	for _, order := range []int{2, 3, 4} {
		b := NewBuilder(order)
		for _, s := range sentences {
			b.AddSentence(s)
		}
		model := b.Build()
		if model.Order != order {
			t.Fatalf("Order = %d, want %d", model.Order, order)
		}

		for _, s := range sentences {
			seq := append([]string{SentenceStart}, s...)
			for i := 1; i <= len(seq); i++ {
				history := seq[:i]
				sum := 0.0
				for _, w := range model.Vocab() {
					sum += math.Exp(model.LogProb(history, w))
				}
				if math.Abs(sum-1) > 1e-9 {
					t.Errorf("order %d: sum over vocabulary after %v = %.12f, want 1", order, history, sum)
				}
			}
		}
	}
}

func TestBuilderTrigram(t *testing.T) {
	b := NewBuilder(3)
	b.AddSentence([]string{"today", "is", "nice", "weather", "again"})
	b.AddSentence([]string{"today", "is", "hot", "again"})
	b.AddSentence([]string{"tomorrow", "is", "nice", "weather", "again"})

	model := b.Build()
	s1 := model.SentenceLogProb([]string{"today", "is", "nice", "weather", "again"})
	s2 := model.SentenceLogProb([]string{"today", "is", "hot", "weather", "again"})
	if s1 <= s2 {
		t.Errorf("seen sentence should score higher: %.4f <= %.4f", s1, s2)
	}
}

func TestBuilderHigherOrderRoundTrip(t *testing.T) {
	b := NewBuilder(4)
	b.AddSentence([]string{"a", "b", "a", "c"})
	b.AddSentence([]string{"b", "a", "c"})
	built := b.Build()

	var buf bytes.Buffer
	if err := built.WriteARPA(&buf); err != nil {
		t.Fatalf("WriteARPA error: %v", err)
	}
	if !strings.Contains(buf.String(), "\\4-grams:") {
		t.Fatal("missing \\4-grams: section")
	}
	model := mustLoad(t, buf.String())
	if model.Order != 4 {
		t.Fatalf("Order = %d, want 4", model.Order)
	}

	for _, q := range []struct {
		history []string
		word    string
	}{
		{[]string{"<s>", "a", "b"}, "a"},
		{[]string{"b", "a"}, "c"},
		{[]string{"c"}, "b"},
		{nil, "a"},
	} {
		got, want := model.LogProb(q.history, q.word), built.LogProb(q.history, q.word)
		if math.Abs(got-want) > 1e-5 {
			t.Errorf("LogProb(%v, %s) = %f after reload, want %f", q.history, q.word, got, want)
		}
	}
}

func TestBuilderRestrictTo(t *testing.T) {
	b := NewBuilder(2)
	b.RestrictTo([]string{"a", "b"})
	b.AddSentence([]string{"a", "x", "b"})
	b.AddSentence([]string{"a", "b"})
	model := b.Build()

	if model.Contains("x") {
		t.Error("word outside the vocabulary kept")
	}
	// 9 tokens, one of them <unk>
	lp, _, ok := model.Lookup(Unknown)
	if !ok {
		t.Fatal("missing <unk> unigram")
	}
	if want := math.Log(1.0 / 9.0); math.Abs(lp-want) > 1e-12 {
		t.Errorf("<unk> LogProb = %f, want %f", lp, want)
	}
	if _, _, ok := model.Lookup("a", Unknown); !ok {
		t.Error("missing bigram a <unk>")
	}
	if got, want := model.LogProb([]string{"a"}, "y"), model.LogProb([]string{"a"}, Unknown); got != want {
		t.Errorf("LogProb(a, y) = %f, want the <unk> score %f", got, want)
	}
}

func TestBuilderUnkLogProb(t *testing.T) {
	tests := []struct {
		name     string
		restrict []string
		want     float64
	}{
		{"explicit entry", nil, -6.0 * math.Ln10},
		{"counted <unk> wins", []string{"hello"}, math.Log(1.0 / 4.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(2)
			b.SetUnkLogProb(-6.0)
			if tt.restrict != nil {
				b.RestrictTo(tt.restrict)
			}
			b.AddSentence([]string{"hello", "world"})

			var buf bytes.Buffer
			if err := b.WriteARPA(&buf); err != nil {
				t.Fatalf("WriteARPA error: %v", err)
			}
			model := mustLoad(t, buf.String())
			got := model.LogProb(nil, "zebra")
			if math.Abs(got-tt.want) > 1e-5 {
				t.Errorf("LogProb(zebra) = %f, want %f", got, tt.want)
			}
		})
	}
}

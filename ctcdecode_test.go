package ctcdecode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ieee0824/ctcdecode/decoder"
	"github.com/ieee0824/ctcdecode/internal/mathutil"
)

const testARPA = `\data\
ngram 1=4

\1-grams:
-1.0	</s>
-99	<s>
-0.3	ab
-0.6	ba

\end\
`

func writeModels(t *testing.T) (vocabPath, lmPath, lexPath string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"tokens.txt":  "<s> 0\n| 1\na 2\nb 3\n",
		"lm.arpa":     testARPA,
		"lexicon.txt": "# word spelling\nab a b\nba b a |\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "tokens.txt"), filepath.Join(dir, "lm.arpa"), filepath.Join(dir, "lexicon.txt")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func emissions(t *testing.T, tokens []int) *decoder.Emissions {
	t.Helper()
	const n = 4
	data := make([]float64, len(tokens)*n)
	for f, tok := range tokens {
		for k := 0; k < n; k++ {
			p := 0.01
			if k == tok {
				p = 0.97
			}
			data[f*n+k] = math.Log(p)
		}
	}
	em, err := decoder.NewEmissions(len(tokens), n, data)
	if err != nil {
		t.Fatal(err)
	}
	return em
}

func TestRecognize(t *testing.T) {
	vp, lp, xp := writeModels(t)
	r, err := NewRecognizer(vp, lp, xp, WithLogger(quietLogger()), WithWorkers(2))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}

	batch := []*decoder.Emissions{
		emissions(t, []int{2, 2, 3, 3, 1}),
		emissions(t, nil),
		emissions(t, []int{3, 0, 2, 1, 2, 3, 1}),
	}
	results, err := r.Recognize(context.Background(), batch)
	if err != nil {
		t.Fatalf("Recognize error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	if results[0].Text != "ab" {
		t.Errorf("results[0].Text = %q, want ab", results[0].Text)
	}
	if w := results[0].Words; len(w) != 1 || math.Abs(w[0].Start) > 1e-9 || math.Abs(w[0].End-0.1) > 1e-9 {
		t.Errorf("results[0].Words = %+v, want one word over [0, 0.1]", w)
	}
	if results[1].Text != "" || len(results[1].Words) != 0 {
		t.Errorf("results[1] = %+v, want empty", results[1])
	}
	if results[2].Text != "ba ab" {
		t.Errorf("results[2].Text = %q, want %q", results[2].Text, "ba ab")
	}
}

func TestRecognize_Cancelled(t *testing.T) {
	vp, lp, xp := writeModels(t)
	r, err := NewRecognizer(vp, lp, xp, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Recognize(ctx, []*decoder.Emissions{emissions(t, []int{2, 3, 1})}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewRecognizer_MissingPath(t *testing.T) {
	vp, lp, xp := writeModels(t)
	tests := []struct {
		name          string
		vocab, lm, lx string
	}{
		{"vocabulary", "", lp, xp},
		{"language model", vp, "", xp},
		{"lexicon", vp, lp, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecognizer(tt.vocab, tt.lm, tt.lx)
			if !errors.Is(err, ErrMissingModel) {
				t.Errorf("err = %v, want ErrMissingModel", err)
			}
		})
	}
}

func TestNewRecognizer_BadFiles(t *testing.T) {
	vp, lp, xp := writeModels(t)
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := NewRecognizer(missing, lp, xp); err == nil {
		t.Error("expected error for missing vocabulary file")
	}
	if _, err := NewRecognizer(vp, missing, xp); err == nil {
		t.Error("expected error for missing language model file")
	}

	bad := filepath.Join(t.TempDir(), "lexicon.txt")
	if err := os.WriteFile(bad, []byte("xyz x y z\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRecognizer(vp, lp, bad, WithLogger(quietLogger())); err == nil {
		t.Error("expected error for lexicon with unknown tokens")
	}
}

func TestWithConfig_NBest(t *testing.T) {
	vp, lp, xp := writeModels(t)
	r, err := NewRecognizer(vp, lp, xp, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	cfg := r.DecCfg
	cfg.NBest = 3
	r3, err := r.WithConfig(cfg)
	if err != nil {
		t.Fatalf("WithConfig error: %v", err)
	}
	results, err := r3.NBest(emissions(t, []int{2, 3, 1}))
	if err != nil {
		t.Fatalf("NBest error: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("len(results) = %d, want at least 2", len(results))
	}
	if results[0].Text != "ab" {
		t.Errorf("best = %q, want ab", results[0].Text)
	}
	if results[0].LogScore < results[1].LogScore {
		t.Errorf("results not sorted: %f < %f", results[0].LogScore, results[1].LogScore)
	}
	if results, _ := r.NBest(emissions(t, []int{2, 3, 1})); len(results) != 1 {
		t.Error("WithConfig changed the receiver")
	}

	cfg.BeamSize = 0
	if _, err := r.WithConfig(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestUnkLogProb(t *testing.T) {
	vp, lp, xp := writeModels(t)
	r, err := NewRecognizer(vp, lp, xp, WithLogger(quietLogger()), WithUnkLogProb(-5))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	// <unk> is not in the ARPA file; only the override scores it.
	_, got := r.model.Score(r.model.Start(), r.Dict.UnkID())
	if want := -5 * math.Ln10; math.Abs(got-want) > 1e-9 {
		t.Errorf("Score(<unk>) = %f, want %f", got, want)
	}

	plain, err := NewRecognizerFromModels(r.Vocab, r.Lexicon, r.LM, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRecognizerFromModels error: %v", err)
	}
	if _, got := plain.model.Score(plain.model.Start(), plain.Dict.UnkID()); got > mathutil.LogZero/2 {
		t.Errorf("shared model picked up the override: Score(<unk>) = %f", got)
	}
}

func TestRecognize_EmissionWidth(t *testing.T) {
	vp, lp, xp := writeModels(t)
	r, err := NewRecognizer(vp, lp, xp, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewRecognizer error: %v", err)
	}
	for _, n := range []int{3, 5} {
		em, err := decoder.NewEmissions(2, n, make([]float64, 2*n))
		if err != nil {
			t.Fatal(err)
		}
		batch := []*decoder.Emissions{emissions(t, []int{2, 3, 1}), em}
		if _, err := r.Recognize(context.Background(), batch); !errors.Is(err, ErrEmissionWidth) {
			t.Errorf("%d columns: Recognize err = %v, want ErrEmissionWidth", n, err)
		}
		if _, err := r.NBest(em); !errors.Is(err, ErrEmissionWidth) {
			t.Errorf("%d columns: NBest err = %v, want ErrEmissionWidth", n, err)
		}
	}
}

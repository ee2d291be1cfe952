package decoder

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewEmissions_Shape(t *testing.T) {
	tests := []struct {
		name           string
		frames, tokens int
		n              int
		wantErr        bool
	}{
		{"ok", 2, 3, 6, false},
		{"empty utterance", 0, 3, 0, false},
		{"short data", 2, 3, 5, true},
		{"no tokens", 2, 0, 0, true},
		{"negative frames", -1, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmissions(tt.frames, tt.tokens, make([]float64, tt.n))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromMatrix(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	em := FromMatrix(m)
	if f, n := em.Dims(); f != 2 || n != 3 {
		t.Fatalf("Dims = %d,%d, want 2,3", f, n)
	}
	if got := em.Frame(1); !reflect.DeepEqual(got, []float64{4, 5, 6}) {
		t.Errorf("Frame(1) = %v", got)
	}
	m.Set(0, 0, 100)
	if em.Frame(0)[0] != 1 {
		t.Error("FromMatrix must copy its input")
	}
}

func TestSplitBatch(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	items, err := SplitBatch(2, 3, 2, data)
	if err != nil {
		t.Fatalf("SplitBatch error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if got := items[1].Frame(0); !reflect.DeepEqual(got, []float64{7, 8}) {
		t.Errorf("items[1].Frame(0) = %v, want [7 8]", got)
	}
	if _, err := SplitBatch(2, 3, 2, data[:11]); err == nil {
		t.Error("expected error for short data")
	}
}

func TestLogSoftmax(t *testing.T) {
	em, err := NewEmissions(2, 3, []float64{1, 2, 3, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	em.LogSoftmax()
	for f := 0; f < 2; f++ {
		sum := 0.0
		for _, v := range em.Frame(f) {
			sum += math.Exp(v)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("frame %d sums to %f", f, sum)
		}
	}
	if !approx(em.Frame(1)[0], -math.Log(3)) {
		t.Errorf("uniform frame = %v", em.Frame(1))
	}
}

func TestTopTokens(t *testing.T) {
	frame := []float64{-1, -5, -0.5, -3, -2}
	scratch := make([]float64, len(frame))
	idx := make([]int, len(frame))

	if got := topTokens(frame, 2, scratch, idx); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("top 2 = %v, want [0 2]", got)
	}
	if got := topTokens(frame, 10, scratch, idx); !reflect.DeepEqual(got, []int{0, 1, 2, 3, 4}) {
		t.Errorf("top 10 = %v, want all", got)
	}
	if frame[2] != -0.5 {
		t.Error("topTokens modified frame")
	}
}

func TestReadEmissions(t *testing.T) {
	in := "# frames x tokens\n-0.1 -2.5 -3\n\n-1 -0.2 -4\n"
	em, err := ReadEmissions(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadEmissions error: %v", err)
	}
	if f, n := em.Dims(); f != 2 || n != 3 {
		t.Fatalf("Dims = %d,%d, want 2,3", f, n)
	}
	if got := em.Frame(1); !reflect.DeepEqual(got, []float64{-1, -0.2, -4}) {
		t.Errorf("Frame(1) = %v", got)
	}

	bad := []string{
		"",
		"-1 -2\n-1\n",
		"-1 x\n",
	}
	for _, in := range bad {
		if _, err := ReadEmissions(strings.NewReader(in)); err == nil {
			t.Errorf("ReadEmissions(%q): expected error", in)
		}
	}
}

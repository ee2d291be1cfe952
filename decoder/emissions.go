package decoder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Emissions holds per-frame token log-probabilities for one utterance,
// stored row-major as frames × tokens.
type Emissions struct {
	frames int
	tokens int
	data   []float64
}

// NewEmissions wraps data, which must hold frames*tokens values.
// data is not copied.
func NewEmissions(frames, tokens int, data []float64) (*Emissions, error) {
	if frames < 0 || tokens <= 0 {
		return nil, fmt.Errorf("decoder: invalid emission shape %dx%d", frames, tokens)
	}
	if len(data) != frames*tokens {
		return nil, fmt.Errorf("decoder: emission data has %d values, want %d", len(data), frames*tokens)
	}
	return &Emissions{frames: frames, tokens: tokens, data: data}, nil
}

// FromMatrix copies a frames × tokens matrix.
func FromMatrix(m mat.Matrix) *Emissions {
	r, c := m.Dims()
	e := &Emissions{frames: r, tokens: c, data: make([]float64, r*c)}
	if r == 0 || c == 0 {
		return e
	}
	mat.NewDense(r, c, e.data).Copy(m)
	return e
}

// SplitBatch slices a row-major [batch, frames, tokens] tensor, as produced
// by an acoustic model, into one Emissions per batch item.
func SplitBatch(batch, frames, tokens int, data []float32) ([]*Emissions, error) {
	if batch < 0 || frames < 0 || tokens <= 0 {
		return nil, fmt.Errorf("decoder: invalid batch shape %dx%dx%d", batch, frames, tokens)
	}
	if len(data) != batch*frames*tokens {
		return nil, fmt.Errorf("decoder: batch data has %d values, want %d", len(data), batch*frames*tokens)
	}
	items := make([]*Emissions, batch)
	size := frames * tokens
	for b := range items {
		buf := make([]float64, size)
		for i, v := range data[b*size : (b+1)*size] {
			buf[i] = float64(v)
		}
		items[b] = &Emissions{frames: frames, tokens: tokens, data: buf}
	}
	return items, nil
}

// ReadEmissions parses a text matrix: one frame per line, one
// whitespace-separated score per token. Blank lines and lines starting
// with '#' are skipped. Every frame must have the same number of scores.
func ReadEmissions(r io.Reader) (*Emissions, error) {
	var (
		data   []float64
		frames int
		tokens int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if tokens == 0 {
			tokens = len(fields)
		} else if len(fields) != tokens {
			return nil, fmt.Errorf("decoder: line %d: %d scores, want %d", lineNum, len(fields), tokens)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("decoder: line %d: %w", lineNum, err)
			}
			data = append(data, v)
		}
		frames++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decoder: read emissions: %w", err)
	}
	if tokens == 0 {
		return nil, fmt.Errorf("decoder: emission matrix has no columns")
	}
	return &Emissions{frames: frames, tokens: tokens, data: data}, nil
}

// ReadEmissionsFile is a convenience wrapper that opens a file path.
func ReadEmissionsFile(path string) (*Emissions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEmissions(f)
}

// Dims returns the number of frames and tokens.
func (e *Emissions) Dims() (frames, tokens int) {
	return e.frames, e.tokens
}

// Frame returns the scores of frame t. The slice aliases e.
func (e *Emissions) Frame(t int) []float64 {
	return e.data[t*e.tokens : (t+1)*e.tokens]
}

// LogSoftmax normalizes every frame in place so that its scores are
// log-probabilities. Use it when the model emits raw logits.
func (e *Emissions) LogSoftmax() {
	for t := 0; t < e.frames; t++ {
		row := e.Frame(t)
		floats.AddConst(-floats.LogSumExp(row), row)
	}
}

// topTokens returns the indices of the k highest-scoring tokens of frame in
// ascending index order. scratch and idx must have len(frame) capacity.
func topTokens(frame []float64, k int, scratch []float64, idx []int) []int {
	n := len(frame)
	idx = idx[:n]
	if k >= n {
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	scratch = scratch[:n]
	copy(scratch, frame)
	floats.Argsort(scratch, idx)
	top := idx[n-k:]
	slices.Sort(top)
	return top
}

package language

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ieee0824/ctcdecode/internal/mathutil"
)

// ErrNoHeader is returned when an ARPA file has no \data\ section with
// n-gram counts.
var ErrNoHeader = errors.New("arpa: missing \\data\\ header or n-gram counts")

// LoadARPA reads a language model in ARPA format. Every order declared in
// the \data\ header is kept. Log probabilities in ARPA files are base-10;
// they are converted to natural log.
func LoadARPA(r io.Reader) (*NGramModel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	// Skip until \data\ section
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "\\data\\" {
			break
		}
	}

	// Parse ngram counts
	maxOrder := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		lhs, _, ok := strings.Cut(line[len("ngram "):], "=")
		if !ok {
			return nil, fmt.Errorf("arpa: bad count line %q", line)
		}
		order, err := strconv.Atoi(strings.TrimSpace(lhs))
		if err != nil || order < 1 {
			return nil, fmt.Errorf("arpa: bad count line %q", line)
		}
		maxOrder = max(maxOrder, order)
	}
	if maxOrder == 0 {
		return nil, ErrNoHeader
	}
	model := NewNGramModel(maxOrder)

	// Parse n-gram sections
	for {
		line := strings.TrimSpace(scanner.Text())
		if line == "\\end\\" {
			break
		}

		if strings.HasPrefix(line, "\\") && strings.HasSuffix(line, "-grams:") {
			order, err := strconv.Atoi(strings.TrimSuffix(line[1:], "-grams:"))
			if err != nil || order < 1 || order > maxOrder {
				return nil, fmt.Errorf("arpa: section %q outside declared order %d", line, maxOrder)
			}
			for scanner.Scan() {
				entry := strings.TrimSpace(scanner.Text())
				if entry == "" {
					continue
				}
				if strings.HasPrefix(entry, "\\") {
					break
				}
				if err := parseNGramLine(model, order, entry); err != nil {
					return nil, fmt.Errorf("parse n-gram line %q: %w", entry, err)
				}
			}
			continue
		}

		if !scanner.Scan() {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if model.Count(1) == 0 {
		return nil, errors.New("arpa: no unigrams")
	}
	return model, nil
}

func parseNGramLine(model *NGramModel, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return fmt.Errorf("too few fields for %d-gram: %q", order, line)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse log prob: %w", err)
	}

	var logBackoff float64
	if len(fields) > order+1 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("parse backoff: %w", err)
		}
		logBackoff = mathutil.FromLog10(bo)
	}

	model.Add(fields[1:order+1], mathutil.FromLog10(logProb), logBackoff)
	return nil
}

// LoadARPAFile is a convenience wrapper that opens a file path.
func LoadARPAFile(path string) (*NGramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadARPA(f)
}

// WriteARPA writes m in ARPA format with base-10 scores. N-grams are
// sorted within each order.
func (m *NGramModel) WriteARPA(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "\\data\\")
	for k := range m.grams {
		fmt.Fprintf(bw, "ngram %d=%d\n", k+1, len(m.grams[k]))
	}
	for k, grams := range m.grams {
		fmt.Fprintf(bw, "\n\\%d-grams:\n", k+1)
		keys := make([]string, 0, len(grams))
		for key := range grams {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			e := grams[key]
			if e.LogBackoff != 0 {
				fmt.Fprintf(bw, "%.6f\t%s\t%.6f\n", e.LogProb/math.Ln10, key, e.LogBackoff/math.Ln10)
			} else {
				fmt.Fprintf(bw, "%.6f\t%s\n", e.LogProb/math.Ln10, key)
			}
		}
	}
	fmt.Fprintln(bw, "\n\\end\\")
	return bw.Flush()
}

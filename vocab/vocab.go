// Package vocab holds the acoustic model's emission token table.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Canonical names for the special tokens, in resolution order.
var (
	BlankCandidates   = []string{"<ctc_blank>", "<s>"}
	SilenceCandidates = []string{"<sep>", "|", "</s>"}
)

var (
	ErrMissingBlank   = errors.New("vocab: no blank token")
	ErrMissingSilence = errors.New("vocab: no silence token")
	ErrEmpty          = errors.New("vocab: empty token list")
)

// Vocabulary is an ordered, index-addressable list of emission tokens.
// Indices never change after construction.
type Vocabulary struct {
	tokens  []string
	index   map[string]int
	folded  map[string]int // lower-cased token -> first index
	blank   int
	silence int
}

// New builds a Vocabulary and resolves the blank and silence tokens.
func New(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}
	v := &Vocabulary{
		tokens: append([]string(nil), tokens...),
		index:  make(map[string]int, len(tokens)),
		folded: make(map[string]int, len(tokens)),
	}
	for i, tok := range v.tokens {
		if _, ok := v.index[tok]; !ok {
			v.index[tok] = i
		}
		low := strings.ToLower(tok)
		if _, ok := v.folded[low]; !ok {
			v.folded[low] = i
		}
	}

	var ok bool
	if v.blank, ok = v.first(BlankCandidates); !ok {
		return nil, fmt.Errorf("%w: want one of %v", ErrMissingBlank, BlankCandidates)
	}
	if v.silence, ok = v.first(SilenceCandidates); !ok {
		return nil, fmt.Errorf("%w: want one of %v", ErrMissingSilence, SilenceCandidates)
	}
	return v, nil
}

func (v *Vocabulary) first(names []string) (int, bool) {
	for _, name := range names {
		if i, ok := v.index[name]; ok {
			return i, true
		}
	}
	return 0, false
}

// Load reads one token per line. Only the first whitespace-separated field
// of each line is used, so "token index" files are accepted as well.
func Load(r io.Reader) (*Vocabulary, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		tokens = append(tokens, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read: %w", err)
	}
	return New(tokens)
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Index returns the index of tok. An exact match wins; otherwise the
// lookup is case-insensitive.
func (v *Vocabulary) Index(tok string) (int, bool) {
	if i, ok := v.index[tok]; ok {
		return i, true
	}
	i, ok := v.folded[strings.ToLower(tok)]
	return i, ok
}

// Token returns the token at index i.
func (v *Vocabulary) Token(i int) string { return v.tokens[i] }

// Len returns the number of tokens.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Tokens returns a copy of the token list.
func (v *Vocabulary) Tokens() []string { return append([]string(nil), v.tokens...) }

// Blank returns the CTC blank token index.
func (v *Vocabulary) Blank() int { return v.blank }

// Silence returns the word-boundary token index.
func (v *Vocabulary) Silence() int { return v.silence }

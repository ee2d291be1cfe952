package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptySpelling is returned when a lexicon line names a word without tokens.
var ErrEmptySpelling = errors.New("lexicon: word has no spelling")

// Spelling is an ordered sequence of emission tokens.
type Spelling []string

// Lexicon holds word-to-spelling mappings. Words keep the order in which
// they were first added.
type Lexicon struct {
	Entries map[string][]Spelling // word -> list of alternative spellings
	order   []string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		Entries: make(map[string][]Spelling),
	}
}

// Add adds a spelling for word.
func (l *Lexicon) Add(word string, spelling Spelling) {
	if _, ok := l.Entries[word]; !ok {
		l.order = append(l.order, word)
	}
	l.Entries[word] = append(l.Entries[word], spelling)
}

// Load reads a lexicon, one spelling per line.
// Format: word<TAB or space>token1 token2 token3 ...
func Load(r io.Reader) (*Lexicon, error) {
	l := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: %w: %q", lineNum, ErrEmptySpelling, fields[0])
		}
		l.Add(fields[0], Spelling(fields[1:]))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return l, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Lookup returns all spellings for a word.
func (l *Lexicon) Lookup(word string) []Spelling {
	return l.Entries[word]
}

// Words returns all words in insertion order.
func (l *Lexicon) Words() []string {
	return append([]string(nil), l.order...)
}

// Len returns the number of distinct words.
func (l *Lexicon) Len() int {
	return len(l.order)
}

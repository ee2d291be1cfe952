package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ieee0824/ctcdecode/language"
	"github.com/ieee0824/ctcdecode/lexicon"
	"github.com/ieee0824/ctcdecode/vocab"
)

func main() {
	vocabPath := flag.String("vocab", "", "path to token list (required)")
	lmPath := flag.String("lm", "", "also take words from this ARPA language model")
	sil := flag.Bool("sil", true, "end every spelling with the silence token")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lexgen -vocab TOKENS [-lm LM] [word-list-files...]")
		fmt.Fprintln(os.Stderr, "  Generates a letter-spelling lexicon for a character vocabulary.")
		fmt.Fprintln(os.Stderr, "  Word lists hold one word per line; globs are expanded.")
		fmt.Fprintln(os.Stderr, "  Output goes to stdout.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *vocabPath == "" || (flag.NArg() == 0 && *lmPath == "") {
		flag.Usage()
		os.Exit(1)
	}

	v, err := vocab.LoadFile(*vocabPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load vocabulary: %v\n", err)
		os.Exit(1)
	}

	var words []string
	if *lmPath != "" {
		lm, err := language.LoadARPAFile(*lmPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load language model: %v\n", err)
			os.Exit(1)
		}
		words = append(words, lmWords(lm)...)
	}

	files, err := expandGlobs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
			continue
		}
		words = append(words, readWords(f)...)
		f.Close()
	}

	lex, skipped := generate(v, words, *sil)
	if err := write(os.Stdout, lex); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generated %d entries, skipped %d words with unknown letters\n", lex.Len(), skipped)
}

func expandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if matches == nil {
			// No glob match; treat as literal path
			files = append(files, arg)
		} else {
			files = append(files, matches...)
		}
	}
	return files, nil
}

// lmWords returns the LM vocabulary without sentence markers and <unk>.
func lmWords(lm *language.NGramModel) []string {
	var words []string
	for _, w := range lm.Vocab() {
		switch w {
		case language.SentenceStart, language.SentenceEnd, language.Unknown:
			continue
		}
		words = append(words, w)
	}
	return words
}

// readWords takes the first field of every non-empty line.
func readWords(r io.Reader) []string {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		words = append(words, fields[0])
	}
	return words
}

// spell splits word into one token per letter. It fails if a letter is
// not in the vocabulary or is a special token.
func spell(v *vocab.Vocabulary, word string, sil bool) (lexicon.Spelling, bool) {
	sp := make(lexicon.Spelling, 0, len(word)+1)
	for _, r := range strings.ToLower(word) {
		i, ok := v.Index(string(r))
		if !ok || i == v.Blank() || i == v.Silence() {
			return nil, false
		}
		sp = append(sp, v.Token(i))
	}
	if len(sp) == 0 {
		return nil, false
	}
	if sil {
		sp = append(sp, v.Token(v.Silence()))
	}
	return sp, true
}

// generate builds a sorted, deduplicated lexicon of every spellable word.
func generate(v *vocab.Vocabulary, words []string, sil bool) (*lexicon.Lexicon, int) {
	seen := make(map[string]bool)
	var unique []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			unique = append(unique, w)
		}
	}
	sort.Strings(unique)

	lex := lexicon.New()
	skipped := 0
	for _, w := range unique {
		sp, ok := spell(v, w, sil)
		if !ok {
			skipped++
			continue
		}
		lex.Add(w, sp)
	}
	return lex, skipped
}

func write(w io.Writer, lex *lexicon.Lexicon) error {
	bw := bufio.NewWriter(w)
	for _, word := range lex.Words() {
		for _, sp := range lex.Lookup(word) {
			fmt.Fprintf(bw, "%s\t%s\n", word, strings.Join(sp, " "))
		}
	}
	return bw.Flush()
}

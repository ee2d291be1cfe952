package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ieee0824/ctcdecode/language"
	"github.com/ieee0824/ctcdecode/lexicon"
)

func main() {
	order := flag.Int("order", 3, "N-gram order (at least 2)")
	output := flag.String("output", "", "output file (default: stdout)")
	unk := flag.Float64("unk", 0, "emit an <unk> unigram with this log10 probability (e.g. -6, 0=none)")
	lower := flag.Bool("lower", false, "lower-case input words")
	lexPath := flag.String("lexicon", "", "restrict the vocabulary to this lexicon's words; others become <unk>")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lmbuild [options] [input-files...]")
		fmt.Fprintln(os.Stderr, "  Builds an ARPA N-gram language model from tokenized text.")
		fmt.Fprintln(os.Stderr, "  Input: one sentence per line, words separated by spaces.")
		fmt.Fprintln(os.Stderr, "  If no input files given, reads from stdin.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *order < 2 {
		fmt.Fprintf(os.Stderr, "order %d: must be at least 2\n", *order)
		os.Exit(1)
	}
	if *unk > 0 {
		fmt.Fprintf(os.Stderr, "unk %v: must be a negative log10 probability\n", *unk)
		os.Exit(1)
	}

	b := language.NewBuilder(*order)
	if *unk != 0 {
		b.SetUnkLogProb(*unk)
	}
	if *lexPath != "" {
		lex, err := lexicon.LoadFile(*lexPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load lexicon: %v\n", err)
			os.Exit(1)
		}
		words := lex.Words()
		if *lower {
			for i, w := range words {
				words[i] = strings.ToLower(w)
			}
		}
		b.RestrictTo(words)
	}

	var sentCount int
	if flag.NArg() == 0 {
		sentCount = readLines(b, os.Stdin, *lower)
	} else {
		for _, path := range flag.Args() {
			f, err := os.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "open %s: %v\n", path, err)
				continue
			}
			sentCount += readLines(b, f, *lower)
			f.Close()
		}
	}

	var w *os.File
	if *output != "" {
		var err error
		w, err = os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *output, err)
			os.Exit(1)
		}
		defer w.Close()
	} else {
		w = os.Stdout
	}

	if err := b.WriteARPA(w); err != nil {
		fmt.Fprintf(os.Stderr, "write ARPA: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Built %d-gram model from %d sentences\n", *order, sentCount)
}

func readLines(b *language.Builder, r io.Reader, lower bool) int {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if lower {
			line = strings.ToLower(line)
		}
		words := strings.Fields(line)
		if len(words) > 0 {
			b.AddSentence(words)
			count++
		}
	}
	return count
}

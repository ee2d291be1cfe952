package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/ieee0824/ctcdecode/lexicon"
)

// tagRe matches WikiExtractor <doc ...> and </doc> tags.
var tagRe = regexp.MustCompile(`^</?doc[^>]*>$`)

func main() {
	lexPath := flag.String("lexicon", "", "path to lexicon (required)")
	minWords := flag.Int("min-words", 3, "minimum words per sentence")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lmtext -lexicon LEX < input.txt > output.txt")
		fmt.Fprintln(os.Stderr, "  Reads plain text from stdin, normalizes and splits it into sentences,")
		fmt.Fprintln(os.Stderr, "  and outputs sentences where all words are in the lexicon.")
		fmt.Fprintln(os.Stderr, "  Handles WikiExtractor output (strips <doc> tags).")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *lexPath == "" {
		fmt.Fprintln(os.Stderr, "error: -lexicon is required")
		flag.Usage()
		os.Exit(1)
	}

	lex, err := lexicon.LoadFile(*lexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading lexicon: %v\n", err)
		os.Exit(1)
	}

	wordSet := make(map[string]bool, lex.Len())
	for _, w := range lex.Words() {
		wordSet[w] = true
	}
	fmt.Fprintf(os.Stderr, "Lexicon: %d words\n", len(wordSet))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	var totalIn, totalOut int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || tagRe.MatchString(line) {
			continue
		}
		for _, sent := range splitSentences(line) {
			totalIn++
			words := normalize(sent)
			if len(words) >= *minWords && allInDict(words, wordSet) {
				fmt.Fprintln(writer, strings.Join(words, " "))
				totalOut++
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
	}

	rate := 0.0
	if totalIn > 0 {
		rate = float64(totalOut) / float64(totalIn) * 100
	}
	fmt.Fprintf(os.Stderr, "Input: %d sentences, Output: %d sentences (%.1f%%)\n", totalIn, totalOut, rate)
}

// splitSentences splits a line after '.', '!' and '?' and returns the
// non-empty parts.
func splitSentences(line string) []string {
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// normalize lower-cases a sentence and splits it into words. Letters,
// digits and apostrophes inside words are kept; everything else separates
// words.
func normalize(sentence string) []string {
	return strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// allInDict checks if every word in the slice exists in the lexicon.
func allInDict(words []string, wordSet map[string]bool) bool {
	for _, w := range words {
		if !wordSet[w] {
			return false
		}
	}
	return true
}

package trie

import (
	"fmt"
	"strings"

	"github.com/ieee0824/ctcdecode/language"
	"github.com/ieee0824/ctcdecode/lexicon"
	"github.com/ieee0824/ctcdecode/vocab"
)

// UnknownTokenError reports a lexicon spelling that uses a token missing
// from the vocabulary.
type UnknownTokenError struct {
	Word     string
	Spelling lexicon.Spelling
	Token    string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("trie: word %q spelling %q: unknown token %q",
		e.Word, strings.Join(e.Spelling, " "), e.Token)
}

// Build inserts every spelling of lex, scored with its unigram probability
// from lm, and smears the result with SmearMax.
//
// Trailing silence tokens are dropped from spellings since the decoder
// places word boundaries itself. A blank, or a silence token anywhere else,
// is rejected.
func Build(v *vocab.Vocabulary, lex *lexicon.Lexicon, dict *lexicon.WordDict, lm language.Model) (*Trie, error) {
	t := New(v.Silence())
	start := lm.Start()

	for _, word := range lex.Words() {
		wordID := dict.Index(word)
		_, score := lm.Score(start, wordID)
		for _, spelling := range lex.Lookup(word) {
			idxs, err := spellingIndices(v, word, spelling)
			if err != nil {
				return nil, err
			}
			if err := t.Insert(idxs, wordID, score); err != nil {
				return nil, fmt.Errorf("word %q: %w", word, err)
			}
		}
	}

	t.Smear(SmearMax)
	return t, nil
}

func spellingIndices(v *vocab.Vocabulary, word string, spelling lexicon.Spelling) ([]int, error) {
	idxs := make([]int, 0, len(spelling))
	for _, tok := range spelling {
		i, ok := v.Index(strings.ToLower(tok))
		if !ok {
			return nil, &UnknownTokenError{Word: word, Spelling: spelling, Token: tok}
		}
		idxs = append(idxs, i)
	}
	for len(idxs) > 0 && idxs[len(idxs)-1] == v.Silence() {
		idxs = idxs[:len(idxs)-1]
	}
	if len(idxs) == 0 {
		return nil, fmt.Errorf("trie: word %q: %w", word, lexicon.ErrEmptySpelling)
	}
	for _, i := range idxs {
		if i == v.Blank() || i == v.Silence() {
			return nil, fmt.Errorf("trie: word %q spelling %q: token %q may not appear inside a word",
				word, strings.Join(spelling, " "), v.Token(i))
		}
	}
	return idxs, nil
}

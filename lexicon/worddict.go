package lexicon

// UnkWord is the word reserved for out-of-vocabulary ids.
const UnkWord = "<unk>"

// WordDict is a bijection between words and dense integer ids.
// Ids follow lexicon order; UnkWord is appended last unless the lexicon
// already contains it.
type WordDict struct {
	words []string
	ids   map[string]int
	unk   int
}

// NewWordDict assigns an id to every word in lex.
func NewWordDict(lex *Lexicon) *WordDict {
	d := &WordDict{ids: make(map[string]int, lex.Len()+1)}
	for _, w := range lex.order {
		d.add(w)
	}
	d.unk = d.add(UnkWord)
	return d
}

func (d *WordDict) add(word string) int {
	if id, ok := d.ids[word]; ok {
		return id
	}
	id := len(d.words)
	d.words = append(d.words, word)
	d.ids[word] = id
	return id
}

// Index returns the id of word, or the unknown-word id.
func (d *WordDict) Index(word string) int {
	if id, ok := d.ids[word]; ok {
		return id
	}
	return d.unk
}

// Lookup returns the id of word and whether it is known.
func (d *WordDict) Lookup(word string) (int, bool) {
	id, ok := d.ids[word]
	return id, ok
}

// Entry returns the word for id. Out-of-range ids map to UnkWord.
func (d *WordDict) Entry(id int) string {
	if id < 0 || id >= len(d.words) {
		return UnkWord
	}
	return d.words[id]
}

// Len returns the number of ids, including the unknown word.
func (d *WordDict) Len() int { return len(d.words) }

// UnkID returns the id of UnkWord.
func (d *WordDict) UnkID() int { return d.unk }

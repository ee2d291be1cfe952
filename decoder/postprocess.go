package decoder

import (
	"fmt"
	"strings"

	"github.com/ieee0824/ctcdecode/language"
)

// DefaultFrameDuration is the acoustic model frame shift in seconds.
const DefaultFrameDuration = 0.02

// SubwordMarker separates words inside sub-word pieces.
const SubwordMarker = "_"

// PostProcessor turns hypotheses into words with time intervals.
type PostProcessor struct {
	Words         language.Words
	Blank         int
	Silence       int
	FrameDuration float64 // seconds per frame
	Subwords      bool    // dictionary entries are word pieces joined by SubwordMarker
}

// Process converts h into a Result. It panics if the number of word runs
// in the alignment differs from the number of committed words, which
// means the hypothesis did not come from a matching decoder.
func (p *PostProcessor) Process(h Hypothesis) Result {
	runs := WordFrames(h.Tokens, p.Blank, p.Silence)
	if len(runs) != len(h.Words) {
		panic(fmt.Sprintf("decoder: alignment has %d word runs for %d words", len(runs), len(h.Words)))
	}

	entries := make([]string, len(h.Words))
	for i, id := range h.Words {
		entries[i] = p.Words.Entry(id)
	}

	var words []Word
	if p.Subwords {
		words = p.joinPieces(entries, runs)
	} else {
		words = make([]Word, len(entries))
		for i, text := range entries {
			words[i] = p.word(text, runs[i:i+1])
		}
	}

	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return Result{
		Text:     strings.Join(texts, " "),
		Words:    words,
		LogScore: h.Score,
	}
}

// joinPieces concatenates word pieces and splits them at SubwordMarker.
// A word's interval spans every piece that contributed to it.
func (p *PostProcessor) joinPieces(pieces []string, runs [][]int) []Word {
	var (
		words       []Word
		text        strings.Builder
		first, last = -1, -1
	)
	flush := func() {
		if text.Len() > 0 {
			words = append(words, p.word(text.String(), runs[first:last+1]))
		}
		text.Reset()
		first, last = -1, -1
	}
	for i, piece := range pieces {
		for j, part := range strings.Split(piece, SubwordMarker) {
			if j > 0 {
				flush()
			}
			if part == "" {
				continue
			}
			text.WriteString(part)
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	flush()
	return words
}

// word builds a Word covering one or more consecutive runs.
func (p *PostProcessor) word(text string, runs [][]int) Word {
	frames := runs[0]
	if len(runs) > 1 {
		frames = nil
		for _, r := range runs {
			frames = append(frames, r...)
		}
	}
	w := Word{
		Text:       text,
		Frames:     frames,
		StartFrame: frames[0],
		EndFrame:   frames[len(frames)-1],
	}
	w.Start, w.End = p.TimeInterval(w.StartFrame, w.EndFrame)
	return w
}

// TimeInterval converts a frame span to seconds. The end is extended by
// one frame so the last frame's audio is covered.
func (p *PostProcessor) TimeInterval(startFrame, endFrame int) (start, end float64) {
	fd := p.FrameDuration
	if fd <= 0 {
		fd = DefaultFrameDuration
	}
	return float64(startFrame) * fd, float64(endFrame)*fd + fd
}

// WordFrames splits a per-frame token alignment into word runs. A run
// starts at a non-silence token that differs from the previous frame,
// grows with every following non-silence token, and is closed by a
// silence frame, which is recorded as its last element. Blank frames are
// skipped. A trailing run without a closing silence is dropped.
func WordFrames(tokens []int, blank, silence int) [][]int {
	var (
		runs    [][]int
		current []int
		found   bool
	)
	prev := -1
	for i, tok := range tokens {
		switch {
		case tok == blank:
		case tok != silence && (tok != prev || found):
			found = true
			current = append(current, i)
		case tok == silence && found:
			runs = append(runs, append(current, i))
			current = nil
			found = false
		}
		prev = tok
	}
	return runs
}

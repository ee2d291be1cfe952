package lexicon

import "strings"

// WordEditDistance computes the Levenshtein edit distance between two word sequences.
func WordEditDistance(a, b []string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Two rows are enough; swap instead of reallocating.
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// WordErrorRate returns the corpus-level WER of hyps against refs, each a
// space-separated transcript. Pairs beyond the shorter slice are ignored.
func WordErrorRate(refs, hyps []string) float64 {
	var errs, words int
	for i := 0; i < len(refs) && i < len(hyps); i++ {
		ref := strings.Fields(refs[i])
		errs += WordEditDistance(ref, strings.Fields(hyps[i]))
		words += len(ref)
	}
	if words == 0 {
		if errs == 0 {
			return 0
		}
		return 1
	}
	return float64(errs) / float64(words)
}

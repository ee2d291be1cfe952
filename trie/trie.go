// Package trie implements the lexicon prefix tree used to constrain the
// beam search. Nodes live in a flat arena and are addressed by index, so
// the structure is acyclic by construction and cheap to share read-only
// between concurrent decodes.
package trie

import (
	"errors"
	"math"
	"sort"

	"github.com/ieee0824/ctcdecode/internal/mathutil"
)

// MaxLabels bounds how many words may share one spelling.
const MaxLabels = 6

// ErrTooManyLabels is returned when more than MaxLabels words end at the same node.
var ErrTooManyLabels = errors.New("trie: too many words share a spelling")

// SmearMode selects how scores are propagated toward the root.
type SmearMode int

const (
	SmearNone SmearMode = iota
	SmearMax
	SmearLogAdd
)

// Label is the payload of a node that terminates a spelling.
type Label struct {
	WordID int
	Score  float64
}

type edge struct {
	token int
	child int32
}

type node struct {
	token    int
	children []edge // sorted by token
	labels   []Label
	maxScore float64
}

// Trie is a prefix tree over token-index sequences.
type Trie struct {
	nodes []node
}

// Root is the arena index of the root node.
const Root int32 = 0

// New creates a trie whose root carries rootToken (usually the silence token).
func New(rootToken int) *Trie {
	return &Trie{nodes: []node{{token: rootToken}}}
}

// Insert adds spelling, terminating in (wordID, score).
func (t *Trie) Insert(spelling []int, wordID int, score float64) error {
	cur := Root
	for _, tok := range spelling {
		next, ok := t.Child(cur, tok)
		if !ok {
			next = t.addChild(cur, tok)
		}
		cur = next
	}
	n := &t.nodes[cur]
	if len(n.labels) >= MaxLabels {
		return ErrTooManyLabels
	}
	n.labels = append(n.labels, Label{WordID: wordID, Score: score})
	return nil
}

func (t *Trie) addChild(parent int32, tok int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{token: tok})
	p := &t.nodes[parent]
	i := sort.Search(len(p.children), func(i int) bool { return p.children[i].token >= tok })
	p.children = append(p.children, edge{})
	copy(p.children[i+1:], p.children[i:])
	p.children[i] = edge{token: tok, child: idx}
	return idx
}

// Child returns the child of n reached by tok.
func (t *Trie) Child(n int32, tok int) (int32, bool) {
	children := t.nodes[n].children
	i := sort.Search(len(children), func(i int) bool { return children[i].token >= tok })
	if i < len(children) && children[i].token == tok {
		return children[i].child, true
	}
	return 0, false
}

// HasChildren reports whether any spelling continues past n.
func (t *Trie) HasChildren(n int32) bool { return len(t.nodes[n].children) > 0 }

// Labels returns the words whose spelling ends at n.
func (t *Trie) Labels(n int32) []Label { return t.nodes[n].labels }

// MaxScore returns the smeared score of n.
func (t *Trie) MaxScore(n int32) float64 { return t.nodes[n].maxScore }

// Token returns the token that leads into n.
func (t *Trie) Token(n int32) int { return t.nodes[n].token }

// Len returns the number of nodes, including the root.
func (t *Trie) Len() int { return len(t.nodes) }

// Smear assigns every node the best score reachable in its subtree.
func (t *Trie) Smear(mode SmearMode) {
	if mode == SmearNone {
		return
	}
	// Children are always appended after their parent, so walking the arena
	// backwards visits every subtree before its root.
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := &t.nodes[i]
		score := math.Inf(-1)
		combine := func(s float64) {
			if mode == SmearLogAdd && !math.IsInf(score, -1) {
				score = mathutil.LogAdd(score, s)
			} else {
				score = math.Max(score, s)
			}
		}
		for _, l := range n.labels {
			combine(l.Score)
		}
		for _, e := range n.children {
			combine(t.nodes[e.child].maxScore)
		}
		n.maxScore = score
	}
}

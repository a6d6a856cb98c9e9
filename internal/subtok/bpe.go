package subtok

import (
	"fmt"

	"github.com/example/modtok/internal/vocab"
)

// trieNode is a node-per-byte trie for greedy longest-match segmentation.
type trieNode struct {
	children [256]*trieNode
	localID  int
	isToken  bool
}

func newTrieNode() *trieNode { return &trieNode{localID: -1} }

func (n *trieNode) insert(token string, id int) {
	node := n
	for i := 0; i < len(token); i++ {
		b := token[i]
		if node.children[b] == nil {
			node.children[b] = newTrieNode()
		}
		node = node.children[b]
	}
	node.localID = id
	node.isToken = true
}

// longestMatch returns the byte length and local ID of the longest vocabulary
// token matching a prefix of text, or (0, -1).
func (n *trieNode) longestMatch(text string) (int, int) {
	node := n
	bestLen, bestID := 0, -1
	for i := 0; i < len(text); i++ {
		child := node.children[text[i]]
		if child == nil {
			break
		}
		node = child
		if node.isToken {
			bestLen = i + 1
			bestID = node.localID
		}
	}
	return bestLen, bestID
}

// BPE segments text by greedy longest match over the regular vocabulary.
// This operates on a pretrained vocabulary; no merges are learned here.
type BPE struct {
	local *vocab.Local
	trie  *trieNode
}

// NewBPE builds a greedy longest-match sub-tokenizer over local.
func NewBPE(local *vocab.Local) *BPE {
	trie := newTrieNode()
	for token, id := range local.RegularTokens() {
		trie.insert(token, id)
	}
	return &BPE{local: local, trie: trie}
}

func (b *BPE) Name() string { return b.local.Name() }

func (b *BPE) SpecialTokens() []string { return b.local.SpecialTokens() }

func (b *BPE) RegularTokens() map[string]int { return b.local.RegularTokens() }

// Tokenize segments text greedily, always taking the longest vocabulary
// token that matches at the current position.
func (b *BPE) Tokenize(text string) ([]int, error) {
	var ids []int
	for pos := 0; pos < len(text); {
		n, id := b.trie.longestMatch(text[pos:])
		if n == 0 {
			return nil, fmt.Errorf("%w: tokenizer %q cannot segment input at byte %d",
				ErrUnknownInput, b.local.Name(), pos)
		}
		ids = append(ids, id)
		pos += n
	}
	return ids, nil
}

// Detokenize concatenates the tokens for the given local IDs.
func (b *BPE) Detokenize(ids []int) (string, error) {
	return detokenizeByID(b.local, ids)
}

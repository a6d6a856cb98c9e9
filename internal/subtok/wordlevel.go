package subtok

import (
	"fmt"

	"github.com/example/modtok/internal/vocab"
)

// WordLevel segments text one rune at a time against the regular table. It
// suits alphabetic vocabularies such as amino-acid sequences, where every
// residue is a single-character token.
type WordLevel struct {
	local *vocab.Local
}

// NewWordLevel builds a word-level sub-tokenizer over local.
func NewWordLevel(local *vocab.Local) *WordLevel {
	return &WordLevel{local: local}
}

func (w *WordLevel) Name() string { return w.local.Name() }

func (w *WordLevel) SpecialTokens() []string { return w.local.SpecialTokens() }

func (w *WordLevel) RegularTokens() map[string]int { return w.local.RegularTokens() }

// Tokenize maps each rune of text to its local ID.
func (w *WordLevel) Tokenize(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		id, ok := w.local.RegularID(string(r))
		if !ok {
			return nil, fmt.Errorf("%w: tokenizer %q has no token for %q", ErrUnknownInput, w.local.Name(), string(r))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Detokenize concatenates the tokens for the given local IDs.
func (w *WordLevel) Detokenize(ids []int) (string, error) {
	return detokenizeByID(w.local, ids)
}

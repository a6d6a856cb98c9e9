// Package subtok defines the capability interface the unification engine
// consumes from each constituent tokenizer, and implements the supported
// segmentation kinds. The engine only ever sees local token IDs through this
// interface; segmentation internals stay opaque.
package subtok

import (
	"errors"
	"fmt"

	"github.com/example/modtok/internal/vocab"
)

// ErrUnknownKind is returned for a vocabulary whose model type has no
// registered implementation.
var ErrUnknownKind = errors.New("unknown sub-tokenizer kind")

// ErrUnknownInput is returned when input text contains a span no token of the
// local vocabulary covers.
var ErrUnknownInput = errors.New("input not covered by vocabulary")

// SubTokenizer is one constituent tokenizer: its vocabulary view plus its
// opaque segmentation capability. All IDs are local.
type SubTokenizer interface {
	// Name identifies the tokenizer inside the modular vocabulary.
	Name() string
	// SpecialTokens returns the declared special tokens in local-ID order.
	SpecialTokens() []string
	// RegularTokens returns the regular token to local-ID map.
	RegularTokens() map[string]int
	// Tokenize segments text into local regular-token IDs.
	Tokenize(text string) ([]int, error)
	// Detokenize joins local regular-token IDs back into text.
	Detokenize(ids []int) (string, error)
}

// Open builds the sub-tokenizer implementation matching the vocabulary's
// declared kind. dir is the directory the vocabulary blob was loaded from;
// companion files (e.g. a sentencepiece model) are resolved against it.
func Open(local *vocab.Local, dir string) (SubTokenizer, error) {
	switch local.Kind() {
	case vocab.KindWordLevel:
		return NewWordLevel(local), nil
	case vocab.KindBPE:
		return NewBPE(local), nil
	case vocab.KindSentencePiece:
		return NewSentencePiece(local, dir)
	default:
		return nil, fmt.Errorf("%w: %q (tokenizer %q)", ErrUnknownKind, local.Kind(), local.Name())
	}
}

// detokenizeByID concatenates tokens looked up in the local table; shared by
// the word-level and BPE kinds.
func detokenizeByID(local *vocab.Local, ids []int) (string, error) {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		tok, ok := local.RegularByID(id)
		if !ok {
			return "", fmt.Errorf("tokenizer %q: no regular token with local id %d", local.Name(), id)
		}
		out = append(out, tok...)
	}
	return string(out), nil
}

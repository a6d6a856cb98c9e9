// Package vocab loads and validates the vocabulary of a single source
// tokenizer. A local vocabulary is a read-only view over the source's token
// tables: an ordered list of special tokens and a map of regular tokens, each
// with dense, 0-based local IDs. The package also reads and writes the
// derived form of a vocabulary, which carries the global IDs assigned during
// ID-space unification alongside the original local tables.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrSourceInvalid is returned when a source vocabulary has non-dense,
// negative, or duplicated local IDs, or a token that is both special and
// regular.
var ErrSourceInvalid = errors.New("source vocabulary invalid")

// Known model kinds for the "model.type" field of a vocabulary blob.
const (
	KindWordLevel     = "wordlevel"
	KindBPE           = "bpe"
	KindSentencePiece = "sentencepiece"
)

// Local is the read-only view over one source tokenizer's vocabulary.
// It is immutable once loaded.
type Local struct {
	name        string
	tokenizerID int
	kind        string

	specials    []string // index = special local ID
	specialSet  map[string]int
	regular     map[string]int
	regularByID []string

	merges    []string
	modelFile string
}

type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type modelBlob struct {
	Type      string         `json:"type"`
	Vocab     map[string]int `json:"vocab"`
	Merges    []string       `json:"merges,omitempty"`
	ModelFile string         `json:"model_file,omitempty"`
}

type blob struct {
	AddedTokens []addedToken `json:"added_tokens"`
	Model       modelBlob    `json:"model"`
}

// Load reads a source vocabulary blob from path and validates it.
// The name and tokenizer ID are supplied by the caller (they come from the
// construction record, not from the blob itself).
func Load(name string, tokenizerID int, path string) (*Local, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %q: %w", path, err)
	}
	return Parse(name, tokenizerID, data)
}

// Parse builds a Local from a raw vocabulary blob.
func Parse(name string, tokenizerID int, data []byte) (*Local, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse vocabulary for %q: %w", name, err)
	}
	return fromBlob(name, tokenizerID, b)
}

func fromBlob(name string, tokenizerID int, b blob) (*Local, error) {
	if tokenizerID < 0 {
		return nil, fmt.Errorf("%w: tokenizer %q has negative tokenizer_id %d", ErrSourceInvalid, name, tokenizerID)
	}

	specials := make([]string, len(b.AddedTokens))
	specialSet := make(map[string]int, len(b.AddedTokens))
	seen := make([]bool, len(b.AddedTokens))
	for _, at := range b.AddedTokens {
		if at.ID < 0 || at.ID >= len(b.AddedTokens) || seen[at.ID] {
			return nil, fmt.Errorf("%w: tokenizer %q special token %q has non-dense local id %d",
				ErrSourceInvalid, name, at.Content, at.ID)
		}
		if _, dup := specialSet[at.Content]; dup {
			return nil, fmt.Errorf("%w: tokenizer %q declares special token %q twice",
				ErrSourceInvalid, name, at.Content)
		}
		seen[at.ID] = true
		specials[at.ID] = at.Content
		specialSet[at.Content] = at.ID
	}

	regularByID := make([]string, len(b.Model.Vocab))
	seenReg := make([]bool, len(b.Model.Vocab))
	for tok, id := range b.Model.Vocab {
		if _, isSpecial := specialSet[tok]; isSpecial {
			return nil, fmt.Errorf("%w: tokenizer %q token %q is both special and regular",
				ErrSourceInvalid, name, tok)
		}
		if id < 0 || id >= len(b.Model.Vocab) || seenReg[id] {
			return nil, fmt.Errorf("%w: tokenizer %q regular token %q has non-dense local id %d",
				ErrSourceInvalid, name, tok, id)
		}
		seenReg[id] = true
		regularByID[id] = tok
	}

	regular := make(map[string]int, len(b.Model.Vocab))
	for tok, id := range b.Model.Vocab {
		regular[tok] = id
	}

	return &Local{
		name:        name,
		tokenizerID: tokenizerID,
		kind:        b.Model.Type,
		specials:    specials,
		specialSet:  specialSet,
		regular:     regular,
		regularByID: regularByID,
		merges:      append([]string(nil), b.Model.Merges...),
		modelFile:   b.Model.ModelFile,
	}, nil
}

// New builds a Local directly from token tables. Specials are ordered, and
// regulars receive local IDs by slice position. Intended for construction in
// code and in tests; file-backed vocabularies go through Load.
func New(name string, tokenizerID int, kind string, specials, regulars []string) (*Local, error) {
	b := blob{Model: modelBlob{Type: kind, Vocab: make(map[string]int, len(regulars))}}
	for i, s := range specials {
		b.AddedTokens = append(b.AddedTokens, addedToken{ID: i, Content: s, Special: true})
	}
	for i, r := range regulars {
		if _, dup := b.Model.Vocab[r]; dup {
			return nil, fmt.Errorf("%w: tokenizer %q declares regular token %q twice", ErrSourceInvalid, name, r)
		}
		b.Model.Vocab[r] = i
	}
	return fromBlob(name, tokenizerID, b)
}

// Name returns the tokenizer name this vocabulary belongs to.
func (l *Local) Name() string { return l.name }

// TokenizerID returns the small integer identifying this tokenizer.
func (l *Local) TokenizerID() int { return l.tokenizerID }

// Kind returns the segmentation model kind declared in the blob.
func (l *Local) Kind() string { return l.kind }

// SpecialTokens returns the special tokens in local-ID order.
func (l *Local) SpecialTokens() []string {
	return append([]string(nil), l.specials...)
}

// RegularTokens returns a copy of the regular token to local-ID map.
func (l *Local) RegularTokens() map[string]int {
	out := make(map[string]int, len(l.regular))
	for tok, id := range l.regular {
		out[tok] = id
	}
	return out
}

// RegularID returns the local ID of a regular token.
func (l *Local) RegularID(token string) (int, bool) {
	id, ok := l.regular[token]
	return id, ok
}

// RegularByID returns the regular token with the given local ID.
func (l *Local) RegularByID(id int) (string, bool) {
	if id < 0 || id >= len(l.regularByID) {
		return "", false
	}
	return l.regularByID[id], true
}

// IsSpecial reports whether token is declared special in this vocabulary.
func (l *Local) IsSpecial(token string) bool {
	_, ok := l.specialSet[token]
	return ok
}

// NumSpecial returns the number of special tokens.
func (l *Local) NumSpecial() int { return len(l.specials) }

// NumRegular returns the number of regular tokens.
func (l *Local) NumRegular() int { return len(l.regularByID) }

// Merges returns the BPE merge rules, if the blob carried any.
func (l *Local) Merges() []string { return append([]string(nil), l.merges...) }

// ModelFile returns the companion segmentation model file name, if any.
func (l *Local) ModelFile() string { return l.modelFile }


// Package modular assembles the mapping tables produced by the ID-space
// allocator into one vocabulary with a collision-free global ID space, and
// exposes the lookup, diagnostic, extension, encode/decode, and persistence
// surface over it.
//
// A Vocabulary is logically immutable once built: lookups and encoding are
// safe for concurrent use, and the extension operations return a new
// Vocabulary instead of mutating the receiver. Use a Handle to publish
// extension results to concurrent readers.
package modular

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/example/modtok/internal/idspace"
	"github.com/example/modtok/internal/subtok"
	"github.com/example/modtok/internal/vocab"
)

var (
	// ErrUnknownToken is returned when a token is neither in the merged
	// special table nor in the named sub-tokenizer's regular table.
	ErrUnknownToken = errors.New("unknown token")
	// ErrUnknownID is returned when no token is mapped to a global ID.
	ErrUnknownID = errors.New("unknown global id")
	// ErrUnknownTokenizer is returned when a lookup names a sub-tokenizer
	// the vocabulary does not contain.
	ErrUnknownTokenizer = errors.New("unknown sub-tokenizer")
	// ErrAmbiguousToken is returned by TokenToIDAny when a regular token
	// string resolves to different IDs in different sub-tokenizers.
	ErrAmbiguousToken = errors.New("token maps to multiple global ids")
	// ErrInconsistent is returned when construction or loading produces a
	// vocabulary whose diagnostics report violations.
	ErrInconsistent = errors.New("modular vocabulary is not consistent")
)

// Entry is one construction input: a loaded local vocabulary, its opened
// segmentation capability, and an optional per-tokenizer encoding length cap
// (0 means none). Tokenizer may be nil for table-only use; EncodeList then
// fails for that tokenizer.
type Entry struct {
	Local     *vocab.Local
	Tokenizer subtok.SubTokenizer
	MaxLen    int
}

// tokenizerState is everything the vocabulary keeps per sub-tokenizer. The
// specials table is this sub-tokenizer's own view of the merged special
// table; construction makes all views identical, but persisted state may
// disagree, which is what diagnostics detect.
type tokenizerState struct {
	name     string
	id       int
	local    *vocab.Local
	tok      subtok.SubTokenizer
	mapping  *idspace.Mapping
	specials map[string]int64
	maxLen   int
}

type decoderEntry struct {
	token       string
	tokenizerID int
	special     bool
}

// Vocabulary is the aggregate over one Mapping per sub-tokenizer plus the
// merged special-token table.
type Vocabulary struct {
	capacity idspace.Capacity
	alloc    *idspace.Allocation

	byName map[string]*tokenizerState
	byID   map[int]*tokenizerState
	order  []string // names in construction order

	decoder map[int64]decoderEntry

	padToken string
	maxLen   int
}

// Build constructs a modular vocabulary: it runs the allocator over the
// entries in order, builds the decoder table, and verifies the consistency
// invariants, failing with ErrInconsistent if any are violated.
func Build(entries []Entry, capacity idspace.Capacity) (*Vocabulary, error) {
	if len(entries) == 0 {
		return nil, errors.New("no sub-tokenizers given")
	}

	views := make([]idspace.View, len(entries))
	for i, e := range entries {
		if e.Local == nil {
			return nil, fmt.Errorf("entry %d has no local vocabulary", i)
		}
		views[i] = e.Local
	}

	// A string declared special anywhere must not appear as a regular token
	// anywhere else: the merged special table would shadow the regular ID,
	// and the derived blob would declare the token twice.
	specialOwner := make(map[string]string)
	for _, e := range entries {
		for _, s := range e.Local.SpecialTokens() {
			if _, ok := specialOwner[s]; !ok {
				specialOwner[s] = e.Local.Name()
			}
		}
	}
	for _, e := range entries {
		for tok := range e.Local.RegularTokens() {
			if owner, ok := specialOwner[tok]; ok {
				return nil, fmt.Errorf("%w: %q is special in %q and regular in %q",
					ErrTokenAlreadyRegular, tok, owner, e.Local.Name())
			}
		}
	}

	alloc, err := idspace.Allocate(views, capacity, nil)
	if err != nil {
		return nil, err
	}

	v := &Vocabulary{
		capacity: capacity,
		alloc:    alloc,
		byName:   make(map[string]*tokenizerState, len(entries)),
		byID:     make(map[int]*tokenizerState, len(entries)),
	}
	merged := alloc.SpecialTable()
	for _, e := range entries {
		name := e.Local.Name()
		if _, dup := v.byName[name]; dup {
			return nil, fmt.Errorf("duplicate sub-tokenizer name %q", name)
		}
		mapping, _ := alloc.Mapping(e.Local.TokenizerID())
		st := &tokenizerState{
			name:     name,
			id:       e.Local.TokenizerID(),
			local:    e.Local,
			tok:      e.Tokenizer,
			mapping:  mapping,
			specials: copySpecials(merged),
			maxLen:   e.MaxLen,
		}
		v.byName[name] = st
		v.byID[st.id] = st
		v.order = append(v.order, name)
	}

	if err := v.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// finish rebuilds the decoder table and verifies consistency. Called after
// construction, extension, and loading.
func (v *Vocabulary) finish() error {
	if err := v.buildDecoder(); err != nil {
		return err
	}

	violations, err := v.Diagnose()
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		msgs := make([]string, len(violations))
		for i, viol := range violations {
			msgs[i] = viol.String()
		}
		return fmt.Errorf("%w: %s", ErrInconsistent, strings.Join(msgs, "; "))
	}
	return nil
}

// buildDecoder derives the global-ID to token table from the special table
// and every mapping. A duplicate here is a uniqueness violation; it is left
// for Diagnose to report, keeping the first writer.
func (v *Vocabulary) buildDecoder() error {
	v.decoder = make(map[int64]decoderEntry, v.alloc.NumIDs())
	for tok, gid := range v.alloc.SpecialTable() {
		v.decoder[gid] = decoderEntry{token: tok, tokenizerID: -1, special: true}
	}
	for _, name := range v.order {
		st := v.byName[name]
		if st.mapping == nil {
			return fmt.Errorf("sub-tokenizer %q has no mapping table", name)
		}
		for local, gid := range st.mapping.Globals() {
			if _, taken := v.decoder[gid]; taken {
				continue
			}
			tok, ok := st.local.RegularByID(local)
			if !ok {
				return fmt.Errorf("sub-tokenizer %q: mapping covers local id %d outside its vocabulary", name, local)
			}
			v.decoder[gid] = decoderEntry{token: tok, tokenizerID: st.id, special: false}
		}
	}
	return nil
}

func copySpecials(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for tok, id := range m {
		out[tok] = id
	}
	return out
}

// TokenToID resolves a token to its global ID. Special tokens resolve through
// the merged table regardless of tokenizerName; regular tokens resolve
// through the named sub-tokenizer's tables.
func (v *Vocabulary) TokenToID(token, tokenizerName string) (int64, error) {
	if gid, ok := v.alloc.SpecialID(token); ok {
		return gid, nil
	}

	st, ok := v.byName[tokenizerName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTokenizer, tokenizerName)
	}
	local, ok := st.local.RegularID(token)
	if !ok {
		return 0, fmt.Errorf("%w: %q not in sub-tokenizer %q", ErrUnknownToken, token, tokenizerName)
	}
	gid, ok := st.mapping.ToGlobal(local)
	if !ok {
		return 0, fmt.Errorf("%w: %q has no mapping in sub-tokenizer %q", ErrUnknownToken, token, tokenizerName)
	}
	return gid, nil
}

// TokenToIDAny resolves a token without naming a sub-tokenizer. It succeeds
// when the token is special or maps to the same global ID everywhere it
// appears; a regular token present in several sub-tokenizers with different
// IDs yields ErrAmbiguousToken.
func (v *Vocabulary) TokenToIDAny(token string) (int64, error) {
	if gid, ok := v.alloc.SpecialID(token); ok {
		return gid, nil
	}

	var (
		found bool
		gid   int64
	)
	for _, name := range v.order {
		st := v.byName[name]
		local, ok := st.local.RegularID(token)
		if !ok {
			continue
		}
		g, ok := st.mapping.ToGlobal(local)
		if !ok {
			continue
		}
		if found && g != gid {
			return 0, fmt.Errorf("%w: %q", ErrAmbiguousToken, token)
		}
		found, gid = true, g
	}
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	return gid, nil
}

// IDToToken returns the token mapped to a global ID, independent of which
// sub-tokenizer produced it.
func (v *Vocabulary) IDToToken(id int64) (string, error) {
	e, ok := v.decoder[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return e.token, nil
}

// IsSpecialID reports whether a global ID belongs to the merged special
// table.
func (v *Vocabulary) IsSpecialID(id int64) bool {
	e, ok := v.decoder[id]
	return ok && e.special
}

// VocabSize returns the count of distinct global IDs currently mapped. Under
// the split-bound policy this is less than MaxID()+1 because of the buffer
// gap and unused headroom.
func (v *Vocabulary) VocabSize() int { return len(v.decoder) }

// MaxID returns the configured upper bound on global IDs if one is set, else
// the highest global ID currently assigned.
func (v *Vocabulary) MaxID() int64 {
	if bound, ok := v.capacity.MaxToken(); ok {
		return bound
	}
	return v.alloc.MaxIssued()
}

// AddedVocab returns the merged special table: the tokens shared by policy
// across all sub-tokenizers, with their global IDs. Regular tokens are not
// included.
func (v *Vocabulary) AddedVocab() map[string]int64 { return v.alloc.SpecialTable() }

// SpecialTokens returns the merged special tokens in assignment order.
func (v *Vocabulary) SpecialTokens() []string { return v.alloc.SpecialTokens() }

// Capacity returns the capacity configuration, fixed for the vocabulary's
// lifetime.
func (v *Vocabulary) Capacity() idspace.Capacity { return v.capacity }

// TokenizerNames returns the sub-tokenizer names in construction order.
func (v *Vocabulary) TokenizerNames() []string {
	return append([]string(nil), v.order...)
}

// TokenizerIDs returns the mapped tokenizer IDs in ascending order.
func (v *Vocabulary) TokenizerIDs() []int {
	out := make([]int, 0, len(v.byID))
	for id := range v.byID {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// NumRegular returns the number of regular tokens of one sub-tokenizer.
func (v *Vocabulary) NumRegular(name string) (int, error) {
	st, ok := v.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTokenizer, name)
	}
	return st.mapping.NumRegular(), nil
}

// Handle publishes a Vocabulary snapshot to concurrent readers. Extension
// builds a full replacement and stores it with a single atomic swap, so a
// reader never observes a partially extended vocabulary.
type Handle struct {
	p atomic.Pointer[Vocabulary]
}

// NewHandle returns a handle holding v.
func NewHandle(v *Vocabulary) *Handle {
	h := &Handle{}
	h.p.Store(v)
	return h
}

// Load returns the current snapshot.
func (h *Handle) Load() *Vocabulary { return h.p.Load() }

// Store publishes a replacement snapshot.
func (h *Handle) Store(v *Vocabulary) { h.p.Store(v) }

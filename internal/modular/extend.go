package modular

import (
	"errors"
	"fmt"

	"github.com/example/modtok/internal/idspace"
)

// ErrTokenAlreadyRegular is returned when a token string is declared special
// in one place and regular in another, at construction or extension time.
// Promoting a regular token would require remapping an issued ID, and a
// shadowed regular ID would be unreachable through TokenToID.
var ErrTokenAlreadyRegular = errors.New("token already exists as a regular token")

// ErrDuplicateName is returned when a new sub-tokenizer reuses an existing
// name.
var ErrDuplicateName = errors.New("sub-tokenizer name already in use")

// AddSpecialTokens returns a new vocabulary extended with the given special
// tokens and the number of tokens actually created. Tokens already in the
// merged special table are no-ops, so the operation is idempotent by string.
// Every previously issued global ID is unchanged; on error the receiver is
// untouched and remains valid.
func (v *Vocabulary) AddSpecialTokens(tokens []string) (*Vocabulary, int, error) {
	for _, tok := range tokens {
		if _, ok := v.alloc.SpecialID(tok); ok {
			continue
		}
		for _, name := range v.order {
			if _, regular := v.byName[name].local.RegularID(tok); regular {
				return nil, 0, fmt.Errorf("%w: %q in sub-tokenizer %q", ErrTokenAlreadyRegular, tok, name)
			}
		}
	}

	alloc, err := idspace.AllocateSpecials(v.alloc, tokens)
	if err != nil {
		return nil, 0, err
	}
	added := alloc.NumSpecial() - v.alloc.NumSpecial()

	nv := v.withAllocation(alloc, nil)
	if err := nv.finish(); err != nil {
		return nil, 0, err
	}
	return nv, added, nil
}

// AddSubTokenizer returns a new vocabulary extended with one more
// sub-tokenizer. Its special tokens merge into the existing table (known
// strings reuse their global IDs; this sub-tokenizer must treat them as
// equivalent), and its regular tokens receive fresh global IDs continuing the
// regular range. Previously issued IDs are unchanged.
func (v *Vocabulary) AddSubTokenizer(entry Entry) (*Vocabulary, error) {
	if entry.Local == nil {
		return nil, errors.New("entry has no local vocabulary")
	}
	name := entry.Local.Name()
	if _, dup := v.byName[name]; dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	// Same overlap rule as Build, in both directions against the existing
	// vocabulary.
	for _, s := range entry.Local.SpecialTokens() {
		if _, merged := v.alloc.SpecialID(s); merged {
			continue
		}
		for _, existing := range v.order {
			if _, regular := v.byName[existing].local.RegularID(s); regular {
				return nil, fmt.Errorf("%w: %q is special in %q and regular in %q",
					ErrTokenAlreadyRegular, s, name, existing)
			}
		}
	}
	for tok := range entry.Local.RegularTokens() {
		if _, merged := v.alloc.SpecialID(tok); merged {
			return nil, fmt.Errorf("%w: %q is special in the merged table and regular in %q",
				ErrTokenAlreadyRegular, tok, name)
		}
	}

	alloc, err := idspace.Allocate([]idspace.View{entry.Local}, v.capacity, v.alloc)
	if err != nil {
		return nil, err
	}

	mapping, _ := alloc.Mapping(entry.Local.TokenizerID())
	st := &tokenizerState{
		name:    name,
		id:      entry.Local.TokenizerID(),
		local:   entry.Local,
		tok:     entry.Tokenizer,
		mapping: mapping,
		maxLen:  entry.MaxLen,
	}

	nv := v.withAllocation(alloc, st)
	if err := nv.finish(); err != nil {
		return nil, err
	}
	return nv, nil
}

// withAllocation builds the replacement snapshot: existing states are
// re-created against the new merged special table (their locals, mappings,
// and sub-tokenizers are shared), and extra, when non-nil, is appended.
func (v *Vocabulary) withAllocation(alloc *idspace.Allocation, extra *tokenizerState) *Vocabulary {
	nv := &Vocabulary{
		capacity: v.capacity,
		alloc:    alloc,
		byName:   make(map[string]*tokenizerState, len(v.byName)+1),
		byID:     make(map[int]*tokenizerState, len(v.byID)+1),
		padToken: v.padToken,
		maxLen:   v.maxLen,
	}
	merged := alloc.SpecialTable()
	for _, name := range v.order {
		old := v.byName[name]
		st := &tokenizerState{
			name:     old.name,
			id:       old.id,
			local:    old.local,
			tok:      old.tok,
			mapping:  old.mapping,
			specials: copySpecials(merged),
			maxLen:   old.maxLen,
		}
		nv.byName[name] = st
		nv.byID[st.id] = st
		nv.order = append(nv.order, name)
	}
	if extra != nil {
		extra.specials = copySpecials(merged)
		nv.byName[extra.name] = extra
		nv.byID[extra.id] = extra
		nv.order = append(nv.order, extra.name)
	}
	return nv
}

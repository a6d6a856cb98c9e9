package modular

import (
	"fmt"
	"sort"
)

// ViolationKind names one of the three consistency checks.
type ViolationKind string

const (
	// SpecialMismatch: a sub-tokenizer's special table disagrees with the
	// merged table about a special token's global ID.
	SpecialMismatch ViolationKind = "special-mismatch"
	// SpecialRegularCollision: a regular token's global ID equals a special
	// token's global ID.
	SpecialRegularCollision ViolationKind = "special-regular-collision"
	// CrossTokenizerCollision: two sub-tokenizers issued the same global ID
	// for regular tokens.
	CrossTokenizerCollision ViolationKind = "cross-tokenizer-collision"
)

// Violation is one diagnostic finding. TokenizerB and IDB are filled only
// for kinds that involve two parties.
type Violation struct {
	Kind       ViolationKind
	Token      string
	TokenizerA string
	TokenizerB string
	IDA        int64
	IDB        int64
}

func (v Violation) String() string {
	switch v.Kind {
	case SpecialMismatch:
		return fmt.Sprintf("%s: special token %q maps to %d in %q but %d in the merged table",
			v.Kind, v.Token, v.IDA, v.TokenizerA, v.IDB)
	case SpecialRegularCollision:
		return fmt.Sprintf("%s: regular token %q in %q has global id %d, which is a special token id",
			v.Kind, v.Token, v.TokenizerA, v.IDA)
	case CrossTokenizerCollision:
		return fmt.Sprintf("%s: global id %d issued for %q in %q and again in %q",
			v.Kind, v.IDA, v.Token, v.TokenizerA, v.TokenizerB)
	default:
		return fmt.Sprintf("%s: token %q id %d", v.Kind, v.Token, v.IDA)
	}
}

// Diagnose re-derives the union of all mapping tables and checks the three
// consistency invariants: special-token agreement, special/regular
// disjointness, and pairwise disjointness of regular ID sets. Findings are
// returned as data; the error return is reserved for structural malformation
// (a mapping table that cannot be attributed to a known sub-tokenizer).
// It never mutates the vocabulary and can be run on freshly built, extended,
// or loaded state alike.
func (v *Vocabulary) Diagnose() ([]Violation, error) {
	var out []Violation

	merged := v.alloc.SpecialTable()

	for _, id := range v.alloc.TokenizerIDs() {
		if _, ok := v.byID[id]; !ok {
			return nil, fmt.Errorf("mapping table references unknown tokenizer id %d", id)
		}
	}

	// Special consistency: every sub-tokenizer's view of the special table
	// must agree with the merged table.
	for _, name := range v.order {
		st := v.byName[name]
		tokens := make([]string, 0, len(st.specials))
		for tok := range st.specials {
			tokens = append(tokens, tok)
		}
		sort.Strings(tokens)
		for _, tok := range tokens {
			gid := st.specials[tok]
			want, ok := merged[tok]
			if !ok || want != gid {
				out = append(out, Violation{
					Kind:       SpecialMismatch,
					Token:      tok,
					TokenizerA: name,
					IDA:        gid,
					IDB:        want,
				})
			}
		}
	}

	// Special/regular disjointness and cross-tokenizer disjointness, one
	// sweep over every regular mapping.
	specialIDs := make(map[int64]bool, len(merged))
	for _, gid := range merged {
		specialIDs[gid] = true
	}
	for _, name := range v.order {
		for _, gid := range v.byName[name].specials {
			specialIDs[gid] = true
		}
	}

	type owner struct {
		name  string
		token string
	}
	seen := make(map[int64]owner)
	for _, name := range v.order {
		st := v.byName[name]
		if st.mapping == nil {
			return nil, fmt.Errorf("sub-tokenizer %q has no mapping table", name)
		}
		for local, gid := range st.mapping.Globals() {
			tok, ok := st.local.RegularByID(local)
			if !ok {
				return nil, fmt.Errorf("sub-tokenizer %q: mapping covers local id %d outside its vocabulary", name, local)
			}
			if specialIDs[gid] {
				out = append(out, Violation{
					Kind:       SpecialRegularCollision,
					Token:      tok,
					TokenizerA: name,
					IDA:        gid,
				})
			}
			if prev, clash := seen[gid]; clash {
				out = append(out, Violation{
					Kind:       CrossTokenizerCollision,
					Token:      prev.token,
					TokenizerA: prev.name,
					TokenizerB: name,
					IDA:        gid,
					IDB:        gid,
				})
				continue
			}
			seen[gid] = owner{name: name, token: tok}
		}
	}

	return out, nil
}

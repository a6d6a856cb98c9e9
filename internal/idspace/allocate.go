package idspace

import (
	"errors"
	"fmt"
	"sort"
)

// View is the read-only slice of a source vocabulary the allocator consumes.
// *vocab.Local satisfies it.
type View interface {
	Name() string
	TokenizerID() int
	SpecialTokens() []string
	RegularTokens() map[string]int
}

// CapacityError reports that assigning one more ID would meet or exceed a
// configured bound. Range is "special" or "token".
type CapacityError struct {
	Range string
	Token string
	Bound int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("allocating %q: %s ID space exhausted (exclusive bound %d)", e.Token, e.Range, e.Bound)
}

// ErrCapacityChanged is returned when an extension supplies a capacity that
// differs from the one the seed allocation was built with.
var ErrCapacityChanged = errors.New("capacity configuration differs from existing allocation")

// ErrDuplicateTokenizer is returned when two views (or a view and the seed
// allocation) share a tokenizer ID.
var ErrDuplicateTokenizer = errors.New("duplicate tokenizer id")

// Allocation is the result of ID-space unification: the merged special table,
// one Mapping per tokenizer, and the counters needed to resume numbering on
// extension. Allocations are immutable; extension produces a new one.
type Allocation struct {
	capacity     Capacity
	specialOrder []string
	specialID    map[string]int64
	mappings     map[int]*Mapping

	// nextSpecial and nextRegular are the next IDs each pass would issue.
	// Under the unbounded and global-bound policies the two ranges are one
	// and the fields are kept equal.
	nextSpecial int64
	nextRegular int64
}

func newAllocation(capacity Capacity) *Allocation {
	a := &Allocation{
		capacity:  capacity,
		specialID: make(map[string]int64),
		mappings:  make(map[int]*Mapping),
	}
	if capacity.Policy() == PolicySplitBound {
		a.nextRegular = capacity.maxSpecial
	}
	return a
}

// clone copies the allocation's tables so a failed extension never leaves a
// partially updated seed visible. Mapping values are immutable and shared.
func (a *Allocation) clone() *Allocation {
	out := &Allocation{
		capacity:     a.capacity,
		specialOrder: append([]string(nil), a.specialOrder...),
		specialID:    make(map[string]int64, len(a.specialID)),
		mappings:     make(map[int]*Mapping, len(a.mappings)),
		nextSpecial:  a.nextSpecial,
		nextRegular:  a.nextRegular,
	}
	for tok, id := range a.specialID {
		out.specialID[tok] = id
	}
	for id, m := range a.mappings {
		out.mappings[id] = m
	}
	return out
}

// Allocate computes a global remapping for the given views under capacity.
// When prev is non-nil it acts as a seed: every ID it already issued is kept,
// and the counters resume one past the highest previously issued ID of each
// range. The first pass merges special tokens by string in first-seen order;
// the second numbers each view's regular tokens by ascending local ID.
// Regular tokens are never merged across views, even on equal strings.
func Allocate(views []View, capacity Capacity, prev *Allocation) (*Allocation, error) {
	var a *Allocation
	if prev != nil {
		if prev.capacity != capacity {
			return nil, fmt.Errorf("%w: have %v, got %v", ErrCapacityChanged, prev.capacity, capacity)
		}
		a = prev.clone()
	} else {
		a = newAllocation(capacity)
	}

	seen := make(map[int]string, len(views))
	for _, v := range views {
		id := v.TokenizerID()
		if other, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %d used by both %q and %q", ErrDuplicateTokenizer, id, other, v.Name())
		}
		if _, taken := a.mappings[id]; taken {
			return nil, fmt.Errorf("%w: %d already allocated", ErrDuplicateTokenizer, id)
		}
		seen[id] = v.Name()
	}

	// Pass 1: merge special tokens.
	for _, v := range views {
		for _, tok := range v.SpecialTokens() {
			if _, ok := a.specialID[tok]; ok {
				continue
			}
			if err := a.assignSpecial(tok); err != nil {
				return nil, err
			}
		}
	}

	// Pass 2: number regular tokens per view, ascending local ID.
	for _, v := range views {
		regular := v.RegularTokens()
		byLocal := make([]string, len(regular))
		for tok, local := range regular {
			if local < 0 || local >= len(regular) || byLocal[local] != "" {
				return nil, fmt.Errorf("tokenizer %q: regular local IDs are not dense (token %q, id %d)",
					v.Name(), tok, local)
			}
			byLocal[local] = tok
		}

		localToGlobal := make([]int64, len(byLocal))
		for local, tok := range byLocal {
			gid, err := a.assignRegular(tok)
			if err != nil {
				return nil, err
			}
			localToGlobal[local] = gid
		}
		a.mappings[v.TokenizerID()] = NewMapping(v.TokenizerID(), localToGlobal)
	}

	return a, nil
}

// AllocateSpecials extends prev with new special tokens. Tokens already in
// the merged table are no-ops, so the operation is idempotent by string.
func AllocateSpecials(prev *Allocation, tokens []string) (*Allocation, error) {
	a := prev.clone()
	for _, tok := range tokens {
		if _, ok := a.specialID[tok]; ok {
			continue
		}
		if err := a.assignSpecial(tok); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Allocation) assignSpecial(tok string) error {
	switch a.capacity.policy {
	case PolicySplitBound:
		if a.nextSpecial >= a.capacity.maxSpecial {
			return &CapacityError{Range: "special", Token: tok, Bound: a.capacity.maxSpecial}
		}
		a.specialID[tok] = a.nextSpecial
		a.nextSpecial++
	case PolicyGlobalBound:
		if a.nextRegular >= a.capacity.maxToken {
			return &CapacityError{Range: "token", Token: tok, Bound: a.capacity.maxToken}
		}
		a.specialID[tok] = a.nextRegular
		a.nextRegular++
		a.nextSpecial = a.nextRegular
	default:
		a.specialID[tok] = a.nextRegular
		a.nextRegular++
		a.nextSpecial = a.nextRegular
	}
	a.specialOrder = append(a.specialOrder, tok)
	return nil
}

func (a *Allocation) assignRegular(tok string) (int64, error) {
	if bound, ok := a.capacity.MaxToken(); ok && a.nextRegular >= bound {
		return 0, &CapacityError{Range: "token", Token: tok, Bound: bound}
	}
	gid := a.nextRegular
	a.nextRegular++
	if a.capacity.policy != PolicySplitBound {
		a.nextSpecial = a.nextRegular
	}
	return gid, nil
}

// SpecialEntry names one merged special token with its global ID.
type SpecialEntry struct {
	Token string
	ID    int64
}

// Restore rebuilds an Allocation from persisted state, recomputing the
// extension counters from the highest IDs present. It does not verify the
// consistency invariants; run diagnostics on the resulting vocabulary.
func Restore(capacity Capacity, specials []SpecialEntry, mappings []*Mapping) (*Allocation, error) {
	a := newAllocation(capacity)

	ordered := append([]SpecialEntry(nil), specials...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, e := range ordered {
		if _, dup := a.specialID[e.Token]; dup {
			return nil, fmt.Errorf("special token %q appears twice in persisted state", e.Token)
		}
		a.specialID[e.Token] = e.ID
		a.specialOrder = append(a.specialOrder, e.Token)
	}

	for _, m := range mappings {
		if _, dup := a.mappings[m.TokenizerID()]; dup {
			return nil, fmt.Errorf("%w: %d appears twice in persisted state", ErrDuplicateTokenizer, m.TokenizerID())
		}
		a.mappings[m.TokenizerID()] = m
	}

	maxSpecial := int64(-1)
	for _, e := range ordered {
		if e.ID > maxSpecial {
			maxSpecial = e.ID
		}
	}
	maxRegular := int64(-1)
	for _, m := range mappings {
		for _, gid := range m.Globals() {
			if gid > maxRegular {
				maxRegular = gid
			}
		}
	}

	if capacity.Policy() == PolicySplitBound {
		a.nextSpecial = maxSpecial + 1
		if maxRegular+1 > a.nextRegular {
			a.nextRegular = maxRegular + 1
		}
	} else {
		next := maxSpecial + 1
		if maxRegular+1 > next {
			next = maxRegular + 1
		}
		a.nextSpecial = next
		a.nextRegular = next
	}

	return a, nil
}

// Capacity returns the configuration this allocation was built under.
func (a *Allocation) Capacity() Capacity { return a.capacity }

// SpecialTokens returns the merged special tokens in assignment order.
func (a *Allocation) SpecialTokens() []string {
	return append([]string(nil), a.specialOrder...)
}

// SpecialID returns the global ID of a merged special token.
func (a *Allocation) SpecialID(token string) (int64, bool) {
	id, ok := a.specialID[token]
	return id, ok
}

// SpecialTable returns a copy of the merged special table.
func (a *Allocation) SpecialTable() map[string]int64 {
	out := make(map[string]int64, len(a.specialID))
	for tok, id := range a.specialID {
		out[tok] = id
	}
	return out
}

// NumSpecial returns the number of merged special tokens.
func (a *Allocation) NumSpecial() int { return len(a.specialOrder) }

// Mapping returns the regular-token table for one tokenizer.
func (a *Allocation) Mapping(tokenizerID int) (*Mapping, bool) {
	m, ok := a.mappings[tokenizerID]
	return m, ok
}

// TokenizerIDs returns the mapped tokenizer IDs in ascending order.
func (a *Allocation) TokenizerIDs() []int {
	out := make([]int, 0, len(a.mappings))
	for id := range a.mappings {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// NumIDs returns the total number of global IDs issued.
func (a *Allocation) NumIDs() int {
	n := len(a.specialOrder)
	for _, m := range a.mappings {
		n += m.NumRegular()
	}
	return n
}

// MaxIssued returns the highest global ID issued so far, or -1 when empty.
func (a *Allocation) MaxIssued() int64 {
	highest := int64(-1)
	for _, id := range a.specialID {
		if id > highest {
			highest = id
		}
	}
	for _, m := range a.mappings {
		for _, gid := range m.Globals() {
			if gid > highest {
				highest = gid
			}
		}
	}
	return highest
}

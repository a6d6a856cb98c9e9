// Package idspace assigns every token of every source vocabulary a unique
// global ID under one of three capacity policies, and keeps the per-tokenizer
// bidirectional mapping tables it produces. Allocation is pure: it never
// mutates its inputs, and a prior allocation can be supplied as a seed so
// extension resumes the counters instead of renumbering.
package idspace

import (
	"errors"
	"fmt"
)

// Policy selects one of the three mutually exclusive numbering schemes.
type Policy int

const (
	// PolicyUnbounded numbers specials then regulars from 0 with no limit.
	PolicyUnbounded Policy = iota
	// PolicyGlobalBound is the same single compact range, but every ID must
	// stay strictly below the configured total bound.
	PolicyGlobalBound
	// PolicySplitBound keeps specials strictly below the special bound and
	// starts regulars at the special bound, leaving any unused headroom
	// between the last special and the first regular as a buffer.
	PolicySplitBound
)

func (p Policy) String() string {
	switch p {
	case PolicyUnbounded:
		return "unbounded"
	case PolicyGlobalBound:
		return "global-bound"
	case PolicySplitBound:
		return "split-bound"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ErrBadCapacity is returned for non-positive or inconsistent bounds.
var ErrBadCapacity = errors.New("invalid capacity configuration")

// Capacity is the tagged capacity configuration. The zero value is the
// unbounded policy. Capacity values are comparable; an allocation can only be
// extended under the capacity it was built with.
type Capacity struct {
	policy     Policy
	maxSpecial int64
	maxToken   int64
}

// Unbounded returns the no-limit capacity configuration.
func Unbounded() Capacity { return Capacity{policy: PolicyUnbounded} }

// GlobalBound returns a capacity where every global ID must be < maxToken.
func GlobalBound(maxToken int64) (Capacity, error) {
	if maxToken <= 0 {
		return Capacity{}, fmt.Errorf("%w: max_token_id %d must be positive", ErrBadCapacity, maxToken)
	}
	return Capacity{policy: PolicyGlobalBound, maxToken: maxToken}, nil
}

// SplitBound returns a capacity where special IDs occupy [0, maxSpecial) and
// regular IDs occupy [maxSpecial, maxToken), or [maxSpecial, inf) when
// maxToken is 0.
func SplitBound(maxSpecial, maxToken int64) (Capacity, error) {
	if maxSpecial <= 0 {
		return Capacity{}, fmt.Errorf("%w: max_special_id %d must be positive", ErrBadCapacity, maxSpecial)
	}
	if maxToken != 0 && maxToken <= maxSpecial {
		return Capacity{}, fmt.Errorf("%w: max_token_id %d must exceed max_special_id %d",
			ErrBadCapacity, maxToken, maxSpecial)
	}
	return Capacity{policy: PolicySplitBound, maxSpecial: maxSpecial, maxToken: maxToken}, nil
}

// FromBounds translates the two optional integers of a configuration file
// (0 meaning unset) into a Capacity. Setting max_special_id selects the
// split-bound policy regardless of max_token_id.
func FromBounds(maxSpecial, maxToken int64) (Capacity, error) {
	switch {
	case maxSpecial != 0:
		return SplitBound(maxSpecial, maxToken)
	case maxToken != 0:
		return GlobalBound(maxToken)
	default:
		return Unbounded(), nil
	}
}

// Policy returns which numbering scheme this capacity selects.
func (c Capacity) Policy() Policy { return c.policy }

// MaxSpecial returns the exclusive special-ID bound, if one is set.
func (c Capacity) MaxSpecial() (int64, bool) {
	return c.maxSpecial, c.policy == PolicySplitBound
}

// MaxToken returns the exclusive bound on all global IDs, if one is set.
func (c Capacity) MaxToken() (int64, bool) {
	return c.maxToken, c.maxToken != 0
}

func (c Capacity) String() string {
	switch c.policy {
	case PolicyGlobalBound:
		return fmt.Sprintf("global-bound(max_token_id=%d)", c.maxToken)
	case PolicySplitBound:
		if c.maxToken != 0 {
			return fmt.Sprintf("split-bound(max_special_id=%d, max_token_id=%d)", c.maxSpecial, c.maxToken)
		}
		return fmt.Sprintf("split-bound(max_special_id=%d)", c.maxSpecial)
	default:
		return "unbounded"
	}
}

package modular

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// TypedInput is one segment of a mixed-type input: the sub-tokenizer to
// segment it with, the text, and an optional per-segment token cap (0 means
// none).
type TypedInput struct {
	TokenizerName string
	Text          string
	MaxLen        int
}

// ErrNoSegmenter is returned when a sub-tokenizer was built table-only and
// cannot segment text.
var ErrNoSegmenter = errors.New("sub-tokenizer has no segmentation capability")

// EncodeOptions adjusts a single EncodeList call. Zero fields fall back to
// the vocabulary-level defaults set with WithTruncation and WithPadding.
type EncodeOptions struct {
	// MaxLen replaces the configured encoding length.
	MaxLen int
	// PadToken replaces the configured pad token.
	PadToken string
}

// WithTruncation returns a copy of the vocabulary whose encodings are capped
// at maxLen tokens by default. The receiver is unchanged.
func (v *Vocabulary) WithTruncation(maxLen int) (*Vocabulary, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("truncation length %d must be positive", maxLen)
	}
	nv := *v
	nv.maxLen = maxLen
	return &nv, nil
}

// WithPadding returns a copy of the vocabulary whose encodings are padded
// with token up to length by default. The pad token must be in the merged
// special table. Padding implies truncation to the same length. The receiver
// is unchanged.
func (v *Vocabulary) WithPadding(token string, length int) (*Vocabulary, error) {
	if _, ok := v.alloc.SpecialID(token); !ok {
		return nil, fmt.Errorf("pad token %q: %w", token, ErrUnknownToken)
	}
	if length <= 0 {
		return nil, fmt.Errorf("padding length %d must be positive", length)
	}
	nv := *v
	nv.padToken = token
	nv.maxLen = length
	return &nv, nil
}

// EncodeSegments encodes each segment through its named sub-tokenizer and
// remaps the local IDs through that sub-tokenizer's mapping table. Each
// segment is truncated to the smaller of its own cap and the sub-tokenizer's
// configured cap.
func (v *Vocabulary) EncodeSegments(inputs []TypedInput) ([][]int64, error) {
	out := make([][]int64, 0, len(inputs))
	for i, in := range inputs {
		st, ok := v.byName[in.TokenizerName]
		if !ok {
			return nil, fmt.Errorf("segment %d: %w: %q", i, ErrUnknownTokenizer, in.TokenizerName)
		}
		if st.tok == nil {
			return nil, fmt.Errorf("segment %d: %w: %q", i, ErrNoSegmenter, in.TokenizerName)
		}

		locals, err := st.tok.Tokenize(in.Text)
		if err != nil {
			return nil, fmt.Errorf("segment %d (%q): %w", i, in.TokenizerName, err)
		}

		ids := make([]int64, len(locals))
		for j, local := range locals {
			gid, ok := st.mapping.ToGlobal(local)
			if !ok {
				return nil, fmt.Errorf("segment %d (%q): local id %d has no global mapping",
					i, in.TokenizerName, local)
			}
			ids[j] = gid
		}

		limit := segmentLimit(in.MaxLen, st.maxLen)
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
		out = append(out, ids)
	}
	return out, nil
}

// EncodeList encodes the segments, concatenates them, truncates the result
// to the effective maximum length, and pads it with the effective pad
// token's global ID. Padding is applied after truncation.
func (v *Vocabulary) EncodeList(inputs []TypedInput, opts EncodeOptions) ([]int64, error) {
	segments, err := v.EncodeSegments(inputs)
	if err != nil {
		return nil, err
	}

	var merged []int64
	for _, seg := range segments {
		merged = append(merged, seg...)
	}

	maxLen := v.maxLen
	if opts.MaxLen > 0 {
		maxLen = opts.MaxLen
	}
	padToken := v.padToken
	if opts.PadToken != "" {
		padToken = opts.PadToken
	}

	if maxLen > 0 && len(merged) > maxLen {
		merged = merged[:maxLen]
	}
	if padToken != "" && maxLen > 0 {
		padID, ok := v.alloc.SpecialID(padToken)
		if !ok {
			return nil, fmt.Errorf("pad token %q: %w", padToken, ErrUnknownToken)
		}
		for len(merged) < maxLen {
			merged = append(merged, padID)
		}
	}

	return merged, nil
}

// Decode maps global IDs back to their token strings, independent of which
// sub-tokenizer produced each ID. With skipSpecial, special tokens (and
// unmapped IDs) are dropped; otherwise an unmapped ID renders as an explicit
// missing-token marker.
func (v *Vocabulary) Decode(ids []int64, skipSpecial bool) string {
	var b strings.Builder
	for _, id := range ids {
		e, ok := v.decoder[id]
		switch {
		case !ok && skipSpecial:
		case !ok:
			fmt.Fprintf(&b, "<@TOKEN_MISSING-%d>", id)
		case e.special && skipSpecial:
		default:
			b.WriteString(e.token)
		}
	}
	return b.String()
}

// tagPattern matches the sub-tokenizer hints of a tagged input string, e.g.
// "<@TOKENIZER-TYPE=AA>MKT<@TOKENIZER-TYPE=SMILES>c1ccccc1".
var tagPattern = regexp.MustCompile(`<@TOKENIZER-TYPE=([^>]*)>`)

// SplitTagged parses a tagged input string into typed segments. Every span
// of text must be preceded by a tokenizer hint; inferring the sub-tokenizer
// from raw text is deliberately unsupported.
func SplitTagged(s string) ([]TypedInput, error) {
	tags := tagPattern.FindAllStringSubmatchIndex(s, -1)
	if len(tags) == 0 || tags[0][0] != 0 {
		return nil, fmt.Errorf("expected leading tokenizer hint in %q", s)
	}

	out := make([]TypedInput, 0, len(tags))
	for i, tag := range tags {
		end := len(s)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}
		out = append(out, TypedInput{
			TokenizerName: s[tag[2]:tag[3]],
			Text:          s[tag[1]:end],
		})
	}
	return out, nil
}

// segmentLimit returns the smaller of the positive limits, or 0 when neither
// is set.
func segmentLimit(a, b int) int {
	switch {
	case a > 0 && b > 0 && a < b:
		return a
	case b > 0:
		return b
	default:
		return a
	}
}

package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrDerivedInvalid is returned when a derived vocabulary blob does not match
// the local tables it embeds.
var ErrDerivedInvalid = errors.New("derived vocabulary invalid")

// Derived is a local vocabulary together with the global IDs it was assigned
// during unification. The derived form is what gets persisted per
// sub-tokenizer: it is sufficient to rebuild the local/global mapping tables
// without rerunning allocation against the original sources.
type Derived struct {
	Local *Local

	// SpecialGlobal maps every special token known to this sub-tokenizer
	// (the merged table, not just its own declarations) to its global ID.
	SpecialGlobal map[string]int64

	// RegularGlobal is indexed by local regular ID.
	RegularGlobal []int64
}

type derivedAddedToken struct {
	ID       int    `json:"id"`
	Content  string `json:"content"`
	Special  bool   `json:"special"`
	GlobalID int64  `json:"global_id"`
}

type derivedBlob struct {
	Name        string              `json:"name"`
	TokenizerID int                 `json:"tokenizer_id"`
	AddedTokens []derivedAddedToken `json:"added_tokens"`
	Model       modelBlob           `json:"model"`
	Mapping     []int64             `json:"mapping"`
}

// SaveDerived writes d to path as a JSON blob. The blob embeds the full
// source vocabulary, so LoadDerived can reconstruct the Local as well.
func SaveDerived(path string, d Derived) error {
	if len(d.RegularGlobal) != d.Local.NumRegular() {
		return fmt.Errorf("%w: tokenizer %q mapping has %d entries for %d regular tokens",
			ErrDerivedInvalid, d.Local.Name(), len(d.RegularGlobal), d.Local.NumRegular())
	}

	b := derivedBlob{
		Name:        d.Local.Name(),
		TokenizerID: d.Local.TokenizerID(),
		Model: modelBlob{
			Type:      d.Local.Kind(),
			Vocab:     d.Local.RegularTokens(),
			Merges:    d.Local.Merges(),
			ModelFile: d.Local.ModelFile(),
		},
		Mapping: d.RegularGlobal,
	}

	// The merged special table is written in the local declaration order
	// first, then any specials this sub-tokenizer inherited from the merge.
	next := 0
	emit := func(content string) error {
		gid, ok := d.SpecialGlobal[content]
		if !ok {
			return fmt.Errorf("%w: tokenizer %q special token %q has no global ID",
				ErrDerivedInvalid, d.Local.Name(), content)
		}
		b.AddedTokens = append(b.AddedTokens, derivedAddedToken{
			ID: next, Content: content, Special: true, GlobalID: gid,
		})
		next++
		return nil
	}
	local := make(map[string]bool, d.Local.NumSpecial())
	for _, s := range d.Local.SpecialTokens() {
		local[s] = true
		if err := emit(s); err != nil {
			return err
		}
	}
	for _, s := range sortedByGlobal(d.SpecialGlobal) {
		if !local[s] {
			if err := emit(s); err != nil {
				return err
			}
		}
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal derived vocabulary %q: %w", d.Local.Name(), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write derived vocabulary %q: %w", path, err)
	}
	return nil
}

// LoadDerived reads a derived vocabulary blob written by SaveDerived.
func LoadDerived(path string) (Derived, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Derived{}, fmt.Errorf("read derived vocabulary %q: %w", path, err)
	}

	var b derivedBlob
	if err := json.Unmarshal(data, &b); err != nil {
		return Derived{}, fmt.Errorf("parse derived vocabulary %q: %w", path, err)
	}

	src := blob{Model: b.Model}
	specialGlobal := make(map[string]int64, len(b.AddedTokens))
	for _, at := range b.AddedTokens {
		src.AddedTokens = append(src.AddedTokens, addedToken{
			ID: at.ID, Content: at.Content, Special: at.Special,
		})
		specialGlobal[at.Content] = at.GlobalID
	}

	local, err := fromBlob(b.Name, b.TokenizerID, src)
	if err != nil {
		return Derived{}, err
	}
	if len(b.Mapping) != local.NumRegular() {
		return Derived{}, fmt.Errorf("%w: tokenizer %q mapping has %d entries for %d regular tokens",
			ErrDerivedInvalid, b.Name, len(b.Mapping), local.NumRegular())
	}

	return Derived{
		Local:         local,
		SpecialGlobal: specialGlobal,
		RegularGlobal: b.Mapping,
	}, nil
}

// sortedByGlobal returns the tokens of a special table ordered by their
// global IDs, so saved blobs are deterministic.
func sortedByGlobal(specials map[string]int64) []string {
	out := make([]string, 0, len(specials))
	for tok := range specials {
		out = append(out, tok)
	}
	sort.Slice(out, func(i, j int) bool { return specials[out[i]] < specials[out[j]] })
	return out
}

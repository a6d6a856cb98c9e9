package modular

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/example/modtok/internal/idspace"
	"github.com/example/modtok/internal/subtok"
	"github.com/example/modtok/internal/vocab"
)

// ManifestName is the file the save directory's manifest is written to.
const ManifestName = "manifest.yaml"

// manifest records, per sub-tokenizer, enough to reconstruct the vocabulary
// without rerunning allocation. Derived vocabulary paths are stored as bare
// file names so the directory can move between machines.
type manifest struct {
	Tokenizers        []manifestEntry `yaml:"tokenizers"`
	MaxSpecialTokenID int64           `yaml:"max_special_token_id,omitempty"`
	MaxTokenID        int64           `yaml:"max_token_id,omitempty"`
	PadToken          string          `yaml:"pad_token,omitempty"`
	MaxLen            int             `yaml:"max_len,omitempty"`
}

type manifestEntry struct {
	Name        string `yaml:"name"`
	TokenizerID int    `yaml:"tokenizer_id"`
	Kind        string `yaml:"kind"`
	File        string `yaml:"file"`
	MaxLen      int    `yaml:"max_len,omitempty"`
}

// Save writes the vocabulary to dir: one derived vocabulary blob per
// sub-tokenizer plus the manifest. Together they are sufficient to
// reconstruct every lookup table without the original sources.
func (v *Vocabulary) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save directory %q: %w", dir, err)
	}

	var m manifest
	if bound, ok := v.capacity.MaxSpecial(); ok {
		m.MaxSpecialTokenID = bound
	}
	if bound, ok := v.capacity.MaxToken(); ok {
		m.MaxTokenID = bound
	}
	m.PadToken = v.padToken
	m.MaxLen = v.maxLen

	for _, name := range v.order {
		st := v.byName[name]
		file := fmt.Sprintf("%s.modular.json", name)
		d := vocab.Derived{
			Local:         st.local,
			SpecialGlobal: copySpecials(st.specials),
			RegularGlobal: st.mapping.Globals(),
		}
		if err := vocab.SaveDerived(filepath.Join(dir, file), d); err != nil {
			return err
		}
		m.Tokenizers = append(m.Tokenizers, manifestEntry{
			Name:        name,
			TokenizerID: st.id,
			Kind:        st.local.Kind(),
			File:        file,
			MaxLen:      st.maxLen,
		})
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reconstructs a vocabulary from a save directory and verifies the
// consistency invariants, failing with ErrInconsistent on violations.
// Persisted state may have been hand-edited, so nothing here is trusted.
func Load(dir string) (*Vocabulary, error) {
	v, err := LoadUnverified(dir)
	if err != nil {
		return nil, err
	}
	if err := v.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadUnverified reconstructs a vocabulary from a save directory without
// running diagnostics, so callers can inspect an inconsistent save. The
// decoder table is still built; structural malformation is still an error.
func LoadUnverified(dir string) (*Vocabulary, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Tokenizers) == 0 {
		return nil, errors.New("manifest lists no sub-tokenizers")
	}

	capacity, err := idspace.FromBounds(m.MaxSpecialTokenID, m.MaxTokenID)
	if err != nil {
		return nil, err
	}

	v := &Vocabulary{
		capacity: capacity,
		byName:   make(map[string]*tokenizerState, len(m.Tokenizers)),
		byID:     make(map[int]*tokenizerState, len(m.Tokenizers)),
		padToken: m.PadToken,
		maxLen:   m.MaxLen,
	}

	var mappings []*idspace.Mapping
	var merged []idspace.SpecialEntry
	for i, me := range m.Tokenizers {
		d, err := vocab.LoadDerived(filepath.Join(dir, me.File))
		if err != nil {
			return nil, err
		}
		if d.Local.Name() != me.Name || d.Local.TokenizerID() != me.TokenizerID {
			return nil, fmt.Errorf("derived vocabulary %q identifies as %q/%d, manifest says %q/%d",
				me.File, d.Local.Name(), d.Local.TokenizerID(), me.Name, me.TokenizerID)
		}
		if _, dup := v.byName[me.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, me.Name)
		}
		if _, dup := v.byID[me.TokenizerID]; dup {
			return nil, fmt.Errorf("%w: %d", idspace.ErrDuplicateTokenizer, me.TokenizerID)
		}

		tok, err := subtok.Open(d.Local, dir)
		if err != nil {
			return nil, err
		}

		mapping := idspace.NewMapping(me.TokenizerID, d.RegularGlobal)
		st := &tokenizerState{
			name:     me.Name,
			id:       me.TokenizerID,
			local:    d.Local,
			tok:      tok,
			mapping:  mapping,
			specials: d.SpecialGlobal,
			maxLen:   me.MaxLen,
		}
		v.byName[me.Name] = st
		v.byID[me.TokenizerID] = st
		v.order = append(v.order, me.Name)
		mappings = append(mappings, mapping)

		// The merged special table is taken from the first sub-tokenizer;
		// diagnostics compare every other view against it.
		if i == 0 {
			for s, gid := range d.SpecialGlobal {
				merged = append(merged, idspace.SpecialEntry{Token: s, ID: gid})
			}
		}
	}

	alloc, err := idspace.Restore(capacity, merged, mappings)
	if err != nil {
		return nil, err
	}
	v.alloc = alloc

	if err := v.buildDecoder(); err != nil {
		return nil, err
	}
	return v, nil
}

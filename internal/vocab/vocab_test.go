package vocab

import (
	"errors"
	"path/filepath"
	"testing"
)

const sampleBlob = `{
  "added_tokens": [
    {"id": 0, "content": "<SEP>", "special": true},
    {"id": 1, "content": "<EOS>", "special": true}
  ],
  "model": {
    "type": "wordlevel",
    "vocab": {"a": 0, "b": 1, "c": 2}
  }
}`

// ---------------------------------------------------------------------------
// Parse / Load
// ---------------------------------------------------------------------------

func TestParse_Valid(t *testing.T) {
	l, err := Parse("AA", 3, []byte(sampleBlob))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if l.Name() != "AA" || l.TokenizerID() != 3 {
		t.Errorf("identity = %q/%d, want AA/3", l.Name(), l.TokenizerID())
	}
	if l.Kind() != KindWordLevel {
		t.Errorf("Kind() = %q, want %q", l.Kind(), KindWordLevel)
	}
	if got := l.SpecialTokens(); len(got) != 2 || got[0] != "<SEP>" || got[1] != "<EOS>" {
		t.Errorf("SpecialTokens() = %v", got)
	}
	if l.NumRegular() != 3 || l.NumSpecial() != 2 {
		t.Errorf("counts = %d/%d, want 3/2", l.NumRegular(), l.NumSpecial())
	}

	id, ok := l.RegularID("b")
	if !ok || id != 1 {
		t.Errorf("RegularID(b) = %d,%v", id, ok)
	}
	tok, ok := l.RegularByID(2)
	if !ok || tok != "c" {
		t.Errorf("RegularByID(2) = %q,%v", tok, ok)
	}
	if !l.IsSpecial("<SEP>") || l.IsSpecial("a") {
		t.Error("IsSpecial misclassifies tokens")
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{
			"non-dense special ids",
			`{"added_tokens":[{"id":0,"content":"<SEP>","special":true},{"id":2,"content":"<EOS>","special":true}],"model":{"type":"wordlevel","vocab":{}}}`,
		},
		{
			"duplicate special token",
			`{"added_tokens":[{"id":0,"content":"<SEP>","special":true},{"id":1,"content":"<SEP>","special":true}],"model":{"type":"wordlevel","vocab":{}}}`,
		},
		{
			"non-dense regular ids",
			`{"added_tokens":[],"model":{"type":"wordlevel","vocab":{"a":0,"b":2}}}`,
		},
		{
			"negative regular id",
			`{"added_tokens":[],"model":{"type":"wordlevel","vocab":{"a":-1,"b":0}}}`,
		},
		{
			"token both special and regular",
			`{"added_tokens":[{"id":0,"content":"x","special":true}],"model":{"type":"wordlevel","vocab":{"x":0}}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad", 0, []byte(tc.blob))
			if !errors.Is(err, ErrSourceInvalid) {
				t.Fatalf("expected ErrSourceInvalid, got: %v", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("AA", 0, filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNew_DuplicateRegular(t *testing.T) {
	_, err := New("AA", 0, KindWordLevel, nil, []string{"a", "a"})
	if !errors.Is(err, ErrSourceInvalid) {
		t.Fatalf("expected ErrSourceInvalid, got: %v", err)
	}
}

func TestNew_NegativeTokenizerID(t *testing.T) {
	_, err := New("AA", -1, KindWordLevel, nil, []string{"a"})
	if !errors.Is(err, ErrSourceInvalid) {
		t.Fatalf("expected ErrSourceInvalid, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Derived blobs
// ---------------------------------------------------------------------------

func TestDerived_RoundTrip(t *testing.T) {
	local, err := New("AA", 1, KindWordLevel, []string{"<SEP>", "<EOS>"}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path := filepath.Join(t.TempDir(), "aa.modular.json")
	in := Derived{
		Local: local,
		SpecialGlobal: map[string]int64{
			"<SEP>": 0, "<EOS>": 1, "<PAD>": 2, // <PAD> inherited from the merge
		},
		RegularGlobal: []int64{10, 11},
	}
	if err := SaveDerived(path, in); err != nil {
		t.Fatalf("SaveDerived: %v", err)
	}

	out, err := LoadDerived(path)
	if err != nil {
		t.Fatalf("LoadDerived: %v", err)
	}

	if out.Local.Name() != "AA" || out.Local.TokenizerID() != 1 {
		t.Errorf("identity = %q/%d", out.Local.Name(), out.Local.TokenizerID())
	}
	// The reloaded local view carries the merged special table.
	if out.Local.NumSpecial() != 3 {
		t.Errorf("NumSpecial() = %d, want 3", out.Local.NumSpecial())
	}
	for tok, want := range in.SpecialGlobal {
		if got := out.SpecialGlobal[tok]; got != want {
			t.Errorf("SpecialGlobal[%q] = %d, want %d", tok, got, want)
		}
	}
	if len(out.RegularGlobal) != 2 || out.RegularGlobal[0] != 10 || out.RegularGlobal[1] != 11 {
		t.Errorf("RegularGlobal = %v", out.RegularGlobal)
	}
}

func TestSaveDerived_MappingSizeMismatch(t *testing.T) {
	local, err := New("AA", 1, KindWordLevel, nil, []string{"a", "b"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = SaveDerived(filepath.Join(t.TempDir(), "aa.json"), Derived{
		Local:         local,
		SpecialGlobal: map[string]int64{},
		RegularGlobal: []int64{1},
	})
	if !errors.Is(err, ErrDerivedInvalid) {
		t.Fatalf("expected ErrDerivedInvalid, got: %v", err)
	}
}

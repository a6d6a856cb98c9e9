package modular

import (
	"errors"
	"testing"

	"github.com/example/modtok/internal/idspace"
	"github.com/example/modtok/internal/subtok"
)

// assertStable checks that every token the old vocabulary resolved still
// resolves to the same global ID in the new one.
func assertStable(t *testing.T, old, now *Vocabulary) {
	t.Helper()
	for _, tok := range old.SpecialTokens() {
		was := mustID(t, old, tok, "")
		is := mustID(t, now, tok, "")
		if was != is {
			t.Errorf("special %q moved from %d to %d", tok, was, is)
		}
	}
	for _, name := range old.TokenizerNames() {
		for tok := range old.byName[name].local.RegularTokens() {
			was := mustID(t, old, tok, name)
			is := mustID(t, now, tok, name)
			if was != is {
				t.Errorf("%s/%q moved from %d to %d", name, tok, was, is)
			}
		}
	}
}

func TestAddSpecialTokens(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())

	nv, added, err := v.AddSpecialTokens([]string{"<TASK>"})
	if err != nil {
		t.Fatalf("AddSpecialTokens: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	if id := mustID(t, nv, "<TASK>", ""); id != 7 {
		t.Errorf("TokenToID(<TASK>) = %d, want 7", id)
	}
	assertStable(t, v, nv)

	// The receiver is untouched.
	if _, err := v.TokenToID("<TASK>", "AA"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("receiver gained the token: %v", err)
	}

	// Repeating the add is a no-op by string.
	again, added, err := nv.AddSpecialTokens([]string{"<TASK>"})
	if err != nil {
		t.Fatalf("AddSpecialTokens again: %v", err)
	}
	if added != 0 {
		t.Errorf("repeated add created %d tokens", added)
	}
	if again.VocabSize() != nv.VocabSize() {
		t.Errorf("repeated add changed vocab size: %d != %d", again.VocabSize(), nv.VocabSize())
	}
}

func TestAddSpecialTokens_MixedKnownAndNew(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())
	nv, added, err := v.AddSpecialTokens([]string{"<SEP>", "<TASK>", "<MASK>"})
	if err != nil {
		t.Fatalf("AddSpecialTokens: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if nv.VocabSize() != v.VocabSize()+2 {
		t.Errorf("VocabSize() = %d, want %d", nv.VocabSize(), v.VocabSize()+2)
	}
}

func TestAddSpecialTokens_RejectsRegularPromotion(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())
	_, _, err := v.AddSpecialTokens([]string{"a"})
	if !errors.Is(err, ErrTokenAlreadyRegular) {
		t.Fatalf("expected ErrTokenAlreadyRegular, got: %v", err)
	}
}

func TestAddSubTokenizer(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())

	lc := mustLocal(t, "CC", 2, []string{"<SEP>", "<MASK>"}, []string{"m", "n"})
	nv, err := v.AddSubTokenizer(Entry{Local: lc, Tokenizer: subtok.NewWordLevel(lc)})
	if err != nil {
		t.Fatalf("AddSubTokenizer: %v", err)
	}
	assertStable(t, v, nv)

	// <SEP> merges with the existing special; <MASK> and the regulars extend.
	if id := mustID(t, nv, "<SEP>", "CC"); id != 0 {
		t.Errorf("TokenToID(<SEP>) = %d, want 0", id)
	}
	if id := mustID(t, nv, "<MASK>", "CC"); id != 7 {
		t.Errorf("TokenToID(<MASK>) = %d, want 7", id)
	}
	if id := mustID(t, nv, "m", "CC"); id != 8 {
		t.Errorf("TokenToID(m) = %d, want 8", id)
	}
	if id := mustID(t, nv, "n", "CC"); id != 9 {
		t.Errorf("TokenToID(n) = %d, want 9", id)
	}
	if nv.VocabSize() != v.VocabSize()+3 {
		t.Errorf("VocabSize() = %d, want %d", nv.VocabSize(), v.VocabSize()+3)
	}

	names := nv.TokenizerNames()
	if len(names) != 3 || names[2] != "CC" {
		t.Errorf("TokenizerNames() = %v", names)
	}
}

func TestAddSubTokenizer_RejectsSpecialRegularOverlap(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())

	// New tokenizer carries a regular token that is special in the merged
	// table.
	lc := mustLocal(t, "CC", 2, nil, []string{"<EOS>", "m"})
	if _, err := v.AddSubTokenizer(Entry{Local: lc}); !errors.Is(err, ErrTokenAlreadyRegular) {
		t.Fatalf("expected ErrTokenAlreadyRegular, got: %v", err)
	}

	// New tokenizer declares a special that already exists as a regular
	// token elsewhere.
	ld := mustLocal(t, "DD", 3, []string{"x"}, []string{"m"})
	if _, err := v.AddSubTokenizer(Entry{Local: ld}); !errors.Is(err, ErrTokenAlreadyRegular) {
		t.Fatalf("expected ErrTokenAlreadyRegular, got: %v", err)
	}

	// The receiver is untouched by the failed adds.
	if id := mustID(t, v, "y", "BB"); id != 6 {
		t.Errorf("TokenToID(y) = %d, want 6", id)
	}
}

func TestAddSubTokenizer_DuplicateName(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())
	dup := mustLocal(t, "AA", 5, nil, []string{"z"})
	_, err := v.AddSubTokenizer(Entry{Local: dup})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got: %v", err)
	}
}

func TestAddSubTokenizer_DuplicateTokenizerID(t *testing.T) {
	v := buildFixture(t, idspace.Unbounded())
	dup := mustLocal(t, "CC", 1, nil, []string{"z"})
	_, err := v.AddSubTokenizer(Entry{Local: dup})
	if !errors.Is(err, idspace.ErrDuplicateTokenizer) {
		t.Fatalf("expected ErrDuplicateTokenizer, got: %v", err)
	}
}

func TestAddSubTokenizer_CapacityExhausted(t *testing.T) {
	bound, err := idspace.GlobalBound(7) // exactly full after the fixture
	if err != nil {
		t.Fatalf("GlobalBound: %v", err)
	}
	v := buildFixture(t, bound)

	lc := mustLocal(t, "CC", 2, nil, []string{"m"})
	_, err = v.AddSubTokenizer(Entry{Local: lc})
	var capErr *idspace.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got: %v", err)
	}

	// The receiver still resolves everything it did before the failed add.
	if id := mustID(t, v, "y", "BB"); id != 6 {
		t.Errorf("TokenToID(y) = %d, want 6", id)
	}
}

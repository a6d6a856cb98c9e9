package subtok

import (
	"errors"
	"testing"

	"github.com/example/modtok/internal/vocab"
)

func mustLocal(t *testing.T, name string, kind string, specials, regulars []string) *vocab.Local {
	t.Helper()
	l, err := vocab.New(name, 0, kind, specials, regulars)
	if err != nil {
		t.Fatalf("vocab.New(%s): %v", name, err)
	}
	return l
}

// ---------------------------------------------------------------------------
// WordLevel
// ---------------------------------------------------------------------------

func TestWordLevel_RoundTrip(t *testing.T) {
	l := mustLocal(t, "AA", vocab.KindWordLevel, nil, []string{"A", "C", "G", "T"})
	w := NewWordLevel(l)

	ids, err := w.Tokenize("GATTACA")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []int{2, 0, 3, 3, 0, 1, 0}
	if len(ids) != len(want) {
		t.Fatalf("Tokenize returned %d IDs, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	text, err := w.Detokenize(ids)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if text != "GATTACA" {
		t.Errorf("Detokenize = %q, want %q", text, "GATTACA")
	}
}

func TestWordLevel_UnknownRune(t *testing.T) {
	l := mustLocal(t, "AA", vocab.KindWordLevel, nil, []string{"A", "C"})
	_, err := NewWordLevel(l).Tokenize("AXC")
	if !errors.Is(err, ErrUnknownInput) {
		t.Fatalf("expected ErrUnknownInput, got: %v", err)
	}
}

func TestWordLevel_UnknownLocalID(t *testing.T) {
	l := mustLocal(t, "AA", vocab.KindWordLevel, nil, []string{"A"})
	if _, err := NewWordLevel(l).Detokenize([]int{5}); err == nil {
		t.Fatal("expected error for out-of-range local ID")
	}
}

// ---------------------------------------------------------------------------
// BPE
// ---------------------------------------------------------------------------

func TestBPE_GreedyLongestMatch(t *testing.T) {
	l := mustLocal(t, "BB", vocab.KindBPE, nil, []string{"a", "b", "ab", "abc"})
	b := NewBPE(l)

	// "abc" wins over "ab"+single, "ab" wins over "a"+"b".
	ids, err := b.Tokenize("abcabb")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []int{3, 2, 1} // abc, ab, b
	if len(ids) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	text, err := b.Detokenize(ids)
	if err != nil {
		t.Fatalf("Detokenize: %v", err)
	}
	if text != "abcabb" {
		t.Errorf("Detokenize = %q, want %q", text, "abcabb")
	}
}

func TestBPE_Unsegmentable(t *testing.T) {
	l := mustLocal(t, "BB", vocab.KindBPE, nil, []string{"ab"})
	_, err := NewBPE(l).Tokenize("abx")
	if !errors.Is(err, ErrUnknownInput) {
		t.Fatalf("expected ErrUnknownInput, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpen_ByKind(t *testing.T) {
	wl, err := Open(mustLocal(t, "AA", vocab.KindWordLevel, nil, []string{"A"}), "")
	if err != nil {
		t.Fatalf("Open wordlevel: %v", err)
	}
	if _, ok := wl.(*WordLevel); !ok {
		t.Errorf("Open wordlevel returned %T", wl)
	}

	bp, err := Open(mustLocal(t, "BB", vocab.KindBPE, nil, []string{"a"}), "")
	if err != nil {
		t.Fatalf("Open bpe: %v", err)
	}
	if _, ok := bp.(*BPE); !ok {
		t.Errorf("Open bpe returned %T", bp)
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(mustLocal(t, "XX", "unigram", nil, []string{"a"}), "")
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got: %v", err)
	}
}

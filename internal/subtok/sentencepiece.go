package subtok

import (
	"fmt"
	"path/filepath"
	"strings"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"

	"github.com/example/modtok/internal/vocab"
)

// spaceMarker is the SentencePiece whitespace placeholder (U+2581).
const spaceMarker = "▁"

// SentencePiece delegates segmentation to a pretrained SentencePiece model
// while the local vocabulary blob supplies the token tables. The model's
// piece IDs must agree with the blob's local IDs; the construction pipeline
// exports both from the same source.
type SentencePiece struct {
	local *vocab.Local
	proc  gosp.Sentencepiece
}

// NewSentencePiece loads the companion model file named by the vocabulary
// blob, resolved relative to dir.
func NewSentencePiece(local *vocab.Local, dir string) (*SentencePiece, error) {
	if local.ModelFile() == "" {
		return nil, fmt.Errorf("tokenizer %q: sentencepiece kind requires model_file in vocabulary blob", local.Name())
	}

	path := local.ModelFile()
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	proc, err := gosp.NewSentencepieceFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model %q: %w", path, err)
	}

	return &SentencePiece{local: local, proc: proc}, nil
}

func (s *SentencePiece) Name() string { return s.local.Name() }

func (s *SentencePiece) SpecialTokens() []string { return s.local.SpecialTokens() }

func (s *SentencePiece) RegularTokens() map[string]int { return s.local.RegularTokens() }

// Tokenize segments text with the SentencePiece model.
func (s *SentencePiece) Tokenize(text string) ([]int, error) {
	if text == "" {
		return []int{}, nil
	}

	raw := s.proc.TokenizeToIDs(text)
	ids := make([]int, len(raw))
	for i, id := range raw {
		ids[i] = int(id)
	}
	return ids, nil
}

// Detokenize joins pieces and restores the whitespace the space marker stands
// for.
func (s *SentencePiece) Detokenize(ids []int) (string, error) {
	joined, err := detokenizeByID(s.local, ids)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.ReplaceAll(joined, spaceMarker, " "), " "), nil
}

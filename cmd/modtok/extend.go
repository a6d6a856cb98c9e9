package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/modtok/internal/modular"
	"github.com/example/modtok/internal/subtok"
	"github.com/example/modtok/internal/vocab"
)

func newExtendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Append to a saved vocabulary without disturbing issued IDs",
	}

	cmd.AddCommand(newAddSpecialsCmd())
	cmd.AddCommand(newAddTokenizerCmd())

	return cmd
}

func newAddSpecialsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "add-specials TOKEN...",
		Short: "Add special tokens to the merged table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}

			v, err := modular.Load(dir)
			if err != nil {
				return err
			}

			nv, added, err := v.AddSpecialTokens(args)
			if err != nil {
				return err
			}
			if err := nv.Save(dir); err != nil {
				return err
			}

			slog.Info("added special tokens",
				"requested", len(args),
				"created", added,
				"vocab_size", nv.VocabSize())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")

	return cmd
}

func newAddTokenizerCmd() *cobra.Command {
	var (
		dir         string
		name        string
		tokenizerID int
		vocabPath   string
		maxLen      int
	)

	cmd := &cobra.Command{
		Use:   "add-tokenizer",
		Short: "Merge a new sub-tokenizer into the vocabulary",
		RunE: func(_ *cobra.Command, _ []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}
			if name == "" || vocabPath == "" {
				return fmt.Errorf("--name and --vocab are required")
			}

			v, err := modular.Load(dir)
			if err != nil {
				return err
			}

			local, err := vocab.Load(name, tokenizerID, vocabPath)
			if err != nil {
				return err
			}
			tok, err := subtok.Open(local, filepath.Dir(vocabPath))
			if err != nil {
				return err
			}

			nv, err := v.AddSubTokenizer(modular.Entry{
				Local:     local,
				Tokenizer: tok,
				MaxLen:    maxLen,
			})
			if err != nil {
				return err
			}
			if err := nv.Save(dir); err != nil {
				return err
			}

			slog.Info("added sub-tokenizer",
				"name", name,
				"tokenizer_id", tokenizerID,
				"vocab_size", nv.VocabSize(),
				"max_id", nv.MaxID())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")
	cmd.Flags().StringVar(&name, "name", "", "New sub-tokenizer name")
	cmd.Flags().IntVar(&tokenizerID, "id", 0, "New sub-tokenizer id")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Path to the source vocabulary blob")
	cmd.Flags().IntVar(&maxLen, "tokenizer-max-len", 0, "Per-tokenizer encoding cap (0 = none)")

	return cmd
}

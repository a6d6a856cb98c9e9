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

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Allocate the unified ID space and save it",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := activeCfg
			if len(cfg.Tokenizers) == 0 {
				return fmt.Errorf("no tokenizers configured; list them under 'tokenizers' in the config file")
			}

			capacity, err := cfg.Capacity()
			if err != nil {
				return err
			}

			entries := make([]modular.Entry, 0, len(cfg.Tokenizers))
			for _, spec := range cfg.Tokenizers {
				local, err := vocab.Load(spec.Name, spec.TokenizerID, spec.SourceVocab)
				if err != nil {
					return err
				}

				tok, err := subtok.Open(local, filepath.Dir(spec.SourceVocab))
				if err != nil {
					return err
				}

				entries = append(entries, modular.Entry{
					Local:     local,
					Tokenizer: tok,
					MaxLen:    spec.MaxLen,
				})
				slog.Debug("loaded source vocabulary",
					"name", spec.Name,
					"tokenizer_id", spec.TokenizerID,
					"special", local.NumSpecial(),
					"regular", local.NumRegular())
			}

			v, err := modular.Build(entries, capacity)
			if err != nil {
				return err
			}

			if cfg.MaxLen > 0 {
				if _, ok := v.AddedVocab()[cfg.PadToken]; cfg.PadToken != "" && ok {
					if v, err = v.WithPadding(cfg.PadToken, cfg.MaxLen); err != nil {
						return err
					}
				} else {
					if cfg.PadToken != "" {
						slog.Warn("pad token not in merged special table; padding disabled", "pad_token", cfg.PadToken)
					}
					if v, err = v.WithTruncation(cfg.MaxLen); err != nil {
						return err
					}
				}
			}

			if err := v.Save(cfg.Out); err != nil {
				return err
			}

			slog.Info("built modular vocabulary",
				"out", cfg.Out,
				"capacity", capacity.String(),
				"tokenizers", len(cfg.Tokenizers),
				"vocab_size", v.VocabSize(),
				"max_id", v.MaxID())
			return nil
		},
	}
}

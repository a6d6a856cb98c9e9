package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/modtok/internal/modular"
)

func newInfoCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a saved vocabulary",
		RunE: func(_ *cobra.Command, _ []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}

			v, err := modular.Load(dir)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "capacity:    %s\n", v.Capacity())
			fmt.Fprintf(os.Stdout, "vocab size:  %d\n", v.VocabSize())
			fmt.Fprintf(os.Stdout, "max id:      %d\n", v.MaxID())
			fmt.Fprintf(os.Stdout, "specials:    %d\n", len(v.SpecialTokens()))
			for _, name := range v.TokenizerNames() {
				n, err := v.NumRegular(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "tokenizer %-12s %d regular tokens\n", name+":", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")

	return cmd
}

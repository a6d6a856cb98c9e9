package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/modtok/internal/modular"
)

func newEncodeCmd() *cobra.Command {
	var (
		dir    string
		maxLen int
	)

	cmd := &cobra.Command{
		Use:   "encode INPUT",
		Short: "Encode a tagged input string to global IDs",
		Long: `Encode a tagged input string to global IDs.

Every span of text must be preceded by a sub-tokenizer hint, e.g.:

  modtok encode '<@TOKENIZER-TYPE=AA>MKTAYIA<@TOKENIZER-TYPE=SMILES>c1ccccc1'`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}

			v, err := modular.Load(dir)
			if err != nil {
				return err
			}

			inputs, err := modular.SplitTagged(args[0])
			if err != nil {
				return err
			}

			ids, err := v.EncodeList(inputs, modular.EncodeOptions{MaxLen: maxLen})
			if err != nil {
				return err
			}

			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = fmt.Sprintf("%d", id)
			}
			fmt.Fprintln(os.Stdout, strings.Join(parts, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")
	cmd.Flags().IntVar(&maxLen, "encode-max-len", 0, "Override the configured encoding length for this call")

	return cmd
}

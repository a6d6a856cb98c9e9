package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/modtok/internal/modular"
)

func newDecodeCmd() *cobra.Command {
	var (
		dir         string
		skipSpecial bool
	)

	cmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Decode global IDs back to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}

			v, err := modular.Load(dir)
			if err != nil {
				return err
			}

			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("argument %q is not a token id: %w", arg, err)
				}
				ids[i] = id
			}

			fmt.Fprintln(os.Stdout, v.Decode(ids, skipSpecial))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")
	cmd.Flags().BoolVar(&skipSpecial, "skip-special", false, "Drop special tokens from the output")

	return cmd
}

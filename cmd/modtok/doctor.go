package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/modtok/internal/modular"
)

// passMark and failMark are the prefix symbols printed per check.
const (
	passMark = "✓"
	failMark = "✗"
)

func newDoctorCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify the consistency invariants of a saved vocabulary",
		RunE: func(_ *cobra.Command, _ []string) error {
			if dir == "" {
				dir = activeCfg.Out
			}

			v, err := modular.LoadUnverified(dir)
			if err != nil {
				return err
			}

			violations, err := v.Diagnose()
			if err != nil {
				return err
			}

			byKind := map[modular.ViolationKind][]modular.Violation{}
			for _, viol := range violations {
				byKind[viol.Kind] = append(byKind[viol.Kind], viol)
			}

			checks := []struct {
				kind  modular.ViolationKind
				label string
			}{
				{modular.SpecialMismatch, "special token consistency"},
				{modular.SpecialRegularCollision, "special/regular disjointness"},
				{modular.CrossTokenizerCollision, "cross-tokenizer disjointness"},
			}
			for _, c := range checks {
				found := byKind[c.kind]
				if len(found) == 0 {
					fmt.Fprintf(os.Stdout, "%s %s\n", passMark, c.label)
					continue
				}
				fmt.Fprintf(os.Stdout, "%s %s: %d violation(s)\n", failMark, c.label, len(found))
				for _, viol := range found {
					fmt.Fprintf(os.Stdout, "    %s\n", viol)
				}
			}

			if len(violations) > 0 {
				return fmt.Errorf("%d violation(s) in %s", len(violations), dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Saved vocabulary directory (defaults to --out)")

	return cmd
}

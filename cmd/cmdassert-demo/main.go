// Command cmdassert-demo is a small demonstration CLI: it runs a handful of
// canned commands through the cmdassert library's builder and prints the
// aggregated pass/fail verdict for each. It plays the same role the
// teacher's multi-process TTY demo did, updated to show off assertions
// instead of raw concurrent output rendering.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cmdassert-demo",
		Short: "Runs a handful of example commands through cmdassert and prints the verdicts",
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())
	return root
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every demo scenario and print its verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := []struct {
				name string
				fn   func() error
			}{
				{"echo", runEchoScenario},
				{"timeout", runTimeoutScenario},
				{"greet-server", runGreetServerScenario},
			}

			failed := 0
			for _, s := range scenarios {
				if err := s.fn(); err != nil {
					failed++
					fmt.Printf("[FAIL] %s: %v\n", s.name, err)
					continue
				}
				fmt.Printf("[PASS] %s\n", s.name)
			}
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
}

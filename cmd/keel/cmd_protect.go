package main

import (
	"fmt"

	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckProtectionCmd() *cobra.Command {
	var rulesPath string
	var forcePush bool
	var deletion bool
	var viaPR bool
	var approvals int
	var passedChecks []string

	cmd := &cobra.Command{
		Use:   "check-protection <branch>",
		Short: "Evaluate a proposed branch update against protection rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rulesPath == "" {
				return fmt.Errorf("a rules file is required (--rules)")
			}
			rules, err := repo.LoadProtectionRules(rulesPath)
			if err != nil {
				return err
			}

			violations := repo.EvaluateProtection(rules, args[0], repo.RefChange{
				ForcePush:    forcePush,
				Delete:       deletion,
				ViaPR:        viaPR,
				Approvals:    approvals,
				PassedChecks: passedChecks,
			})

			out := cmd.OutOrStdout()
			if len(violations) == 0 {
				fmt.Fprintf(out, "update to %s is allowed\n", args[0])
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(out, "  %s\n", v)
			}
			return fmt.Errorf("update to %s violates %d rule(s)", args[0], len(violations))
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "TOML file with [[rule]] tables")
	cmd.Flags().BoolVar(&forcePush, "force-push", false, "the update is a non-fast-forward push")
	cmd.Flags().BoolVar(&deletion, "delete", false, "the update deletes the branch")
	cmd.Flags().BoolVar(&viaPR, "via-pr", false, "the update arrives through a pull request")
	cmd.Flags().IntVar(&approvals, "approvals", 0, "number of approvals the change carries")
	cmd.Flags().StringSliceVar(&passedChecks, "passed-check", nil, "status check that has passed (repeatable)")

	return cmd
}

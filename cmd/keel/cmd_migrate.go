package main

import (
	"fmt"

	"github.com/keelvcs/keel/pkg/gitmigrate"
	"github.com/spf13/cobra"
)

func newMigrateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-check <git-dir>",
		Short: "Inspect a Git repository before migrating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gitDir := args[0]
			out := cmd.OutOrStdout()

			ok, issues := gitmigrate.CanMigrate(gitDir)
			if !ok {
				fmt.Fprintf(out, "%s cannot be migrated:\n", gitDir)
				for _, issue := range issues {
					fmt.Fprintf(out, "  %s\n", issue)
				}
				return fmt.Errorf("repository check failed")
			}

			stats, err := gitmigrate.Stats(gitDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "objects:  %d\n", stats.ObjectCount)
			fmt.Fprintf(out, "branches: %d\n", stats.Branches)
			fmt.Fprintf(out, "tags:     %d\n", stats.Tags)
			if stats.HasPackFiles {
				fmt.Fprintln(out, "packs:    yes")
			}
			fmt.Fprintln(out, "ready to migrate")
			return nil
		},
	}
}

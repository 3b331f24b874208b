package main

import (
	"fmt"
	"time"

	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			start, err := r.ResolveRef(rev)
			if err != nil {
				return err
			}

			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no commits yet")
				return nil
			}

			branch, _ := r.CurrentBranch()
			headHash, headErr := r.ResolveRef("HEAD")

			out := cmd.OutOrStdout()
			for _, entry := range entries {
				decoration := ""
				if headErr == nil && entry.Hash == headHash {
					if branch != "" {
						decoration = " (HEAD -> " + branch + ")"
					} else {
						decoration = " (HEAD)"
					}
				}

				c := entry.Commit
				if oneline {
					fmt.Fprintf(out, "%s%s %s\n", entry.Hash.Short(), decoration, firstLine(c.Message))
					continue
				}
				fmt.Fprintf(out, "commit %s%s\n", entry.Hash, decoration)
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Author.When, 0).UTC().Format("2006-01-02 15:04:05"))
				fmt.Fprintln(out)
				fmt.Fprintf(out, "    %s\n", firstLine(c.Message))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of commits to show")

	return cmd
}

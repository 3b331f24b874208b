package main

import (
	"fmt"
	"time"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [revision]",
		Short: "Show a commit with the files it changed",
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
			h, err := r.ResolveRef(rev)
			if err != nil {
				return err
			}
			c, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "commit %s\n", h)
			for _, p := range c.Parents {
				fmt.Fprintf(out, "parent %s\n", p)
			}
			fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
			fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Author.When, 0).UTC().Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "    %s\n", firstLine(c.Message))
			fmt.Fprintln(out)

			// Changed files against the first parent; everything for a
			// root commit.
			var parent object.Hash
			if len(c.Parents) > 0 {
				parent = c.Parents[0]
			}
			changes, err := r.DiffCommits(parent, h)
			if err != nil {
				return err
			}
			for _, change := range changes {
				fmt.Fprintf(out, "%s  %s\n", change.Kind, change.Path)
			}
			return nil
		},
	}
	return cmd
}

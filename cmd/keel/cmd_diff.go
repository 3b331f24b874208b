package main

import (
	"fmt"

	"github.com/keelvcs/keel/pkg/diff"
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var stat bool
	var colored bool

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show changes between two revisions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			oldHash, err := r.ResolveRef(args[0])
			if err != nil {
				return err
			}
			newHash, err := r.ResolveRef(args[1])
			if err != nil {
				return err
			}

			changes, err := r.DiffCommits(oldHash, newHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stat {
				entries := make([]diff.StatEntry, 0, len(changes))
				for _, change := range changes {
					oldData, newData, err := changeSides(r, change)
					if err != nil {
						return err
					}
					entry := diff.StatEntry{Path: change.Path}
					if diff.IsBinary(oldData) || diff.IsBinary(newData) {
						entry.Binary = true
					} else {
						entry.Stats = diff.Stat(diff.Lines(oldData, newData))
					}
					entries = append(entries, entry)
				}
				fmt.Fprint(out, diff.FormatStat(entries))
				return nil
			}

			for _, change := range changes {
				oldData, newData, err := changeSides(r, change)
				if err != nil {
					return err
				}
				if diff.IsBinary(oldData) || diff.IsBinary(newData) {
					fmt.Fprintf(out, "Binary files a/%s and b/%s differ\n", change.Path, change.Path)
					continue
				}
				result := diff.Compare(oldData, newData)
				if colored {
					fmt.Fprint(out, diff.FormatColored("a/"+change.Path, "b/"+change.Path, result, diff.DefaultContext))
				} else {
					fmt.Fprint(out, diff.FormatUnified("a/"+change.Path, "b/"+change.Path, result, diff.DefaultContext))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stat, "stat", false, "show a diffstat instead of patches")
	cmd.Flags().BoolVar(&colored, "color", false, "colorize added and removed lines")

	return cmd
}

// changeSides loads the blob content on each side of a tree change. An
// absent side reads as empty.
func changeSides(r *repo.Repo, change repo.TreeChange) (oldData, newData []byte, err error) {
	if change.OldHash != "" {
		oldData, err = r.Store.ReadBlobData(change.OldHash)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s@old: %w", change.Path, err)
		}
	}
	if change.NewHash != "" {
		newData, err = r.Store.ReadBlobData(change.NewHash)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s@new: %w", change.Path, err)
		}
	}
	return oldData, newData, nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	var message string
	var author string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the working tree as a new commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("snapshot message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ident, err := resolveIdent(author)
			if err != nil {
				return err
			}

			h, err := r.Snapshot(message, ident)
			if err != nil {
				return err
			}

			branch := "HEAD"
			if name, err := r.CurrentBranch(); err == nil {
				branch = name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, h.Short(), firstLine(message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "snapshot message")
	cmd.Flags().StringVar(&author, "author", "", `override author ("Name <email>", default: $USER)`)

	return cmd
}

// resolveIdent builds the author identity from a flag value or the
// environment. Timestamp and timezone are filled in at commit time.
func resolveIdent(author string) (object.Ident, error) {
	if strings.TrimSpace(author) != "" {
		return object.ParseIdent(author)
	}

	name := os.Getenv("KEEL_AUTHOR_NAME")
	if name == "" {
		name = os.Getenv("USER")
	}
	email := os.Getenv("KEEL_AUTHOR_EMAIL")
	return object.Ident{Name: name, Email: email}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package main

import (
	"fmt"

	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var annotate bool
	var message string
	var sign bool
	var keyPath string
	var deleteTag string
	var force bool

	cmd := &cobra.Command{
		Use:   "tag [name] [revision]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if deleteTag != "" {
				if err := r.DeleteTag(deleteTag); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted tag '%s'\n", deleteTag)
				return nil
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range tags {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			name := args[0]
			rev := "HEAD"
			if len(args) == 2 {
				rev = args[1]
			}
			target, err := r.ResolveRef(rev)
			if err != nil {
				return fmt.Errorf("cannot resolve %s: %w", rev, err)
			}

			if !annotate && !sign {
				return r.CreateTag(name, target, force)
			}

			if annotate && message == "" {
				return fmt.Errorf("annotated tags need a message (-m)")
			}

			var signer repo.TagSigner
			if sign {
				var resolvedKey string
				signer, resolvedKey, err = newSSHTagSigner(keyPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "signing with %s\n", resolvedKey)
			}

			tagger, err := resolveIdent("")
			if err != nil {
				return err
			}
			h, err := r.CreateAnnotatedTag(name, target, tagger, message, signer, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tag '%s' -> %s\n", name, h.Short())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "tag message")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the tag with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key path (default: ~/.ssh/id_*)")
	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")

	return cmd
}

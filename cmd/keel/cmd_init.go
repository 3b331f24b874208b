package main

import (
	"context"
	"fmt"

	"github.com/keelvcs/keel/pkg/gitmigrate"
	"github.com/keelvcs/keel/pkg/object"
	"github.com/keelvcs/keel/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var hashName string
	var chunkThreshold int64
	var fromGit string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository, or migrate one from Git",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			algo, err := object.ParseAlgorithm(hashName)
			if err != nil {
				return err
			}

			if fromGit != "" {
				return runMigration(cmd, fromGit, path, algo, chunkThreshold)
			}

			r, err := repo.Init(path, repo.Options{
				Algorithm:      algo,
				ChunkThreshold: chunkThreshold,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty repository in %s (%s)\n", r.KeelDir, algo)
			return nil
		},
	}

	cmd.Flags().StringVar(&hashName, "hash", "sha256", "object hash algorithm (sha1 or sha256)")
	cmd.Flags().Int64Var(&chunkThreshold, "chunk-threshold", 0, "chunk blobs larger than this many bytes (0 = default)")
	cmd.Flags().StringVar(&fromGit, "from-git", "", "migrate history from the given .git directory")

	return cmd
}

func runMigration(cmd *cobra.Command, gitDir, path string, algo object.Algorithm, chunkThreshold int64) error {
	out := cmd.OutOrStdout()

	if ok, issues := gitmigrate.CanMigrate(gitDir); !ok {
		for _, issue := range issues {
			fmt.Fprintf(out, "  %s\n", issue)
		}
		return fmt.Errorf("%s is not a migratable git repository", gitDir)
	}

	var lastPhase gitmigrate.Phase
	result, err := gitmigrate.Migrate(cmd.Context(), gitmigrate.Options{
		GitDir:         gitDir,
		TargetDir:      path,
		Algorithm:      algo,
		ChunkThreshold: chunkThreshold,
		OnProgress: func(p gitmigrate.Progress) {
			if p.Phase != lastPhase {
				fmt.Fprintf(out, "%s...\n", p.Phase)
				lastPhase = p.Phase
			}
		},
	})
	if err != nil {
		if err == context.Canceled {
			return fmt.Errorf("migration canceled")
		}
		return err
	}

	fmt.Fprintf(out, "migrated %d commits, %d trees, %d blobs, %d tags\n",
		result.Commits, result.Trees, result.Blobs, result.Tags)
	fmt.Fprintf(out, "carried %d branches and %d tag refs\n", result.Branches, result.TagRefs)
	for _, objErr := range result.Errors {
		fmt.Fprintf(out, "warning: %s\n", objErr.Error())
	}
	return nil
}

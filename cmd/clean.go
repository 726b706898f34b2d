package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanDirFlag string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove checkpoint artifacts",
	Long: `Remove every checkpoint in the checkpoint directory.

Checkpoints held by a session that is still recording are left in place,
so clean is safe to run while slidecast records elsewhere.

Examples:
  slidecast clean
  slidecast clean --dir ~/talks/.backup`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	cleanCmd.Flags().StringVar(&cleanDirFlag, "dir", "", "Checkpoint directory (defaults to the configured one)")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	rt, err := openStore(cmd, cleanDirFlag)
	if err != nil {
		return err
	}
	store := rt.store
	before, err := store.Labels()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if err := store.Clean(); err != nil {
		return err
	}
	after, err := store.Labels()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	status(cmd.ErrOrStderr(), "removed %d checkpoints from %s", len(before)-len(after), store.Dir())
	if len(after) > 0 {
		status(cmd.ErrOrStderr(), "%d checkpoints in use were kept", len(after))
	}
	return nil
}

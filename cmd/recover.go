package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/recording"
)

var (
	recoverDirFlag    string
	recoverOutputFlag string
	recoverLabelFlag  string
	recoverKeepFlag   bool
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Rebuild a recording from a checkpoint",
	Long: `Rebuild an interrupted recording from its checkpoint.

Without --label the newest recoverable checkpoint that no live session holds
is used. The result is identical to what the session would have written had
it been stopped normally at the moment of the last checkpoint. After the
recording is written all checkpoints are removed unless --keep is given.

Examples:
  slidecast recover --output talk.scr
  slidecast recover --label 2026-03-14_09-26 --output talk.scr --keep`,
	Args: cobra.NoArgs,
	RunE: runRecover,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	recoverCmd.Flags().StringVar(&recoverDirFlag, "dir", "", "Checkpoint directory (defaults to the configured one)")
	recoverCmd.Flags().StringVarP(&recoverOutputFlag, "output", "o", "", "Output recording file path (required)")
	recoverCmd.Flags().StringVar(&recoverLabelFlag, "label", "", "Checkpoint label to recover (defaults to the newest)")
	recoverCmd.Flags().BoolVar(&recoverKeepFlag, "keep", false, "Keep checkpoints after writing the recording")
	_ = recoverCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, _ []string) error {
	if recoverOutputFlag == "" {
		return errors.New("--output is required")
	}
	rt, err := openStore(cmd, recoverDirFlag)
	if err != nil {
		return err
	}
	store := rt.store

	label := recoverLabelFlag
	if label == "" {
		var ok bool
		label, ok, err = store.DiscoverLatestCheckpoint()
		if err != nil {
			return fmt.Errorf("failed to discover checkpoints: %w", err)
		}
		if !ok {
			return fmt.Errorf("no recoverable checkpoint in %s", store.Dir())
		}
	}

	rec, err := store.Materialize(label)
	if err != nil {
		return err
	}
	if err := recording.WriteFile(recoverOutputFlag, rec); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}

	w := cmd.ErrOrStderr()
	status(w, "recovered %s to %s (%d pages, %s)", label, recoverOutputFlag, len(rec.Pages), rec.Header.Duration)
	if n := len(rec.Dropped); n > 0 {
		status(w, "warning: %d damaged action frames were skipped", n)
	}

	if recoverKeepFlag {
		return nil
	}
	if err := store.Clean(); err != nil {
		rt.logger.Warn("checkpoint cleanup failed", "dir", store.Dir(), "error", err)
	}
	return nil
}

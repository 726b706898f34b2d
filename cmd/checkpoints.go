package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/checkpoint"
)

var checkpointsDirFlag string

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "List checkpoints left by recording sessions",
	Long: `List the checkpoints in the checkpoint directory, newest first.

A checkpoint is recoverable when its audio track and at least one of the
document or event log are present. Checkpoints of a session that is still
recording are shown as "in use".

Examples:
  slidecast checkpoints
  slidecast checkpoints --dir ~/talks/.backup`,
	Args: cobra.NoArgs,
	RunE: runCheckpoints,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	checkpointsCmd.Flags().StringVar(&checkpointsDirFlag, "dir", "", "Checkpoint directory (defaults to the configured one)")
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpoints(cmd *cobra.Command, _ []string) error {
	rt, err := openStore(cmd, checkpointsDirFlag)
	if err != nil {
		return err
	}
	store := rt.store
	labels, err := store.Labels()
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		status(cmd.ErrOrStderr(), "no checkpoints in %s", store.Dir())
		return nil
	}

	rows := make([][]string, 0, len(labels))
	for _, a := range labels {
		rows = append(rows, []string{
			a.Label,
			humanize.Time(a.Time()),
			present(a.Document),
			present(a.Events),
			present(a.Audio),
			humanize.Bytes(uint64(a.Size)),
			checkpointStatus(a),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Label", "Started", "Document", "Events", "Audio", "Size", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func present(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

func checkpointStatus(a checkpoint.Artifacts) string {
	switch {
	case a.Locked:
		return "in use"
	case a.Recoverable():
		return "recoverable"
	default:
		return "incomplete"
	}
}

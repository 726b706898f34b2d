package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/recording"
	"github.com/slidecast/slidecast/internal/report"
)

var inspectFormatFlag string

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording.scr>",
	Short: "Show the contents of a recording",
	Long: `Read a recording container, verify its checksum and list its pages.

Each page visit is shown with its commit time, the static actions that
restore earlier annotations, and the live actions recorded during the visit.

Formats:
  text   Human-readable listing (default, colored on a terminal)
  json   Compact JSON (pipe to jq for formatting)
  yaml   YAML document

Examples:
  slidecast inspect talk.scr
  slidecast inspect talk.scr --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	inspectCmd.Flags().StringVar(&inspectFormatFlag, "format", "text", "Output format: text, json, or yaml")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(inspectFormatFlag)
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q: valid values are text, json, yaml", inspectFormatFlag)
	}

	rec, err := recording.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	r := report.Build(args[0], rec)

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return report.FormatJSON(out, r)
	case "yaml":
		return report.FormatYAML(out, r)
	default:
		color := report.ColorOff
		if f, ok := out.(*os.File); ok {
			color = report.ResolveColor(f)
		}
		return report.FormatText(out, r, color)
	}
}

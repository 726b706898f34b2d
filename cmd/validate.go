package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/script"
)

// ValidationResult represents the validation outcome for a single script file.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// errInvalidScripts is returned when at least one file failed validation.
type errInvalidScripts struct {
	invalid, total int
}

func (e *errInvalidScripts) Error() string {
	return fmt.Sprintf("%d of %d scripts are invalid", e.invalid, e.total)
}

var (
	validateFormatFlag string
	validateAudioFlag  string
)

var validateCmd = &cobra.Command{
	Use:   "validate <script>...",
	Short: "Validate presentation scripts without recording",
	Long: `Validate one or more presentation script YAML files without recording.

Checks schema compliance (known fields, one kind per step, page numbers) and
timeline rules (steps in order, the first step selects a page, suspend and
resume alternate). With --audio, steps are also checked against the length
of the audio track they will be played with.

Does not create any files or checkpoints.

Formats:
  text   Human-readable output to stderr (default)
  json   Structured JSON to stdout

Examples:
  slidecast validate talk.yaml
  slidecast validate --audio talk.wav talk.yaml
  slidecast validate --format json a.yaml b.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	validateCmd.Flags().StringVar(&validateFormatFlag, "format", "text",
		"Output format: text, json")
	validateCmd.Flags().StringVarP(&validateAudioFlag, "audio", "a", "",
		"Audio track the scripts will be played with")
	rootCmd.AddCommand(validateCmd)
}

// runValidate validates each file independently and reports all results
// before returning an error if any of them failed.
func runValidate(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(validateFormatFlag)
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: valid values are text, json", validateFormatFlag)
	}

	var track *audio.Info
	if validateAudioFlag != "" {
		info, err := audio.ReadInfo(validateAudioFlag)
		if err != nil {
			return fmt.Errorf("failed to read audio track: %w", err)
		}
		track = &info
	}

	results := make([]ValidationResult, 0, len(args))
	invalid := 0
	for _, path := range args {
		result := validateFile(path, track)
		results = append(results, result)
		if !result.Valid {
			invalid++
		}
	}

	switch format {
	case "text":
		formatValidateText(cmd.ErrOrStderr(), results)
	case "json":
		if err := formatValidateJSON(cmd.OutOrStdout(), results); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
	}

	if invalid > 0 {
		return &errInvalidScripts{invalid: invalid, total: len(results)}
	}
	return nil
}

// validateFile loads one script with script.LoadFile, which runs strict
// parsing and all timeline checks. When track is set, steps scheduled past
// the end of the audio are reported as well.
func validateFile(path string, track *audio.Info) ValidationResult {
	scr, err := script.LoadFile(path)
	if err != nil {
		return ValidationResult{File: path, Errors: []string{err.Error()}}
	}

	var errs []string
	if track != nil {
		for i, step := range scr.Steps {
			if time.Duration(step.At) > track.Duration {
				errs = append(errs, fmt.Sprintf("step %d: at %s is past the end of the audio track (%s)",
					i, step.At, track.Duration))
			}
		}
	}
	if len(errs) > 0 {
		return ValidationResult{File: path, Errors: errs}
	}
	return ValidationResult{File: path, Valid: true, Errors: []string{}}
}

func formatValidateText(w io.Writer, results []ValidationResult) {
	validCount := 0
	for _, r := range results {
		if r.Valid {
			validCount++
			fmt.Fprintf(w, "✓ %s: valid\n", r.File)
			continue
		}
		fmt.Fprintf(w, "✗ %s:\n", r.File)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	if len(results) > 1 {
		fmt.Fprintf(w, "\nResult: %d/%d files valid\n", validCount, len(results))
	}
}

func formatValidateJSON(w io.Writer, results []ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

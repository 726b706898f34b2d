package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/audio"
	"github.com/slidecast/slidecast/internal/checkpoint"
	"github.com/slidecast/slidecast/internal/events"
	"github.com/slidecast/slidecast/internal/idle"
	"github.com/slidecast/slidecast/internal/script"
	"github.com/slidecast/slidecast/internal/session"
)

var (
	recordScriptFlag   string
	recordAudioFlag    string
	recordDocumentFlag string
	recordOutputFlag   string
	recordDirFlag      string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Render a recording from a script and an audio track",
	Long: `Record plays a presentation script against a prerecorded WAV track
through a full recording session and writes the resulting recording.

The script lists timed page changes, annotation actions and pauses. Time
follows the audio: page visits shorter than the configured idle timeout are
not recorded, and audio during a pause is left out, exactly as in a live
session. The session checkpoints as it goes, so an interrupted render can be
rebuilt with 'slidecast recover'.

Examples:
  # Render a talk
  slidecast record --script talk.yaml --audio talk.wav --output talk.scr

  # Embed the presented document
  slidecast record --script talk.yaml --audio talk.wav --document deck.pdf -o talk.scr`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	recordCmd.Flags().StringVarP(&recordScriptFlag, "script", "s", "", "Presentation script YAML file (required)")
	recordCmd.Flags().StringVarP(&recordAudioFlag, "audio", "a", "", "PCM WAV audio track (required)")
	recordCmd.Flags().StringVarP(&recordDocumentFlag, "document", "d", "", "Presented document to embed")
	recordCmd.Flags().StringVarP(&recordOutputFlag, "output", "o", "", "Output recording file path (required)")
	recordCmd.Flags().StringVar(&recordDirFlag, "dir", "", "Checkpoint directory (defaults to the configured one)")
	_ = recordCmd.MarkFlagRequired("script")
	_ = recordCmd.MarkFlagRequired("audio")
	_ = recordCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, _ []string) error {
	switch {
	case recordScriptFlag == "":
		return errors.New("--script is required")
	case recordAudioFlag == "":
		return errors.New("--audio is required")
	case recordOutputFlag == "":
		return errors.New("--output is required")
	}
	if dir := filepath.Dir(recordOutputFlag); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}

	scr, err := script.LoadFile(recordScriptFlag)
	if err != nil {
		return err
	}
	doc, err := loadDocument(recordDocumentFlag)
	if err != nil {
		return err
	}
	dev, err := audio.OpenFileDevice(recordAudioFlag)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	env, err := openStore(cmd, recordDirFlag, checkpoint.WithFormat(dev.Format()))
	if err != nil {
		return err
	}

	clock := idle.NewManualClock(time.Now())
	bus := events.NewBus()
	sess, err := session.New(session.Options{
		Store:       env.store,
		Device:      dev,
		Document:    doc,
		Events:      bus,
		IdleTimeout: env.cfg.IdleTimeout(),
		Clock:       clock,
		Logger:      env.logger,
		Format:      dev.Format(),
	})
	if err != nil {
		return fmt.Errorf("failed to create recording session: %w", err)
	}
	// Destroy after a failure keeps the checkpoint for recover.
	defer func() { _ = sess.Destroy() }()

	if err := sess.Initialize(); err != nil {
		return err
	}
	if err := sess.Start(); err != nil {
		return err
	}
	player := &script.Player{
		Input:   dev,
		Format:  dev.Format(),
		Clock:   clock,
		Events:  bus,
		Session: sess,
		Logger:  env.logger,
	}
	if err := player.Play(cmd.Context(), scr); err != nil {
		return fmt.Errorf("failed to play script: %w", err)
	}
	if err := sess.Stop(); err != nil {
		return err
	}
	pages := len(sess.Pages())
	if err := sess.WriteRecording(recordOutputFlag); err != nil {
		return err
	}

	status(cmd.ErrOrStderr(), "recorded %q to %s (%d pages, %s of audio input)",
		scr.Meta.Name, recordOutputFlag, pages, player.Position())
	return nil
}

// fileDocument is a document snapshot read once from disk.
type fileDocument struct {
	data []byte
}

func loadDocument(path string) (*fileDocument, error) {
	if path == "" {
		return &fileDocument{}, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return &fileDocument{data: data}, nil
}

func (d *fileDocument) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(d.data).WriteTo(w)
}

func (d *fileDocument) Close() error {
	return nil
}

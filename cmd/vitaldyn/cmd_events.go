package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vitaldyn/internal/models"
	"github.com/nvandessel/vitaldyn/internal/store"
)

const (
	formatJSONL = "jsonl"
	formatArrow = "arrow"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with stored event logs",
	}
	cmd.AddCommand(newEventsExportCmd())
	return cmd
}

func newEventsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a stored run's event log",
		Long: `Export the event log of a stored run as JSONL or an Arrow IPC stream.

The run may be given by a unique prefix of its ID.

Examples:
  vitaldyn events export 3f2a --out events.jsonl
  vitaldyn events export 3f2a --format arrow --out events.arrow
  vitaldyn events export 3f2a | jq 'select(.type == "death")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")

			format, err := exportFormat(format, out)
			if err != nil {
				return err
			}

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			events, err := s.LoadEvents(ctx, run.ID)
			if err != nil {
				return err
			}

			if out == "" {
				return writeEvents(cmd.OutOrStdout(), format, events)
			}
			if err := exportEvents(out, format, events); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events of run %s to %s\n", len(events), run.ID, out)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.Flags().String("format", "", "jsonl or arrow (default from --out extension, else jsonl)")
	return cmd
}

// exportFormat resolves an explicit format or infers one from path.
func exportFormat(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case formatJSONL, formatArrow:
		return strings.ToLower(format), nil
	case "":
	default:
		return "", fmt.Errorf("unknown export format %q (valid: jsonl, arrow)", format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".feather", ".ipc":
		return formatArrow, nil
	}
	return formatJSONL, nil
}

func exportEvents(path, format string, events []models.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := writeEvents(f, format, events); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

func writeEvents(w io.Writer, format string, events []models.Event) error {
	if format == formatArrow {
		return store.WriteArrow(w, events)
	}
	return store.WriteJSONL(w, events)
}

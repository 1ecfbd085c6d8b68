package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vitaldyn/internal/config"
	"github.com/nvandessel/vitaldyn/internal/logging"
	"github.com/nvandessel/vitaldyn/internal/simulation"
	"github.com/nvandessel/vitaldyn/internal/store"
	"github.com/nvandessel/vitaldyn/internal/telemetry"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and validate its event log",
		Long: `Run the configured simulation, validate the event log against the rate
model and print the findings.

The run is stored when --db is given or store.path is configured. The
exit status is 1 when validation fails.

Examples:
  vitaldyn run                                   # Defaults: 4 years, fixed birth rate
  vitaldyn run --config scenario.yaml --seed 42  # Reproducible run
  vitaldyn run --days 365 --db runs.db           # Store the run
  vitaldyn run --export events.arrow             # Export the event log`,
		RunE: runSimulation,
	}

	cmd.Flags().Uint64("seed", 0, "Random seed (0 draws a random seed)")
	cmd.Flags().Int("days", 0, "Number of simulated days (overrides simulation.days)")
	cmd.Flags().String("name", "", "Run name recorded in the store")
	cmd.Flags().String("export", "", "Write the event log to this file")
	cmd.Flags().String("format", "", "Export format: jsonl or arrow (default from file extension)")
	return cmd
}

// runOutput is the --json rendering of a run.
type runOutput struct {
	RunID           string             `json:"run_id,omitempty"`
	Seed            uint64             `json:"seed"`
	Days            int                `json:"days"`
	Model           string             `json:"model"`
	Births          int                `json:"births"`
	Deaths          int                `json:"deaths"`
	Conceptions     int                `json:"conceptions"`
	FinalPopulation int                `json:"final_population"`
	OpenPregnancies int                `json:"open_pregnancies"`
	ElapsedMS       int64              `json:"elapsed_ms"`
	Passed          bool               `json:"passed"`
	Report          *validation.Report `json:"report"`
}

func runSimulation(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	name, _ := cmd.Flags().GetString("name")
	exportPath, _ := cmd.Flags().GetString("export")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if cmd.Flags().Changed("days") {
		cfg.Simulation.Days, _ = cmd.Flags().GetInt("days")
	}
	if exportPath != "" {
		if format, err = exportFormat(format, exportPath); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	shutdown, err := telemetry.Setup(ctx, telemetry.ServiceName, cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown(flushCtx)
	}()

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	opts := []simulation.Option{simulation.WithLogger(logger)}

	var s *store.SQLiteStore
	if db, _ := cmd.Flags().GetString("db"); db != "" || cfg.Store.Path != "" {
		path, err := dbPath(cmd, cfg)
		if err != nil {
			return err
		}
		s, err = store.NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()
		opts = append(opts, simulation.WithStore(s))
	}

	traceDir, err := traceDir(cfg, s)
	if err != nil {
		return err
	}
	tl := logging.NewTraceLogger(traceDir, cfg.Logging.Level)
	defer tl.Close()
	opts = append(opts, simulation.WithTraceLogger(tl))

	out, err := simulation.Execute(ctx, simulation.Scenario{Name: name, Config: cfg}, opts...)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := exportEvents(exportPath, format, out.Result.Log.Events()); err != nil {
			return err
		}
		logger.Info("event log exported", "path", exportPath, "format", format)
	}

	if jsonOut {
		res := out.Result
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(runOutput{
			RunID:           out.RunID,
			Seed:            res.Seed,
			Days:            res.Days,
			Model:           out.Model.Describe(),
			Births:          res.Births,
			Deaths:          res.Deaths,
			Conceptions:     res.Conceptions,
			FinalPopulation: res.FinalPopulation,
			OpenPregnancies: res.OpenPregnancies,
			ElapsedMS:       res.Elapsed.Milliseconds(),
			Passed:          out.Report.Passed(),
			Report:          out.Report,
		}); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
	} else {
		printOutcome(cmd, out)
	}

	if !out.Report.Passed() {
		return errValidationFailed
	}
	return nil
}

// traceDir picks where trace.jsonl goes: logging.dir, else next to the
// store, else ~/.vitaldyn.
func traceDir(cfg *config.Config, s *store.SQLiteStore) (string, error) {
	if cfg.Logging.Dir != "" {
		return cfg.Logging.Dir, nil
	}
	if s != nil {
		return filepath.Dir(s.Path()), nil
	}
	return store.GlobalDir()
}

func printOutcome(cmd *cobra.Command, out *simulation.Outcome) {
	w := cmd.OutOrStdout()
	res := out.Result
	if out.RunID != "" {
		fmt.Fprintf(w, "Run %s (seed %d)\n", out.RunID, res.Seed)
	} else {
		fmt.Fprintf(w, "Run (seed %d, not stored)\n", res.Seed)
	}
	fmt.Fprintf(w, "  model:       %s\n", out.Model.Describe())
	fmt.Fprintf(w, "  days:        %d\n", res.Days)
	fmt.Fprintf(w, "  births:      %d\n", res.Births)
	fmt.Fprintf(w, "  deaths:      %d\n", res.Deaths)
	fmt.Fprintf(w, "  conceptions: %d (%d still pregnant)\n", res.Conceptions, res.OpenPregnancies)
	fmt.Fprintf(w, "  population:  %d\n", res.FinalPopulation)
	fmt.Fprintf(w, "  elapsed:     %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprint(w, out.Report.Summary())
}

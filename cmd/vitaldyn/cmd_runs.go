package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/vitaldyn/internal/store"
	"github.com/nvandessel/vitaldyn/internal/validation"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
		Long: `List, show and delete runs stored in the SQLite database.

Runs may be given by a unique prefix of their ID.

Examples:
  vitaldyn runs list
  vitaldyn runs show 3f2a
  vitaldyn runs delete 3f2a`,
	}
	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				if runs == nil {
					runs = []store.RunRecord{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs stored.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tNAME\tDAYS\tBIRTHS\tDEATHS\tRESULT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					shortID(r.ID), r.CreatedAt.Local().Format(time.DateTime), r.Name,
					r.Days, r.Births, r.Deaths, verdict(r.Passed))
			}
			return tw.Flush()
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run and its findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

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
			findings, err := s.LoadFindings(ctx, run.ID)
			if err != nil {
				return err
			}
			report := &validation.Report{Findings: findings}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run":      run,
					"findings": findings,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %s\n", run.ID)
			if run.Name != "" {
				fmt.Fprintf(w, "  name:        %s\n", run.Name)
			}
			fmt.Fprintf(w, "  created:     %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "  seed:        %d\n", run.Seed)
			fmt.Fprintf(w, "  model:       %s\n", run.Model)
			fmt.Fprintf(w, "  days:        %d\n", run.Days)
			fmt.Fprintf(w, "  births:      %d\n", run.Births)
			fmt.Fprintf(w, "  deaths:      %d\n", run.Deaths)
			fmt.Fprintf(w, "  conceptions: %d\n", run.Conceptions)
			fmt.Fprintf(w, "  population:  %d\n", run.FinalPopulation)
			fmt.Fprintf(w, "  elapsed:     %v\n", run.Elapsed.Round(time.Millisecond))
			fmt.Fprintln(w)
			fmt.Fprint(w, report.Summary())
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run with its events and findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := s.DeleteRun(ctx, run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ID)
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func verdict(passed bool) string {
	if passed {
		return "passed"
	}
	return "FAILED"
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect research run history",
	Long:  "Commands for listing, viewing, summarizing, and pruning research runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if resultsOnly, _ := cmd.Flags().GetBool("results"); resultsOnly {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(model.Handoff{ProjectID: run.ProjectID, Packs: run.Packs})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

// -- runs cleanup --

var runsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete runs older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		n, err := st.DeleteRunsBefore(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "runs cleanup")
		}

		fmt.Printf("Deleted %d run(s) older than %s.\n", n, olderThan)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (pending, processing, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().Bool("results", false, "print only the results handoff (project ID and packs)")

	runsCleanupCmd.Flags().Duration("older-than", 7*24*time.Hour, "delete runs created before now minus this duration")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCleanupCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total          int
	Complete       int
	Failed         int
	Other          int
	ItemsTotal     int
	ItemsSucceeded int
	ItemsFailed    int
	AvgMS          float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalMS int64
	var msCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Other++
		}

		s.ItemsTotal += r.Total
		s.ItemsSucceeded += r.Succeeded
		s.ItemsFailed += r.Failed
		if r.ProcessingMS > 0 {
			totalMS += r.ProcessingMS
			msCount++
		}
	}

	if msCount > 0 {
		s.AvgMS = float64(totalMS) / float64(msCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROJECT\tSTATUS\tITEMS\tOK\tFAIL\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "-------\t------\t-----\t--\t----\t-------\t--------")

	for _, r := range runs {
		dur := "-"
		if r.ProcessingMS > 0 {
			dur = (time.Duration(r.ProcessingMS) * time.Millisecond).Round(time.Millisecond).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ProjectID),
			r.Status,
			r.Total,
			r.Succeeded,
			r.Failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Items researched:\t%d\n", s.ItemsTotal)
	_, _ = fmt.Fprintf(w, "  Succeeded:\t%d\n", s.ItemsSucceeded)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.ItemsFailed)
	if s.ItemsTotal > 0 {
		_, _ = fmt.Fprintf(w, "Success rate:\t%.1f%%\n", float64(s.ItemsSucceeded)/float64(s.ItemsTotal)*100)
	}
	if s.AvgMS > 0 {
		_, _ = fmt.Fprintf(w, "Avg processing:\t%.0fms\n", s.AvgMS)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

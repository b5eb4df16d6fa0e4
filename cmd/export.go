package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkmill/partners-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a run's research packs to a spreadsheet",
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
			return eris.Wrap(err, "export")
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("research-%s.xlsx", truncateID(run.ProjectID))
		}
		if !strings.HasSuffix(out, ".xlsx") {
			return eris.Errorf("unsupported export format: %s", out)
		}

		if err := export.PacksXLSX(out, run); err != nil {
			return eris.Wrap(err, "export")
		}

		fmt.Printf("Exported %d pack(s) to %s\n", len(run.Packs), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "output file path (default research-<project>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

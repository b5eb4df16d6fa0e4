package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/pkg/notion"
)

var publishCmd = &cobra.Command{
	Use:   "publish <project-id>",
	Short: "Publish a run's research packs to the Notion content database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Notion.Validate(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		publisher := notion.NewPublisher(notion.NewClient(cfg.Notion.Token), cfg.Notion.ContentDB)

		published, err := publisher.PublishRun(ctx, run)
		if err != nil {
			return eris.Wrap(err, "publish")
		}

		zap.L().Info("published run",
			zap.String("project", run.ProjectID),
			zap.Int("pages", published),
		)
		fmt.Printf("Published %d/%d pack(s) to Notion.\n", published, len(run.Packs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/selection"
)

var deeplinkCmd = &cobra.Command{
	Use:   "deeplink <url>...",
	Short: "Convert product URLs into tracked affiliate links",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := initCoupang()
		if err != nil {
			return err
		}

		links, err := client.DeepLink(ctx, args)
		if err != nil {
			return eris.Wrap(err, "deeplink")
		}

		if linksOnly, _ := cmd.Flags().GetBool("links-only"); linksOnly {
			items := make([]selection.Item, 0, len(links))
			for i := range links {
				items = append(items, selection.DeepLinkItem(&links[i]))
			}
			fmt.Println(selection.Links(items))
			return nil
		}

		formatDeepLinks(os.Stdout, links)
		return nil
	},
}

func formatDeepLinks(out *os.File, links []model.DeepLink) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORIGINAL\tSHORT\tLANDING")
	_, _ = fmt.Fprintln(w, "--------\t-----\t-------")
	for _, l := range links {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", l.OriginalURL, l.ShortenURL, l.LandingURL)
	}
	_ = w.Flush()
}

func init() {
	deeplinkCmd.Flags().Bool("links-only", false, "print one usable link per line")
	rootCmd.AddCommand(deeplinkCmd)
}

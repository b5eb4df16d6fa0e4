package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/catalog"
	"github.com/linkmill/partners-cli/internal/export"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search Coupang listings and group them by product",
	Long:  "Searches the Partners API for a keyword, groups seller/option listings into logical products, and prints the grouped view.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		keyword := strings.Join(args, " ")

		client, err := initCoupang()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		payload, err := client.Search(ctx, keyword, limit)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		listings := catalog.ParseListings(payload)
		for i := range listings {
			listings[i].Keyword = keyword
		}

		rocketOnly, _ := cmd.Flags().GetBool("rocket")
		listings = catalog.Filter(listings, catalog.FilterOptions{RocketOnly: rocketOnly})

		sortFlag, _ := cmd.Flags().GetString("sort")
		order, err := parseSort(sortFlag)
		if err != nil {
			return err
		}
		listings = catalog.Sort(listings, order)

		groups := catalog.Group(listings)
		zap.L().Info("search complete",
			zap.String("keyword", keyword),
			zap.Int("listings", len(listings)),
			zap.Int("groups", len(groups)),
		)

		if path, _ := cmd.Flags().GetString("export"); path != "" {
			flat := catalog.Flatten(groups)
			if strings.HasSuffix(path, ".csv") {
				err = export.ProductsCSV(path, flat)
			} else {
				err = export.ProductsXLSX(path, flat)
			}
			if err != nil {
				return err
			}
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		}

		if flat, _ := cmd.Flags().GetBool("flat"); flat {
			formatProducts(os.Stdout, catalog.Flatten(groups))
			return nil
		}

		formatGroups(os.Stdout, groups)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "max listings to fetch")
	searchCmd.Flags().Bool("rocket", false, "only rocket-delivery listings")
	searchCmd.Flags().String("sort", "none", "price sort order (asc, desc, none)")
	searchCmd.Flags().Bool("json", false, "print grouped products as JSON")
	searchCmd.Flags().Bool("flat", false, "print one annotated row per product instead of the grouped table")
	searchCmd.Flags().String("export", "", "write flattened listings to an .xlsx or .csv file")
	rootCmd.AddCommand(searchCmd)
}

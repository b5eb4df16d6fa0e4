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

var categoryCmd = &cobra.Command{
	Use:   "category <category-id>",
	Short: "Browse best products in a Coupang category",
	Long:  "Fetches best-product listings for a category. Price bounds apply here and only here; keyword search has no price filter.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		categoryID := args[0]

		client, err := initCoupang()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		payload, err := client.BestCategory(ctx, categoryID, limit)
		if err != nil {
			return eris.Wrap(err, "category")
		}

		listings := catalog.ParseListings(payload)

		rocketOnly, _ := cmd.Flags().GetBool("rocket")
		minPrice, _ := cmd.Flags().GetInt64("min-price")
		maxPrice, _ := cmd.Flags().GetInt64("max-price")
		listings = catalog.Filter(listings, catalog.FilterOptions{
			RocketOnly:     rocketOnly,
			PriceFiltering: true,
			MinPrice:       minPrice,
			MaxPrice:       maxPrice,
		})

		sortFlag, _ := cmd.Flags().GetString("sort")
		order, err := parseSort(sortFlag)
		if err != nil {
			return err
		}
		listings = catalog.Sort(listings, order)

		groups := catalog.Group(listings)
		zap.L().Info("category browse complete",
			zap.String("category_id", categoryID),
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

		formatGroups(os.Stdout, groups)
		return nil
	},
}

func init() {
	categoryCmd.Flags().Int("limit", 20, "max listings to fetch")
	categoryCmd.Flags().Bool("rocket", false, "only rocket-delivery listings")
	categoryCmd.Flags().Int64("min-price", 0, "minimum price in KRW (inclusive)")
	categoryCmd.Flags().Int64("max-price", 0, "maximum price in KRW (inclusive, 0 = unbounded)")
	categoryCmd.Flags().String("sort", "none", "price sort order (asc, desc, none)")
	categoryCmd.Flags().Bool("json", false, "print grouped products as JSON")
	categoryCmd.Flags().String("export", "", "write flattened listings to an .xlsx or .csv file")
	rootCmd.AddCommand(categoryCmd)
}

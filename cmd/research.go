package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/catalog"
	"github.com/linkmill/partners-cli/internal/model"
	"github.com/linkmill/partners-cli/internal/selection"
)

// cliNotifier prints research progress to the terminal.
type cliNotifier struct{}

func (cliNotifier) Progress(completed, total int) {
	fmt.Fprintf(os.Stderr, "리서치 진행 중... %d/%d\n", completed, total)
}

func (cliNotifier) Degraded(failures int) {
	fmt.Fprintf(os.Stderr, "일부 상품의 리서치에 실패했습니다 (%d건)\n", failures)
}

func (cliNotifier) Done(run *model.Run) {
	fmt.Fprintf(os.Stderr, "리서치 완료: 성공 %d건, 실패 %d건 (%.0f%%)\n",
		run.Succeeded, run.Failed, run.SuccessRate()*100)
}

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run batched AI research over selected products",
	Long: `Selects products from a keyword search, a category, or a selection
file, then researches them in fixed-size batches. One item's failure
never aborts the rest; the run always finalizes with whatever succeeded.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		items, err := collectItems(cmd)
		if err != nil {
			return err
		}

		sel, err := buildSelection(cmd, items)
		if err != nil {
			return err
		}

		chosen := selection.Resolve(sel, items)
		if err := selection.Guard(chosen); err != nil {
			return err
		}

		orch, err := initOrchestrator(cliNotifier{})
		if err != nil {
			return err
		}

		run, runErr := orch.Run(ctx, selection.Products(chosen))
		if run != nil {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveRun(ctx, run); err != nil {
				zap.L().Error("save run failed", zap.String("project_id", run.ProjectID), zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "research")
		}

		fmt.Printf("프로젝트 ID: %s\n", run.ProjectID)
		fmt.Printf("결과 보기: partners-cli runs show %s\n", run.ProjectID)
		for _, f := range run.Failures {
			fmt.Printf("실패: %s — %s\n", f.Item.Name, f.Error)
			if len(f.SuggestedQueries) > 0 {
				fmt.Printf("  추천 검색어: %s\n", strings.Join(f.SuggestedQueries, ", "))
			}
		}
		return nil
	},
}

// collectItems gathers candidate products from the flags: a keyword
// search, a category fetch, or a selection file's inline products.
func collectItems(cmd *cobra.Command) ([]selection.Item, error) {
	keyword, _ := cmd.Flags().GetString("keyword")
	categoryID, _ := cmd.Flags().GetString("category")
	selectFile, _ := cmd.Flags().GetString("select-file")
	limit, _ := cmd.Flags().GetInt("limit")

	var products []model.Product

	switch {
	case keyword != "":
		client, err := initCoupang()
		if err != nil {
			return nil, err
		}
		payload, err := client.Search(cmd.Context(), keyword, limit)
		if err != nil {
			return nil, eris.Wrap(err, "research: search")
		}
		products = catalog.ParseListings(payload)
		for i := range products {
			products[i].Keyword = keyword
		}
	case categoryID != "":
		client, err := initCoupang()
		if err != nil {
			return nil, err
		}
		payload, err := client.BestCategory(cmd.Context(), categoryID, limit)
		if err != nil {
			return nil, eris.Wrap(err, "research: category")
		}
		products = catalog.ParseListings(payload)
	}

	if selectFile != "" {
		f, err := selection.LoadFile(selectFile)
		if err != nil {
			return nil, err
		}
		products = append(products, f.InlineProducts()...)
	}

	if len(products) == 0 {
		return nil, eris.New("research: provide --keyword, --category, or --select-file with products")
	}

	// Research operates on the grouped view: one call per logical
	// product, not per seller listing.
	flat := catalog.Flatten(catalog.Group(products))

	items := make([]selection.Item, 0, len(flat))
	for i := range flat {
		items = append(items, selection.ProductItem(&flat[i]))
	}
	return items, nil
}

// buildSelection applies --all, --ids, and the selection file's ids.
func buildSelection(cmd *cobra.Command, items []selection.Item) (*selection.Set, error) {
	all, _ := cmd.Flags().GetBool("all")
	idsFlag, _ := cmd.Flags().GetString("ids")
	selectFile, _ := cmd.Flags().GetString("select-file")

	sel := selection.NewSet()

	if all {
		sel.ToggleAll(selection.AllIDs(items))
		return sel, nil
	}

	for _, id := range strings.Split(idsFlag, ",") {
		if id = strings.TrimSpace(id); id != "" {
			sel.Add(id)
		}
	}

	if selectFile != "" {
		f, err := selection.LoadFile(selectFile)
		if err != nil {
			return nil, err
		}
		for _, id := range f.IDs {
			sel.Add(id)
		}
		// Inline products select themselves.
		for _, p := range f.InlineProducts() {
			sel.Add(p.SelectionID())
		}
	}

	return sel, nil
}

func init() {
	researchCmd.Flags().String("keyword", "", "search keyword to source candidate products")
	researchCmd.Flags().String("category", "", "category ID to source candidate products")
	researchCmd.Flags().String("select-file", "", "YAML selection file (ids and/or inline products)")
	researchCmd.Flags().String("ids", "", "comma-separated product IDs to select")
	researchCmd.Flags().Bool("all", false, "select every candidate product")
	researchCmd.Flags().Int("limit", 20, "max listings to fetch")
	rootCmd.AddCommand(researchCmd)
}

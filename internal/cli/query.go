package cli

import (
	"github.com/mmcdole/querycache/internal/domain"
	"github.com/spf13/cobra"
)

// queryFlags are the theme query parameters shared by several commands.
type queryFlags struct {
	search  string
	filters string
	tier    string
	page    int
	perPage int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "search text matched against names, authors and taxonomy terms")
	cmd.Flags().StringVar(&f.filters, "filters", "", "comma-separated taxonomy term slugs, all required")
	cmd.Flags().StringVar(&f.tier, "tier", "", "premium, free, or empty for all")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", 0, "items per page (default from config)")
}

// query builds the theme query. perPage is used when the flag is unset.
func (f *queryFlags) query(perPage int) domain.Query {
	q := domain.Query{
		"search":  f.search,
		"filters": f.filters,
		"tier":    f.tier,
		"page":    f.page,
	}
	if f.perPage > 0 {
		perPage = f.perPage
	}
	if perPage > 0 {
		q["number"] = perPage
	}
	return q
}

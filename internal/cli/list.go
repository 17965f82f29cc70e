package cli

import (
	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querymanager"
	"github.com/spf13/cobra"
)

// listOutput is the JSON form of list.
type listOutput struct {
	Key   string        `json:"key"`
	Found int           `json:"found"`
	Pages int           `json:"pages,omitempty"`
	Items []domain.Item `json:"items"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var qf queryFlags
	var all, match bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show cached themes for a query",
		Long: `Show the cached page of a theme query. Nothing is fetched; run sync first.
With --match every cached theme is tested against the query locally, which
also works for queries that were never synced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, &qf, all, match)
		},
	}
	qf.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "show every cached page")
	cmd.Flags().BoolVar(&match, "match", false, "filter all cached themes locally instead of reading the query's result")

	return cmd
}

func runList(cmd *cobra.Command, opts *RootOptions, qf *queryFlags, all, match bool) error {
	a, err := newApp(opts, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	q := qf.query(a.cfg.Query.PerPage)
	m := a.svc.Manager()

	var items []domain.Item
	switch {
	case match:
		items = m.MatchItems(q)
	case all:
		items = m.GetItemsIgnoringPage(q)
	default:
		items = m.GetItems(q)
	}

	pages, _ := m.GetNumberOfPages(q)
	out := newRenderer(cmd.OutOrStdout())
	if opts.Format == "json" {
		if items == nil {
			items = []domain.Item{}
		}
		return writeJSON(out.w, listOutput{Key: m.QueryKey(q), Found: foundOrUnknown(m, q), Pages: pages, Items: items})
	}

	out.themes(items)
	switch {
	case match:
		out.note("%d cached themes match", len(items))
	case len(items) == 0 && !cached(m, q, all):
		out.note("not cached; run qcache sync")
	case all:
		out.note("%d of %d themes cached", len(items), foundOrUnknown(m, q))
	case pages > 0:
		out.note("page %d of %d, %d themes", qf.page, pages, foundOrUnknown(m, q))
	}
	return nil
}

// cached reports whether q's page, or with all its whole family, is held locally.
func cached(m *querymanager.Manager, q domain.Query, all bool) bool {
	if !all {
		return m.IsPageLoaded(q)
	}
	found, ok := m.GetFound(q)
	if !ok {
		return false
	}
	return len(m.GetItemsIgnoringPage(q)) == found && m.IsPageLoaded(q)
}

func foundOrUnknown(m *querymanager.Manager, q domain.Query) int {
	if found, ok := m.GetFound(q); ok {
		return found
	}
	return domain.FoundUnknown
}

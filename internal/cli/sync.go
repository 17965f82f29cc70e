package cli

import (
	"fmt"
	"io"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var qf queryFlags
	var all, force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch themes from the source into the cache",
		Long: `Fetch one page of a theme query, or every page with --all, and store the
results in the local cache. A query whose pages are already cached and
younger than cache.max_age is skipped unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts, &qf, all, force)
		},
	}
	qf.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page of the query")
	cmd.Flags().BoolVar(&force, "force", false, "fetch even when the cache is fresh")

	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions, qf *queryFlags, all, force bool) error {
	var observer domain.SyncObserver = domain.NoOpObserver{}
	if isTerminal(cmd.ErrOrStderr()) {
		observer = &progressPrinter{w: cmd.ErrOrStderr()}
	}

	a, err := newApp(opts, observer)
	if err != nil {
		return err
	}
	defer a.Close()

	q := qf.query(a.cfg.Query.PerPage)
	out := newRenderer(cmd.OutOrStdout())
	m := a.svc.Manager()

	if !force && a.store.IsFresh(a.stateName(), a.cfg.Cache.MaxAge) && cached(m, q, all) {
		a.logger.Debug("cache fresh, skipping fetch", "query", m.QueryKey(q))
		if opts.Format == "json" {
			return writeJSON(out.w, domain.SyncResult{QueryKey: m.QueryKey(q), Found: foundOrUnknown(m, q)})
		}
		out.note("cache is fresh; use --force to fetch anyway")
		return nil
	}

	var res domain.SyncResult
	if all {
		res, err = a.svc.FetchAll(cmd.Context(), q, nil)
	} else {
		res, err = a.svc.FetchPage(cmd.Context(), q)
	}
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return writeJSON(out.w, res)
	}
	out.success("synced %d themes in %d page(s)", res.Count, res.Pages)
	if res.Found >= 0 {
		out.note("%d themes match the query", res.Found)
	}
	if !res.Changed {
		out.note("cache already up to date")
	}
	return nil
}

// progressPrinter shows FetchAll progress on a terminal.
type progressPrinter struct {
	w io.Writer
}

func (p *progressPrinter) OnProgress(progress domain.SyncProgress) {
	switch {
	case progress.Error != nil:
		fmt.Fprintf(p.w, "\r✗ %v\n", progress.Error)
	case progress.Done:
		fmt.Fprintf(p.w, "\r%d loaded\n", progress.Loaded)
	case progress.Total >= 0:
		fmt.Fprintf(p.w, "\r%d/%d loaded", progress.Loaded, progress.Total)
	default:
		fmt.Fprintf(p.w, "\r%d loaded", progress.Loaded)
	}
}

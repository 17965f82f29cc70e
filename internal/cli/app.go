package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/mmcdole/querycache/internal/config"
	"github.com/mmcdole/querycache/internal/datalayer"
	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/logging"
	"github.com/mmcdole/querycache/internal/querymanager"
	"github.com/mmcdole/querycache/internal/source/jsonfile"
	"github.com/mmcdole/querycache/internal/store"
	"github.com/mmcdole/querycache/internal/theme"
)

const themesEntity = "themes"

// app wires configuration, logging, persistence and the theme source for
// one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.StateStore
	repo   *jsonfile.Repository
	svc    *datalayer.Service

	closers []io.Closer
}

func newApp(opts *RootOptions, syncObserver domain.SyncObserver) (*app, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	logger, closer, err := logging.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = logging.NullLogger()
	} else {
		a.closers = append(a.closers, closer)
	}
	slog.SetDefault(logger)
	a.logger = logger

	a.store, err = store.NewStateStore(cfg.GetCachePath(), cfg.Source.Site)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	a.closers = append(a.closers, a.store)

	a.repo, err = jsonfile.Open(cfg.Source.File)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	a.svc = datalayer.NewService(a.repo, a.newManager(),
		datalayer.WithStore(a.store, a.stateName()),
		datalayer.WithLogger(logger),
		datalayer.WithConcurrency(cfg.Query.Concurrency),
		datalayer.WithSyncObserver(syncObserver),
	)
	return a, nil
}

func (a *app) newManager() *querymanager.Manager {
	defaults := maps.Clone(theme.DefaultQuery)
	if a.cfg.Query.PerPage > 0 {
		defaults["number"] = a.cfg.Query.PerPage
	}

	opts := []querymanager.Option{querymanager.WithDefaultQuery(defaults)}
	if a.cfg.Query.Reindex {
		opts = append(opts, querymanager.WithReindex())
	}
	return theme.NewManager(opts...)
}

func (a *app) stateName() string {
	return store.StateName(a.cfg.Source.Site, themesEntity)
}

// Close releases the cache database and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

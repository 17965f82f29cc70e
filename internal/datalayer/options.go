package datalayer

import (
	"log/slog"

	"github.com/mmcdole/querycache/internal/domain"
)

const (
	defaultConcurrency = 4
	maxSequentialPages = 1000 // stop paging a source that never reports a total
)

// Option configures a Service.
type Option func(*Service)

// WithStore persists every change under name and restores it on start.
func WithStore(store domain.StateStore, name string) Option {
	return func(s *Service) {
		s.store = store
		s.stateName = name
	}
}

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds the number of pages fetched at once by FetchAll.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSyncObserver receives per-page progress from FetchAll.
func WithSyncObserver(o domain.SyncObserver) Option {
	return func(s *Service) {
		if o != nil {
			s.syncObserver = o
		}
	}
}

// Package datalayer connects a query manager to an item source.
//
// A Service owns the current manager snapshot. Fetches and deletes go to the
// source first; their results are applied through the manager's immutable
// operations one at a time, persisted, and announced to observers.
package datalayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querymanager"
	"golang.org/x/sync/errgroup"
)

// Service applies source responses to a query manager.
type Service struct {
	repo         domain.ItemRepository
	store        domain.StateStore
	stateName    string
	logger       *slog.Logger
	concurrency  int
	syncObserver domain.SyncObserver

	mu      sync.Mutex // serializes manager updates
	manager *querymanager.Manager

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

// NewService creates a service around an empty manager. When a store is
// configured the last saved state is restored into it.
func NewService(repo domain.ItemRepository, manager *querymanager.Manager, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		logger:       slog.Default(),
		concurrency:  defaultConcurrency,
		syncObserver: domain.NoOpObserver{},
		manager:      manager,
		observers:    make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store != nil {
		if state, ok := s.store.LoadState(s.stateName); ok {
			s.manager = manager.Restore(state)
			s.logger.Debug("restored state", "name", s.stateName, "items", s.manager.Len())
		}
	}
	return s
}

// Manager returns the current snapshot.
func (s *Service) Manager() *querymanager.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

// Subscribe registers o for change notifications and returns a function
// that removes it.
func (s *Service) Subscribe(o Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = o
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

// update applies fn to the current manager. It persists and broadcasts the
// result unless fn returned its argument.
func (s *Service) update(fn func(*querymanager.Manager) *querymanager.Manager) (prev, next *querymanager.Manager) {
	s.mu.Lock()
	prev = s.manager
	next = fn(prev)
	if next == prev {
		s.mu.Unlock()
		return prev, next
	}
	s.manager = next
	s.persist(next)
	s.mu.Unlock()

	s.notify(prev, next)
	return prev, next
}

func (s *Service) persist(m *querymanager.Manager) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveState(s.stateName, m.State()); err != nil {
		s.logger.Warn("failed to persist state", "name", s.stateName, "error", err)
	}
}

func (s *Service) notify(prev, next *querymanager.Manager) {
	s.obsMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.OnChange(prev, next)
	}
}

// Receive applies items directly, as if they had been fetched.
func (s *Service) Receive(items []domain.Item, opts ...querymanager.ReceiveOption) *querymanager.Manager {
	s.warnUnkeyable(items, "")
	_, next := s.update(func(m *querymanager.Manager) *querymanager.Manager {
		return m.Receive(items, opts...)
	})
	return next
}

// FetchPage fetches q from the source and records the response as q's result.
func (s *Service) FetchPage(ctx context.Context, q domain.Query) (domain.SyncResult, error) {
	page, err := s.repo.FetchItems(ctx, q)
	if err != nil {
		s.logger.Error("failed to fetch items", "query", s.Manager().QueryKey(q), "error", err)
		return domain.SyncResult{}, fmt.Errorf("fetch items: %w", err)
	}

	changed := s.apply(q, page)
	return domain.SyncResult{
		QueryKey: s.Manager().QueryKey(q),
		Pages:    1,
		Count:    len(page.Items),
		Found:    page.Found,
		Changed:  changed,
	}, nil
}

func (s *Service) apply(q domain.Query, page domain.Page) bool {
	s.warnUnkeyable(page.Items, s.Manager().QueryKey(q))
	prev, next := s.update(func(m *querymanager.Manager) *querymanager.Manager {
		return m.Receive(page.Items, querymanager.ForQuery(q), querymanager.WithFound(page.Found))
	})
	return prev != next
}

// FetchAll loads every page of q's family. The first page reports the total;
// the remaining pages are fetched concurrently and applied as each arrives.
// On a manager without pagination q is fetched once.
func (s *Service) FetchAll(ctx context.Context, q domain.Query, onProgress domain.ProgressFunc) (domain.SyncResult, error) {
	m := s.Manager()
	_, perPage, paginated := m.Window(q)
	if !paginated {
		res, err := s.FetchPage(ctx, q)
		if err == nil {
			s.report(res.QueryKey, res.Count, res.Found, onProgress, true, nil)
		}
		return res, err
	}

	key := m.QueryKey(q)
	first, err := s.repo.FetchItems(ctx, pageQuery(q, 1, perPage))
	if err != nil {
		s.logger.Error("failed to fetch first page", "query", key, "error", err)
		s.report(key, 0, domain.FoundUnknown, nil, true, err)
		return domain.SyncResult{}, fmt.Errorf("fetch page 1: %w", err)
	}

	res := domain.SyncResult{QueryKey: key, Pages: 1, Count: len(first.Items), Found: first.Found}
	res.Changed = s.apply(pageQuery(q, 1, perPage), first)
	s.report(key, res.Count, res.Found, onProgress, false, nil)

	if first.Found < 0 {
		err = s.fetchSequential(ctx, q, perPage, len(first.Items), &res, onProgress)
	} else {
		err = s.fetchConcurrent(ctx, q, perPage, &res, onProgress)
	}
	if err != nil {
		s.report(key, res.Count, res.Found, nil, true, err)
		return res, err
	}

	s.report(key, res.Count, res.Found, nil, true, nil)
	s.logger.Info("fetched query", "query", key, "pages", res.Pages, "items", res.Count, "found", res.Found)
	return res, nil
}

func (s *Service) fetchConcurrent(ctx context.Context, q domain.Query, perPage int, res *domain.SyncResult, onProgress domain.ProgressFunc) error {
	pages := pageCount(res.Found, perPage)
	if pages <= 1 {
		return nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for p := 2; p <= pages; p++ {
		g.Go(func() error {
			pq := pageQuery(q, p, perPage)
			page, err := s.repo.FetchItems(ctx, pq)
			if err != nil {
				s.logger.Error("failed to fetch page", "query", res.QueryKey, "page", p, "error", err)
				return fmt.Errorf("fetch page %d: %w", p, err)
			}
			changed := s.apply(pq, page)

			mu.Lock()
			defer mu.Unlock()
			res.Pages++
			res.Count += len(page.Items)
			res.Changed = res.Changed || changed
			s.report(res.QueryKey, res.Count, res.Found, onProgress, false, nil)
			return nil
		})
	}
	return g.Wait()
}

// fetchSequential pages through a source that does not report a total,
// stopping at the first short page.
func (s *Service) fetchSequential(ctx context.Context, q domain.Query, perPage, lastLen int, res *domain.SyncResult, onProgress domain.ProgressFunc) error {
	for p := 2; lastLen >= perPage && p <= maxSequentialPages; p++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pq := pageQuery(q, p, perPage)
		page, err := s.repo.FetchItems(ctx, pq)
		if err != nil {
			s.logger.Error("failed to fetch page", "query", res.QueryKey, "page", p, "error", err)
			return fmt.Errorf("fetch page %d: %w", p, err)
		}
		res.Changed = s.apply(pq, page) || res.Changed
		res.Pages++
		res.Count += len(page.Items)
		lastLen = len(page.Items)

		s.report(res.QueryKey, res.Count, domain.FoundUnknown, onProgress, false, nil)
	}
	return nil
}

func (s *Service) report(key string, loaded, total int, onProgress domain.ProgressFunc, done bool, err error) {
	if onProgress != nil {
		onProgress(loaded, total)
	}
	s.syncObserver.OnProgress(domain.SyncProgress{
		QueryKey: key,
		Loaded:   loaded,
		Total:    total,
		Done:     done,
		Error:    err,
	})
}

// Delete removes items at the source and then from the cache. Keys the
// source no longer knows are removed locally as well. Keys that failed to
// delete stay cached and their errors are joined.
func (s *Service) Delete(ctx context.Context, keys ...string) error {
	var removed []string
	var errs []error
	for _, key := range keys {
		err := s.repo.DeleteItem(ctx, key)
		switch {
		case err == nil:
			removed = append(removed, key)
		case errors.Is(err, domain.ErrItemNotFound):
			s.logger.Debug("item already gone at source", "key", key)
			removed = append(removed, key)
		default:
			s.logger.Error("failed to delete item", "key", key, "error", err)
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	if len(removed) > 0 {
		s.update(func(m *querymanager.Manager) *querymanager.Manager {
			return m.RemoveItems(removed)
		})
	}
	return errors.Join(errs...)
}

// Invalidate drops every cached item and query, including the saved state.
func (s *Service) Invalidate() {
	s.update(func(m *querymanager.Manager) *querymanager.Manager {
		return m.Empty()
	})
	if s.store != nil {
		s.store.InvalidateState(s.stateName)
	}
}

func (s *Service) warnUnkeyable(items []domain.Item, queryKey string) {
	field := s.Manager().ItemKey()
	for _, item := range items {
		if _, ok := domain.KeyOf(item, field); !ok {
			s.logger.Warn("skipping item without key", "field", field, "query", queryKey)
		}
	}
}

// Package jsonfile serves theme records from a JSON file on disk the way a
// remote theme endpoint would: filtered, paginated and with a total count.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querykey"
	"github.com/mmcdole/querycache/internal/querymanager"
	"github.com/mmcdole/querycache/internal/theme"
)

// Repository implements domain.ItemRepository over a JSON array of themes.
type Repository struct {
	mu     sync.RWMutex
	themes []domain.Item
	policy theme.Policy
}

var _ domain.ItemRepository = (*Repository)(nil)

// Open reads path, which must hold a JSON array of objects.
func Open(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	var themes []domain.Item
	if err := json.Unmarshal(data, &themes); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrSourceUnavailable, path, err)
	}
	return New(themes), nil
}

// New serves themes from memory.
func New(themes []domain.Item) *Repository {
	return &Repository{themes: slices.Clone(themes)}
}

// FetchItems returns the page of matching themes selected by q.
func (r *Repository) FetchItems(ctx context.Context, q domain.Query) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	nq := querykey.Normalize(q, theme.DefaultQuery)
	if unsupported := theme.UnsupportedParams(nq); len(unsupported) > 0 {
		return domain.Page{}, fmt.Errorf("%w: unsupported parameters %v", domain.ErrInvalidQuery, unsupported)
	}

	r.mu.RLock()
	var matches []domain.Item
	for _, t := range r.themes {
		if r.policy.Matches(nq, t) {
			matches = append(matches, t)
		}
	}
	r.mu.RUnlock()

	start, perPage := querymanager.DefaultPagination.Offset(nq, nil)
	start = min(start, len(matches))
	end := min(start+perPage, len(matches))

	return domain.Page{Items: matches[start:end], Found: len(matches)}, nil
}

// DeleteItem removes the theme with the given id.
func (r *Repository) DeleteItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.themes {
		if id, ok := domain.KeyOf(t, theme.ItemKey); ok && id == key {
			r.themes = slices.Delete(r.themes, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrItemNotFound, key)
}

// Len returns the number of themes held.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.themes)
}

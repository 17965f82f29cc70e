package querymanager

import (
	"math"
	"slices"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querykey"
)

// Pagination names the query parameters that select a page.
// They are excluded from query keys so every page of a query shares one
// ordered key list (the query family).
type Pagination struct {
	PageKey        string
	PerPageKeys    []string // first present wins
	DefaultPage    int
	DefaultPerPage int
}

// DefaultPagination understands page, perPage and number.
var DefaultPagination = Pagination{
	PageKey:        "page",
	PerPageKeys:    []string{"perPage", "number"},
	DefaultPage:    1,
	DefaultPerPage: 10,
}

// NewPaginated creates an empty manager with DefaultPagination.
func NewPaginated(opts ...Option) *Manager {
	return New(append([]Option{WithPagination(DefaultPagination)}, opts...)...)
}

// Keys returns every pagination parameter name.
func (p Pagination) Keys() []string {
	return append([]string{p.PageKey}, p.PerPageKeys...)
}

// Window returns the 1-based page and page size selected by q, falling back
// to defaults and then to the pagination's own defaults.
func (p Pagination) Window(q, defaults domain.Query) (page, perPage int) {
	page = p.DefaultPage
	if n, ok := firstInt(p.PageKey, q, defaults); ok {
		page = n
	}
	if page < 1 {
		page = 1
	}

	perPage = p.DefaultPerPage
	if n, ok := p.perPageOf(q); ok {
		perPage = n
	} else if n, ok := p.perPageOf(defaults); ok {
		perPage = n
	}
	if perPage < 1 {
		perPage = max(p.DefaultPerPage, 1)
	}
	return page, perPage
}

// Offset returns the position of the first key on q's page and the page size.
// The offset saturates so that offset+perPage never overflows an int.
func (p Pagination) Offset(q, defaults domain.Query) (start, perPage int) {
	page, perPage := p.Window(q, defaults)
	perPage = min(perPage, math.MaxInt/2)
	limit := math.MaxInt - perPage
	if page-1 > limit/perPage {
		return limit, perPage
	}
	return (page - 1) * perPage, perPage
}

func (p Pagination) perPageOf(q domain.Query) (int, bool) {
	for _, key := range p.PerPageKeys {
		if n, ok := querykey.Int(q, key); ok {
			return n, true
		}
	}
	return 0, false
}

func firstInt(key string, queries ...domain.Query) (int, bool) {
	for _, q := range queries {
		if q == nil {
			continue
		}
		if n, ok := querykey.Int(q, key); ok {
			return n, true
		}
	}
	return 0, false
}

// slice returns the window of keys selected by q.
func (p Pagination) slice(keys []string, q, defaults domain.Query) []string {
	start, perPage := p.Offset(q, defaults)
	if start >= len(keys) {
		return nil
	}
	end := min(start+perPage, len(keys))
	return keys[start:end]
}

// maxSpliceGap caps how many unloaded positions a single page may open up
// between the known keys and its own offset.
const maxSpliceGap = 1 << 16

// splicePage writes a received page into its family's key list at the page
// offset, replacing whatever the window held before. Received keys found at
// other positions become holes so a key appears at most once. Pages that
// start at or past found, or too far past the known keys, leave the list as
// it was apart from the new total.
func (m *Manager) splicePage(prev domain.QueryResult, tracked bool, received []string, rc receiveConfig) domain.QueryResult {
	start, perPage := m.cfg.pagination.Offset(rc.query, m.cfg.defaultQuery)

	var base []string
	if tracked && rc.merging(true) {
		base = prev.ItemKeys
	}

	found := prev.Found
	if rc.found >= 0 {
		found = rc.found
	}

	keys := base
	switch {
	case found >= 0 && start >= found:
	case start >= len(base) && (len(received) == 0 || start-len(base) > maxSpliceGap):
	default:
		keys = spliceKeys(base, received, start, perPage)
	}
	if found >= 0 && len(keys) > found {
		keys = keys[:found]
	}
	return domain.QueryResult{Query: prev.Query, ItemKeys: trimHoles(keys), Found: found}
}

func spliceKeys(prev, received []string, start, perPage int) []string {
	incoming := make(map[string]bool, len(received))
	for _, k := range received {
		incoming[k] = true
	}

	next := make([]string, 0, max(len(prev), start+len(received)))
	for i, k := range prev {
		if i >= start {
			break
		}
		if incoming[k] {
			k = ""
		}
		next = append(next, k)
	}
	for len(next) < start {
		next = append(next, "")
	}
	next = append(next, received...)

	if end := start + perPage; end < len(prev) {
		for _, k := range prev[end:] {
			if incoming[k] {
				k = ""
			}
			next = append(next, k)
		}
	}
	return next
}

// Window returns the page and page size q selects, with the manager's
// default query filling in. It reports false on a manager without pagination.
func (m *Manager) Window(q domain.Query) (page, perPage int, ok bool) {
	if m.cfg.pagination == nil {
		return 0, 0, false
	}
	page, perPage = m.cfg.pagination.Window(q, m.cfg.defaultQuery)
	return page, perPage, true
}

// GetItemsIgnoringPage returns every known item of q's family in order.
func (m *Manager) GetItemsIgnoringPage(q domain.Query) []domain.Item {
	result, ok := m.queries[m.QueryKey(q)]
	if !ok {
		return nil
	}
	return slices.Collect(m.itemsOf(result.ItemKeys))
}

// GetNumberOfPages returns how many pages of q's size the family spans.
// It reports false while the total is unknown.
func (m *Manager) GetNumberOfPages(q domain.Query) (int, bool) {
	found, ok := m.GetFound(q)
	if !ok {
		return 0, false
	}
	p := DefaultPagination
	if m.cfg.pagination != nil {
		p = *m.cfg.pagination
	}
	_, perPage := p.Window(q, m.cfg.defaultQuery)
	pages := found / perPage
	if found%perPage != 0 {
		pages++
	}
	return pages, true
}

// IsPageLoaded reports whether every position of q's page is known locally.
func (m *Manager) IsPageLoaded(q domain.Query) bool {
	result, ok := m.queries[m.QueryKey(q)]
	if !ok {
		return false
	}
	p := DefaultPagination
	if m.cfg.pagination != nil {
		p = *m.cfg.pagination
	}
	start, perPage := p.Offset(q, m.cfg.defaultQuery)
	end := start + perPage
	if result.HasFound() {
		end = min(end, result.Found)
	}
	if end <= start {
		return result.HasFound()
	}
	if end > len(result.ItemKeys) {
		return false
	}
	return !slices.Contains(result.ItemKeys[start:end], "")
}

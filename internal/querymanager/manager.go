// Package querymanager implements an immutable, query-aware cache of keyed items.
//
// A Manager holds a flat item store keyed by identity and, for every query it
// has been told about, the ordered list of item keys making up that query's
// result. Every mutating method returns a new Manager and leaves the receiver
// untouched; when nothing changes the receiver itself is returned so callers
// can compare pointers to skip work.
//
// Managers share unchanged maps and items with their predecessors. Items handed
// out by the read methods must be treated as read-only.
package querymanager

import (
	"iter"
	"maps"
	"reflect"
	"slices"
	"strconv"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querykey"
)

// Manager is an immutable snapshot of cached items and query results.
type Manager struct {
	items   map[string]domain.Item
	queries map[string]domain.QueryResult
	cfg     *config
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	return &Manager{cfg: newConfig(opts)}
}

// FromState rebuilds a manager from a persisted snapshot.
func FromState(state domain.State, opts ...Option) *Manager {
	m := New(opts...)
	m.items = maps.Clone(state.Items)
	m.queries = maps.Clone(state.Queries)
	return m
}

// State returns the manager's content for persistence.
// The returned maps are copies; the items inside them are shared.
func (m *Manager) State() domain.State {
	items := maps.Clone(m.items)
	if items == nil {
		items = map[string]domain.Item{}
	}
	queries := maps.Clone(m.queries)
	if queries == nil {
		queries = map[string]domain.QueryResult{}
	}
	return domain.State{Items: items, Queries: queries}
}

// Restore returns a manager with the same configuration holding state.
func (m *Manager) Restore(state domain.State) *Manager {
	return &Manager{items: maps.Clone(state.Items), queries: maps.Clone(state.Queries), cfg: m.cfg}
}

// Empty returns a manager with the same configuration and no content.
func (m *Manager) Empty() *Manager {
	if len(m.items) == 0 && len(m.queries) == 0 {
		return m
	}
	return &Manager{cfg: m.cfg}
}

// Len returns the number of items in the flat store.
func (m *Manager) Len() int {
	return len(m.items)
}

// ItemKey returns the identity field items are keyed by.
func (m *Manager) ItemKey() string {
	return m.cfg.itemKey
}

// QueryKey returns the key results for q are tracked under.
// On a paginated manager pagination parameters do not take part in the key.
func (m *Manager) QueryKey(q domain.Query) string {
	return querykey.Encode(m.familyQuery(q))
}

func (m *Manager) familyQuery(q domain.Query) domain.Query {
	nq := querykey.Normalize(q, m.cfg.defaultQuery)
	if m.cfg.pagination != nil {
		nq = querykey.Omit(nq, m.cfg.pagination.Keys()...)
	}
	return nq
}

// GetItem returns the item stored under key.
func (m *Manager) GetItem(key string) (domain.Item, bool) {
	item, ok := m.items[key]
	return item, ok
}

// GetFound returns the total count reported for q's query family.
func (m *Manager) GetFound(q domain.Query) (int, bool) {
	result, ok := m.queries[m.QueryKey(q)]
	if !ok || !result.HasFound() {
		return 0, false
	}
	return result.Found, true
}

// Items returns the items tracked for q, windowed to q's page on a paginated
// manager. Unknown queries yield nothing.
func (m *Manager) Items(q domain.Query) iter.Seq[domain.Item] {
	result, ok := m.queries[m.QueryKey(q)]
	if !ok {
		return func(func(domain.Item) bool) {}
	}

	keys := result.ItemKeys
	if m.cfg.pagination != nil {
		keys = m.cfg.pagination.slice(keys, q, m.cfg.defaultQuery)
	}
	return m.itemsOf(keys)
}

// GetItems collects Items(q).
func (m *Manager) GetItems(q domain.Query) []domain.Item {
	return slices.Collect(m.Items(q))
}

func (m *Manager) itemsOf(keys []string) iter.Seq[domain.Item] {
	return func(yield func(domain.Item) bool) {
		for _, key := range keys {
			if key == "" {
				continue
			}
			item, ok := m.items[key]
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// MatchItems evaluates the policy against every stored item, whether or not
// q was ever received. Results are ordered by the policy's Comparer when it
// has one and by key otherwise.
func (m *Manager) MatchItems(q domain.Query) []domain.Item {
	nq := m.familyQuery(q)

	var keys []string
	for key, item := range m.items {
		if m.cfg.policy.Matches(nq, item) {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, compareKeys)
	if cmp, ok := m.cfg.policy.(Comparer); ok {
		slices.SortStableFunc(keys, func(a, b string) int {
			return cmp.Compare(nq, m.items[a], m.items[b])
		})
	}
	return slices.Collect(m.itemsOf(keys))
}

// Receive stores items and, when ForQuery is given, records them as that
// query's result. It returns the receiver when nothing changed.
func (m *Manager) Receive(items []domain.Item, opts ...ReceiveOption) *Manager {
	rc := newReceiveConfig(opts)

	nextItems, receivedKeys, touched := m.mergeItems(items, rc.patch)
	itemsChanged := len(touched) > 0

	var receivedKey string
	if rc.query != nil {
		receivedKey = m.QueryKey(rc.query)
	}

	nextQueries := m.queries
	queriesChanged := false
	if m.cfg.reindex && itemsChanged {
		nextQueries, queriesChanged = m.reindex(nextItems, touched, receivedKey)
	}

	if rc.query != nil {
		prev, tracked := nextQueries[receivedKey]
		if !tracked {
			prev = domain.QueryResult{Query: m.familyQuery(rc.query), Found: domain.FoundUnknown}
		}

		next := m.place(prev, tracked, receivedKeys, rc, nextItems)
		if !tracked || !sameResult(prev, next) {
			if !queriesChanged {
				nextQueries = cloneQueries(nextQueries)
				queriesChanged = true
			}
			nextQueries[receivedKey] = next
		}
	}

	if !itemsChanged && !queriesChanged {
		return m
	}
	return &Manager{items: nextItems, queries: nextQueries, cfg: m.cfg}
}

// ReceiveItem is Receive for a single item.
func (m *Manager) ReceiveItem(item domain.Item, opts ...ReceiveOption) *Manager {
	return m.Receive([]domain.Item{item}, opts...)
}

// mergeItems applies a batch to a copy of the item store. It returns the
// store to use next, the keys of the batch in first-seen order, and the keys
// whose stored value actually changed.
func (m *Manager) mergeItems(items []domain.Item, patch bool) (map[string]domain.Item, []string, []string) {
	next := m.items
	keys := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	var touched []string
	touchedSet := make(map[string]bool)

	for _, item := range items {
		key, ok := domain.KeyOf(item, m.cfg.itemKey)
		if !ok {
			continue
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}

		prev, exists := next[key]
		var merged domain.Item
		if patch && exists {
			merged = maps.Clone(prev)
			maps.Copy(merged, item)
		} else {
			merged = maps.Clone(item)
		}
		if exists && reflect.DeepEqual(prev, merged) {
			continue
		}

		if len(touched) == 0 {
			next = maps.Clone(m.items)
			if next == nil {
				next = make(map[string]domain.Item)
			}
		}
		next[key] = merged
		if !touchedSet[key] {
			touchedSet[key] = true
			touched = append(touched, key)
		}
	}
	return next, keys, touched
}

// place computes the next result for a received query.
func (m *Manager) place(prev domain.QueryResult, tracked bool, received []string, rc receiveConfig, items map[string]domain.Item) domain.QueryResult {
	if m.cfg.pagination != nil && querykey.HasAny(rc.query, m.cfg.pagination.Keys()...) {
		return m.splicePage(prev, tracked, received, rc)
	}

	next := domain.QueryResult{Query: prev.Query, Found: prev.Found}
	if rc.found >= 0 {
		next.Found = rc.found
	}

	if tracked && rc.merging(false) {
		next.ItemKeys = unionKeys(prev.ItemKeys, received)
		if cmp, ok := m.cfg.policy.(Comparer); ok && !slices.Contains(next.ItemKeys, "") {
			slices.SortStableFunc(next.ItemKeys, func(a, b string) int {
				return cmp.Compare(next.Query, items[a], items[b])
			})
		}
	} else {
		next.ItemKeys = slices.Clone(received)
	}
	return next
}

// reindex re-evaluates tracked queries for items whose data changed.
// The query being received is skipped; its membership comes from the server.
// Found only moves when an item crosses the query's boundary: a touched item
// is compared against its value before the merge. Items new to the store may
// already be counted by the server, so on an incomplete result they leave
// found alone.
func (m *Manager) reindex(items map[string]domain.Item, touched []string, skip string) (map[string]domain.QueryResult, bool) {
	next := m.queries
	changed := false
	cmp, sortable := m.cfg.policy.(Comparer)

	for qk, result := range m.queries {
		if qk == skip {
			continue
		}

		keys := result.ItemKeys
		found := result.Found
		complete := result.Complete()
		modified, needsSort := false, false

		for _, key := range touched {
			idx := slices.Index(keys, key)
			prev, existed := m.items[key]
			matched := existed && m.cfg.policy.Matches(result.Query, prev)
			matches := m.cfg.policy.Matches(result.Query, items[key])
			switch {
			case matches && idx < 0 && complete:
				keys = append(slices.Clip(keys), key)
				if found >= 0 {
					found++
				}
				needsSort = sortable
				modified = true
			case matches && idx < 0:
				if existed && !matched && found >= 0 {
					found++
					modified = true
				}
			case !matches && idx >= 0:
				keys = slices.Delete(slices.Clone(keys), idx, idx+1)
				if found > 0 {
					found--
				}
				modified = true
			case !matches && matched && !complete && found > 0:
				found--
				modified = true
			}
		}
		if !modified {
			continue
		}

		if needsSort {
			slices.SortStableFunc(keys, func(a, b string) int {
				return cmp.Compare(result.Query, items[a], items[b])
			})
		}
		if !changed {
			next = cloneQueries(m.queries)
			changed = true
		}
		next[qk] = domain.QueryResult{Query: result.Query, ItemKeys: keys, Found: found}
	}
	return next, changed
}

// RemoveItems deletes items from the store and from every query result.
// Found counts drop by the number of removed members; when a removed item may
// have belonged to a result whose members are not all known locally, the
// count is cleared instead.
func (m *Manager) RemoveItems(keys []string) *Manager {
	removed := make(map[string]domain.Item)
	for _, key := range keys {
		if item, ok := m.items[key]; ok {
			removed[key] = item
		}
	}
	if len(removed) == 0 {
		return m
	}

	nextItems := maps.Clone(m.items)
	for key := range removed {
		delete(nextItems, key)
	}

	nextQueries := m.queries
	changed := false
	for qk, result := range m.queries {
		kept := make([]string, 0, len(result.ItemKeys))
		dropped := 0
		for _, key := range result.ItemKeys {
			if _, gone := removed[key]; gone {
				dropped++
				continue
			}
			kept = append(kept, key)
		}

		found := result.Found
		if result.HasFound() {
			found = max(found-dropped, 0)
			if !result.Complete() && m.mayHaveBelonged(result, removed) {
				found = domain.FoundUnknown
			}
		}

		if dropped == 0 && found == result.Found {
			continue
		}
		if !changed {
			nextQueries = cloneQueries(m.queries)
			changed = true
		}
		nextQueries[qk] = domain.QueryResult{Query: result.Query, ItemKeys: trimHoles(kept), Found: found}
	}

	return &Manager{items: nextItems, queries: nextQueries, cfg: m.cfg}
}

// RemoveItem is RemoveItems for a single key.
func (m *Manager) RemoveItem(key string) *Manager {
	return m.RemoveItems([]string{key})
}

// mayHaveBelonged reports whether a removed item that is not in the result's
// known keys could still have been counted by the server.
func (m *Manager) mayHaveBelonged(result domain.QueryResult, removed map[string]domain.Item) bool {
	for key, item := range removed {
		if slices.Contains(result.ItemKeys, key) {
			continue
		}
		if m.cfg.policy.Matches(result.Query, item) {
			return true
		}
	}
	return false
}

func cloneQueries(queries map[string]domain.QueryResult) map[string]domain.QueryResult {
	next := maps.Clone(queries)
	if next == nil {
		next = make(map[string]domain.QueryResult)
	}
	return next
}

func sameResult(a, b domain.QueryResult) bool {
	return a.Found == b.Found && slices.Equal(a.ItemKeys, b.ItemKeys)
}

// unionKeys appends keys from add that are not already present in base.
func unionKeys(base, add []string) []string {
	present := make(map[string]bool, len(base))
	for _, k := range base {
		present[k] = true
	}
	out := slices.Clone(base)
	for _, k := range add {
		if !present[k] {
			present[k] = true
			out = append(out, k)
		}
	}
	return out
}

func trimHoles(keys []string) []string {
	end := len(keys)
	for end > 0 && keys[end-1] == "" {
		end--
	}
	return keys[:end]
}

// compareKeys orders numeric keys numerically and everything else lexically.
func compareKeys(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

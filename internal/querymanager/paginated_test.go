package querymanager

import (
	"math"
	"testing"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(search string, n, perPage int) domain.Query {
	return domain.Query{"search": search, "page": n, "number": perPage}
}

func TestPaginatedFamilyKeyIgnoresPagination(t *testing.T) {
	m := NewPaginated()

	assert.Equal(t, m.QueryKey(domain.Query{"search": "a"}), m.QueryKey(page("a", 3, 5)))
	assert.Equal(t, m.QueryKey(page("a", 1, 10)), m.QueryKey(domain.Query{"search": "a", "perPage": 10}))
	assert.NotEqual(t, m.QueryKey(page("a", 1, 10)), m.QueryKey(page("b", 1, 10)))
}

func TestPaginatedWindowing(t *testing.T) {
	family := domain.Query{"search": "x"}
	m := NewPaginated().Receive(makeItems(idRange(1, 25)...), ForQuery(family), WithFound(25))

	got := idsOf(t, m.GetItems(domain.Query{"search": "x", "page": 2, "perPage": 10}))
	assert.Equal(t, idRange(11, 20), got, "page 2 holds positions 10-19")

	got = idsOf(t, m.GetItems(page("x", 3, 10)))
	assert.Equal(t, idRange(21, 25), got)

	assert.Empty(t, m.GetItems(page("x", 4, 10)))
	assert.Len(t, m.GetItemsIgnoringPage(family), 25)
}

func TestPaginatedDefaultsToFirstPage(t *testing.T) {
	m := NewPaginated().Receive(makeItems(idRange(1, 15)...), ForQuery(domain.Query{}))

	assert.Equal(t, idRange(1, 10), idsOf(t, m.GetItems(domain.Query{})))
	assert.Equal(t, idRange(1, 10), idsOf(t, m.GetItems(domain.Query{"page": 0})), "pages below 1 clamp to 1")
}

func TestPaginatedPerPageFromDefaultQuery(t *testing.T) {
	m := NewPaginated(WithDefaultQuery(domain.Query{"number": 4})).
		Receive(makeItems(idRange(1, 10)...), ForQuery(domain.Query{}))

	assert.Equal(t, idRange(5, 8), idsOf(t, m.GetItems(domain.Query{"page": 2})))
}

func TestPaginatedOutOfOrderPages(t *testing.T) {
	m := NewPaginated().Receive(makeItems(idRange(11, 20)...), ForQuery(page("x", 2, 10)), WithFound(25))

	assert.Empty(t, m.GetItems(page("x", 1, 10)), "page 1 has not arrived")
	assert.False(t, m.IsPageLoaded(page("x", 1, 10)))
	assert.True(t, m.IsPageLoaded(page("x", 2, 10)))
	assert.Equal(t, idRange(11, 20), idsOf(t, m.GetItems(page("x", 2, 10))))

	m = m.Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10)))
	m = m.Receive(makeItems(idRange(21, 25)...), ForQuery(page("x", 3, 10)))

	assert.Equal(t, idRange(1, 25), idsOf(t, m.GetItemsIgnoringPage(page("x", 1, 10))))
	assert.True(t, m.IsPageLoaded(page("x", 3, 10)))

	pages, ok := m.GetNumberOfPages(page("x", 1, 10))
	require.True(t, ok)
	assert.Equal(t, 3, pages)

	found, ok := m.GetFound(page("x", 1, 10))
	require.True(t, ok)
	assert.Equal(t, 25, found, "found is shared by the whole family")
}

func TestPaginatedSpliceReplacesWindow(t *testing.T) {
	m := NewPaginated().
		Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10))).
		Receive(makeItems(idRange(11, 20)...), ForQuery(page("x", 2, 10)))

	// A new item was inserted at the top on the server: page 1 shifts by one.
	m = m.Receive(makeItems(append([]int{0}, idRange(1, 9)...)...), ForQuery(page("x", 1, 10)))

	assert.Equal(t, append([]int{0}, idRange(1, 9)...), idsOf(t, m.GetItems(page("x", 1, 10))))
	assert.Equal(t, idRange(11, 20), idsOf(t, m.GetItems(page("x", 2, 10))))

	_, ok := m.GetItem("10")
	assert.True(t, ok, "keys dropped from a window stay in the store")
}

func TestPaginatedKeyMovingPagesLeavesHole(t *testing.T) {
	m := NewPaginated().
		Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10))).
		Receive(makeItems(idRange(10, 19)...), ForQuery(page("x", 2, 10)))

	assert.Equal(t, idRange(1, 9), idsOf(t, m.GetItems(page("x", 1, 10))))
	assert.False(t, m.IsPageLoaded(page("x", 1, 10)))
	assert.Equal(t, idRange(10, 19), idsOf(t, m.GetItems(page("x", 2, 10))))
}

func TestPaginatedTruncatesToFound(t *testing.T) {
	m := NewPaginated().
		Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10))).
		Receive(makeItems(idRange(11, 20)...), ForQuery(page("x", 2, 10)))

	m = m.Receive(makeItems(1, 2, 3), ForQuery(page("x", 1, 3)), WithFound(12))

	assert.Len(t, m.GetItemsIgnoringPage(page("x", 1, 10)), 12)
	pages, ok := m.GetNumberOfPages(page("x", 1, 5))
	require.True(t, ok)
	assert.Equal(t, 3, pages)
}

func TestPaginatedIdenticalPageIsNoOp(t *testing.T) {
	m := NewPaginated().Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10)), WithFound(30))

	assert.Same(t, m, m.Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10))))
	assert.Same(t, m, m.Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10)), WithFound(30)))
}

func TestPaginatedReplacingQueryStartsFresh(t *testing.T) {
	m := NewPaginated().
		Receive(makeItems(idRange(1, 10)...), ForQuery(page("x", 1, 10))).
		Receive(makeItems(idRange(11, 20)...), ForQuery(page("x", 2, 10)), ReplacingQuery())

	assert.Empty(t, m.GetItems(page("x", 1, 10)))
	assert.Equal(t, idRange(11, 20), idsOf(t, m.GetItems(page("x", 2, 10))))
}

func TestPaginatedRemoveClearsFoundWhenUndeterminable(t *testing.T) {
	x := page("x", 1, 10)
	m := NewPaginated().
		Receive(makeItems(idRange(1, 10)...), ForQuery(x), WithFound(30)).
		Receive(makeItems(99), ForQuery(page("y", 1, 10)), WithFound(1))

	// 99 was never seen in x's loaded window but could sit on an unloaded page.
	next := m.RemoveItems([]string{"99"})
	_, ok := next.GetFound(x)
	assert.False(t, ok)

	found, ok := next.GetFound(page("y", 1, 10))
	require.True(t, ok)
	assert.Equal(t, 0, found)

	// Removing a loaded member decrements.
	next = m.RemoveItems([]string{"3"})
	found, ok = next.GetFound(x)
	require.True(t, ok)
	assert.Equal(t, 29, found)
	assert.Len(t, next.GetItems(x), 9)
}

func TestPaginatedRemoveUsesPolicyToKeepFound(t *testing.T) {
	red := domain.Query{"color": "red", "page": 1, "number": 2}
	m := NewPaginated(WithPolicy(colorPolicy{})).
		Receive([]domain.Item{colored(1, "red", 1), colored(2, "red", 2)}, ForQuery(red), WithFound(5)).
		ReceiveItem(colored(3, "blue", 1))

	next := m.RemoveItems([]string{"3"})
	found, ok := next.GetFound(red)
	require.True(t, ok, "a blue item cannot have been counted in the red results")
	assert.Equal(t, 5, found)
}

func TestPaginationWindow(t *testing.T) {
	p := DefaultPagination
	tests := []struct {
		name     string
		q        domain.Query
		defaults domain.Query
		page     int
		perPage  int
	}{
		{"defaults", nil, nil, 1, 10},
		{"perPage beats number", domain.Query{"perPage": 5, "number": 7}, nil, 1, 5},
		{"number", domain.Query{"page": 3, "number": 7}, nil, 3, 7},
		{"query beats defaults", domain.Query{"number": 7}, domain.Query{"number": 20}, 1, 7},
		{"defaults fill in", domain.Query{"page": 2}, domain.Query{"number": 20}, 2, 20},
		{"string values", domain.Query{"page": "4", "number": "5"}, nil, 4, 5},
		{"nonsense clamps", domain.Query{"page": -2, "number": 0}, nil, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage := p.Window(tt.q, tt.defaults)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.perPage, perPage)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	p := DefaultPagination
	tests := []struct {
		name    string
		q       domain.Query
		start   int
		perPage int
	}{
		{"first page", nil, 0, 10},
		{"later page", domain.Query{"page": 3, "number": 7}, 14, 7},
		{"huge page saturates", domain.Query{"page": int64(1<<62 + 1), "number": 10}, math.MaxInt - 10, 10},
		{"max page saturates", domain.Query{"page": math.MaxInt, "perPage": 3}, math.MaxInt - 3, 3},
		{"huge page size", domain.Query{"page": 2, "number": math.MaxInt}, math.MaxInt / 2, math.MaxInt / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, perPage := p.Offset(tt.q, nil)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.perPage, perPage)
			assert.GreaterOrEqual(t, start+perPage, start, "window end must not overflow")
		})
	}
}

func TestPaginatedPagesOutOfRange(t *testing.T) {
	family := domain.Query{"search": "x"}
	full := NewPaginated().Receive(makeItems(idRange(1, 25)...), ForQuery(family), WithFound(25))
	huge := domain.Query{"search": "x", "page": int64(1<<62 + 1), "perPage": 10}

	t.Run("reads", func(t *testing.T) {
		assert.NotPanics(t, func() {
			assert.Empty(t, full.GetItems(huge))
		})
		assert.True(t, full.IsPageLoaded(huge), "pages past found are empty and loaded")
		assert.Empty(t, full.GetItems(domain.Query{"search": "x", "page": 2, "number": math.MaxInt}))
		assert.Len(t, full.GetItems(domain.Query{"search": "x", "number": math.MaxInt}), 25)
	})

	tests := []struct {
		name  string
		start *Manager
		items []domain.Item
		opts  []ReceiveOption
		keys  int
		found int
	}{
		{"page at found", full, makeItems(26, 27), []ReceiveOption{ForQuery(page("x", 4, 10)), WithFound(25)}, 25, 25},
		{"huge page with known found", NewPaginated(), makeItems(1, 2, 3),
			[]ReceiveOption{ForQuery(domain.Query{"search": "x", "page": int64(1 << 40), "number": 10}), WithFound(3)}, 0, 3},
		{"huge page with unknown found", NewPaginated(), makeItems(1, 2, 3),
			[]ReceiveOption{ForQuery(domain.Query{"search": "x", "page": int64(1 << 40), "number": 10})}, 0, domain.FoundUnknown},
		{"saturated page", NewPaginated(), makeItems(1, 2, 3), []ReceiveOption{ForQuery(huge)}, 0, domain.FoundUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m *Manager
			require.NotPanics(t, func() {
				m = tt.start.Receive(tt.items, tt.opts...)
			})
			result := m.State().Queries[m.QueryKey(family)]
			assert.Len(t, result.ItemKeys, tt.keys)
			assert.Equal(t, tt.found, result.Found)
			assert.Equal(t, tt.start.Len()+len(tt.items), m.Len(), "received items are still stored")
		})
	}

	t.Run("empty page past the known keys", func(t *testing.T) {
		assert.Same(t, full, full.Receive(nil, ForQuery(page("x", 50, 10))))

		sparse := NewPaginated().Receive(makeItems(1, 2), ForQuery(page("x", 1, 10)))
		assert.Same(t, sparse, sparse.Receive(nil, ForQuery(page("x", 1<<30, 10))))
	})
}

func TestManagerWindow(t *testing.T) {
	_, _, ok := New().Window(domain.Query{"page": 2})
	assert.False(t, ok)

	page, perPage, ok := NewPaginated(WithDefaultQuery(domain.Query{"number": 20})).Window(domain.Query{"page": 2})
	require.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, 20, perPage)
}

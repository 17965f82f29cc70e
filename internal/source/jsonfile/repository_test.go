package jsonfile

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T) *Repository {
	t.Helper()
	r, err := Open(filepath.Join("testdata", "themes.json"))
	require.NoError(t, err)
	return r
}

func ids(items []domain.Item) []string {
	var out []string
	for _, item := range items {
		out = append(out, item.String("id"))
	}
	return out
}

func TestFetchItemsFiltersAndPaginates(t *testing.T) {
	r := openFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		q     domain.Query
		want  []string
		found int
	}{
		{"everything", domain.Query{}, []string{"twentysixteen", "dara", "edin", "karuna", "radcliffe"}, 5},
		{"search", domain.Query{"search": "blue"}, []string{"twentysixteen", "dara"}, 2},
		{"filters", domain.Query{"filters": "blue,slider"}, []string{"dara"}, 1},
		{"tier", domain.Query{"tier": "premium"}, []string{"dara"}, 1},
		{"second page", domain.Query{"page": 2, "number": 2}, []string{"edin", "karuna"}, 5},
		{"past the end", domain.Query{"page": 9, "number": 2}, nil, 5},
		{"huge page", domain.Query{"page": int64(1<<62 + 1), "number": 10}, nil, 5},
		{"max page", domain.Query{"page": math.MaxInt, "number": 2}, nil, 5},
		{"huge page size", domain.Query{"number": math.MaxInt}, []string{"twentysixteen", "dara", "edin", "karuna", "radcliffe"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := r.FetchItems(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, tt.found, page.Found)
		})
	}
}

func TestFetchItemsRejectsUnsupportedParams(t *testing.T) {
	_, err := openFixture(t).FetchItems(context.Background(), domain.Query{"sort": "name"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestDeleteItem(t *testing.T) {
	r := openFixture(t)
	ctx := context.Background()

	require.NoError(t, r.DeleteItem(ctx, "dara"))
	assert.Equal(t, 4, r.Len())
	assert.ErrorIs(t, r.DeleteItem(ctx, "dara"), domain.ErrItemNotFound)

	page, err := r.FetchItems(ctx, domain.Query{"tier": "premium"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Found)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).FetchItems(ctx, domain.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

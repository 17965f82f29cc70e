package theme

import (
	"github.com/mmcdole/querycache/internal/querymanager"
)

// NewManager creates an empty paginated manager for themes.
// Extra options are applied after the theme defaults.
func NewManager(opts ...querymanager.Option) *querymanager.Manager {
	base := []querymanager.Option{
		querymanager.WithItemKey(ItemKey),
		querymanager.WithDefaultQuery(DefaultQuery),
		querymanager.WithPolicy(Policy{}),
	}
	return querymanager.NewPaginated(append(base, opts...)...)
}

package domain

import "context"

// Page is one response from an item source.
// Found is the total number of items matching the query, or FoundUnknown.
type Page struct {
	Items []Item
	Found int
}

// ItemRepository provides network access to the remote collection.
type ItemRepository interface {
	// FetchItems returns the items matching the query, honoring page/number
	FetchItems(ctx context.Context, q Query) (Page, error)

	// DeleteItem removes an item at the source
	DeleteItem(ctx context.Context, key string) error
}

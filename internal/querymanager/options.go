package querymanager

import (
	"github.com/mmcdole/querycache/internal/domain"
)

// Policy decides whether an item belongs to the result set of a query.
// Implementations are supplied per entity type.
type Policy interface {
	Matches(q domain.Query, item domain.Item) bool
}

// Comparer is implemented by policies that define an order for query results.
// It returns a negative number when a sorts before b.
type Comparer interface {
	Compare(q domain.Query, a, b domain.Item) int
}

type matchAll struct{}

func (matchAll) Matches(domain.Query, domain.Item) bool { return true }

type config struct {
	itemKey      string
	defaultQuery domain.Query
	policy       Policy
	pagination   *Pagination
	reindex      bool
}

// Option configures a Manager at construction.
type Option func(*config)

// WithItemKey sets the identity field of received items.
func WithItemKey(field string) Option {
	return func(c *config) {
		if field != "" {
			c.itemKey = field
		}
	}
}

// WithDefaultQuery sets parameters merged under every query before keying.
func WithDefaultQuery(q domain.Query) Option {
	return func(c *config) {
		c.defaultQuery = q
	}
}

// WithPolicy sets the membership policy. A nil policy matches every item.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		if p == nil {
			p = matchAll{}
		}
		c.policy = p
	}
}

// WithPagination enables page windowing and family keys.
func WithPagination(p Pagination) Option {
	return func(c *config) {
		c.pagination = &p
	}
}

// WithReindex makes Receive re-evaluate every tracked query against the
// items it touched.
func WithReindex() Option {
	return func(c *config) {
		c.reindex = true
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		itemKey: domain.DefaultItemKey,
		policy:  matchAll{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type receiveConfig struct {
	patch      bool
	query      domain.Query
	mergeQuery *bool
	found      int
}

// ReceiveOption describes how a batch passed to Receive should be applied.
type ReceiveOption func(*receiveConfig)

// AsPatch merges received fields onto existing items instead of replacing them.
func AsPatch() ReceiveOption {
	return func(rc *receiveConfig) {
		rc.patch = true
	}
}

// ForQuery records the batch as the result (or one page of the result) of q.
func ForQuery(q domain.Query) ReceiveOption {
	return func(rc *receiveConfig) {
		rc.query = q
	}
}

// MergingQuery adds the received keys to those already tracked for the query.
func MergingQuery() ReceiveOption {
	return func(rc *receiveConfig) {
		merge := true
		rc.mergeQuery = &merge
	}
}

// ReplacingQuery discards previously tracked keys for the query.
// This is the default except for page receipts on a paginated manager.
func ReplacingQuery() ReceiveOption {
	return func(rc *receiveConfig) {
		merge := false
		rc.mergeQuery = &merge
	}
}

// WithFound reports the total number of items matching the query.
// Negative values are ignored.
func WithFound(n int) ReceiveOption {
	return func(rc *receiveConfig) {
		if n >= 0 {
			rc.found = n
		}
	}
}

func newReceiveConfig(opts []ReceiveOption) receiveConfig {
	rc := receiveConfig{found: domain.FoundUnknown}
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}

func (rc receiveConfig) merging(fallback bool) bool {
	if rc.mergeQuery == nil {
		return fallback
	}
	return *rc.mergeQuery
}

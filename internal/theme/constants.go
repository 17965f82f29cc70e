package theme

import "github.com/mmcdole/querycache/internal/domain"

// ItemKey is the identity field of a theme record.
const ItemKey = "id"

// DefaultPerPage is the page size used when a query does not name one.
const DefaultPerPage = 20

// DefaultQuery is merged under every theme query before keying and matching.
var DefaultQuery = domain.Query{
	"search":  "",
	"tier":    "",
	"filters": "",
	"number":  DefaultPerPage,
}

// SearchTaxonomies are the taxonomies whose term names a search text is matched against.
// Stored under "theme_<name>" in a theme's taxonomies.
var SearchTaxonomies = []string{"subject", "feature", "color", "style", "column", "layout"}

// Tier values understood by the tier filter.
const (
	TierAll     = ""
	TierFree    = "free"
	TierPremium = "premium"
)

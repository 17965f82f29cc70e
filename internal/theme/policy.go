package theme

import (
	"slices"
	"sort"
	"strings"

	"github.com/mmcdole/querycache/internal/domain"
	"github.com/mmcdole/querycache/internal/querymanager"
)

// predicate decides one query parameter for one theme.
type predicate func(value any, theme domain.Item) bool

// predicates maps each supported query parameter to its filter.
var predicates = map[string]predicate{
	"search":  matchSearch,
	"filters": matchFilters,
	"tier":    matchTier,
}

// Policy matches themes against theme queries.
//
// Each supported parameter (search, filters, tier) is one predicate and a
// theme matches when every predicate holds. Parameters without a predicate,
// pagination included, are ignored; use UnsupportedParams to reject them
// up front.
type Policy struct{}

var _ querymanager.Policy = Policy{}

// Matches reports whether theme satisfies q with DefaultQuery merged under it.
func (Policy) Matches(q domain.Query, theme domain.Item) bool {
	for name, match := range predicates {
		value, ok := q[name]
		if !ok {
			value = DefaultQuery[name]
		}
		if value == nil {
			continue
		}
		if !match(value, theme) {
			return false
		}
	}
	return true
}

// UnsupportedParams lists the parameters of q that no predicate understands,
// excluding pagination parameters.
func UnsupportedParams(q domain.Query) []string {
	paging := querymanager.DefaultPagination.Keys()
	var out []string
	for name := range q {
		if _, ok := predicates[name]; ok || slices.Contains(paging, name) {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// matchSearch is a caseless substring match over taxonomy term names, then
// name, author and long description.
func matchSearch(value any, theme domain.Item) bool {
	text, _ := value.(string)
	if strings.TrimSpace(text) == "" {
		return true
	}
	needle := fold(text)

	tax := taxonomies(theme)
	for _, name := range SearchTaxonomies {
		for _, t := range tax["theme_"+name] {
			if containsFold(t.name, needle) {
				return true
			}
		}
	}

	for _, field := range []string{"name", "author", "descriptionLong"} {
		if containsFold(theme.String(field), needle) {
			return true
		}
	}
	return false
}

// matchFilters requires every comma-separated slug to appear as a term in
// at least one of the theme's taxonomies.
func matchFilters(value any, theme domain.Item) bool {
	filters := splitFilters(value)
	if len(filters) == 0 {
		return true
	}

	tax := taxonomies(theme)
	for _, filter := range filters {
		if !hasTermSlug(tax, filter) {
			return false
		}
	}
	return true
}

// hasTermSlug compares slugs exactly; slugs are lowercase identifiers.
func hasTermSlug(tax map[string][]term, slug string) bool {
	for _, terms := range tax {
		for _, t := range terms {
			if t.slug == slug {
				return true
			}
		}
	}
	return false
}

func splitFilters(value any) []string {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	var out []string
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchTier selects premium themes for "premium", every theme for "" and
// free themes for any other value.
func matchTier(value any, theme domain.Item) bool {
	tier, _ := value.(string)
	if tier == TierAll {
		return true
	}
	return (tier == TierPremium) == IsPremium(theme)
}

package theme

import (
	"strings"

	"github.com/mmcdole/querycache/internal/domain"
	"golang.org/x/text/cases"
)

const premiumStylesheetPrefix = "premium/"

// IsPremium reports whether a theme is sold separately.
func IsPremium(theme domain.Item) bool {
	return strings.HasPrefix(theme.String("stylesheet"), premiumStylesheetPrefix)
}

type term struct {
	name string
	slug string
}

// taxonomies returns the theme's terms grouped by taxonomy name.
// Records decoded from JSON and records built in Go are both accepted.
func taxonomies(theme domain.Item) map[string][]term {
	out := make(map[string][]term)
	switch tx := theme["taxonomies"].(type) {
	case map[string]any:
		for name, list := range tx {
			out[name] = termsOf(list)
		}
	case domain.Item:
		for name, list := range tx {
			out[name] = termsOf(list)
		}
	case map[string][]map[string]any:
		for name, list := range tx {
			for _, t := range list {
				out[name] = append(out[name], termOf(t))
			}
		}
	case map[string][]any:
		for name, list := range tx {
			out[name] = termsOf(list)
		}
	}
	return out
}

func termsOf(v any) []term {
	var terms []term
	switch list := v.(type) {
	case []any:
		for _, elem := range list {
			switch t := elem.(type) {
			case map[string]any:
				terms = append(terms, termOf(t))
			case domain.Item:
				terms = append(terms, termOf(t))
			}
		}
	case []map[string]any:
		for _, t := range list {
			terms = append(terms, termOf(t))
		}
	case []domain.Item:
		for _, t := range list {
			terms = append(terms, termOf(t))
		}
	}
	return terms
}

func termOf(m map[string]any) term {
	name, _ := m["name"].(string)
	slug, _ := m["slug"].(string)
	return term{name: name, slug: slug}
}

// fold maps s to its case-folded form for caseless comparison.
func fold(s string) string {
	return cases.Fold().String(s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), needle)
}

package theme

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/querycache/internal/domain"
	sfuzzy "github.com/sahilm/fuzzy"
)

// Suggestion is a theme whose name resembles a search text.
type Suggestion struct {
	Theme          domain.Item
	Name           string
	MatchedIndexes []int // rune positions in Name, empty for typo matches
	Distance       int   // edit distance for typo matches, 0 otherwise
}

// nameIndex implements sahilm/fuzzy.Source over lowercase theme names.
type nameIndex []string

func (n nameIndex) String(i int) string { return n[i] }
func (n nameIndex) Len() int            { return len(n) }

// Suggest ranks themes by how well their names match text. Names containing
// text as a subsequence come first, best match first; when there are none,
// names within a small edit distance are offered instead. A limit of zero
// or less returns every suggestion.
func Suggest(themes []domain.Item, text string, limit int) []Suggestion {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || len(themes) == 0 {
		return nil
	}

	names := make(nameIndex, len(themes))
	for i, t := range themes {
		names[i] = strings.ToLower(t.String("name"))
	}

	var out []Suggestion
	for _, match := range sfuzzy.FindFrom(text, names) {
		out = append(out, Suggestion{
			Theme:          themes[match.Index],
			Name:           themes[match.Index].String("name"),
			MatchedIndexes: match.MatchedIndexes,
		})
	}
	if len(out) == 0 {
		out = typoSuggestions(themes, names, text)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func typoSuggestions(themes []domain.Item, names nameIndex, text string) []Suggestion {
	budget := allowedTypos(len([]rune(text)))
	if budget == 0 {
		return nil
	}

	var out []Suggestion
	for i, name := range names {
		best := fuzzy.LevenshteinDistance(text, name)
		for _, word := range strings.Fields(name) {
			best = min(best, fuzzy.LevenshteinDistance(text, word))
		}
		if best <= budget {
			out = append(out, Suggestion{
				Theme:    themes[i],
				Name:     themes[i].String("name"),
				Distance: best,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// allowedTypos returns the number of typos allowed based on word length
// 1-3 chars = 0, 4-6 chars = 1, 7+ chars = 2
func allowedTypos(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	default:
		return 2
	}
}

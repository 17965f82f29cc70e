package datalayer

import (
	"maps"

	"github.com/mmcdole/querycache/internal/domain"
)

// pageQuery returns a copy of q selecting one page.
func pageQuery(q domain.Query, page, perPage int) domain.Query {
	out := maps.Clone(q)
	if out == nil {
		out = domain.Query{}
	}
	out["page"] = page
	if _, ok := out["perPage"]; ok {
		out["perPage"] = perPage
	} else {
		out["number"] = perPage
	}
	return out
}

func pageCount(found, perPage int) int {
	if found <= 0 || perPage <= 0 {
		return 0
	}
	pages := found / perPage
	if found%perPage != 0 {
		pages++
	}
	return pages
}

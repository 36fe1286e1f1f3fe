package report

import (
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/differ"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/armon/go-radix"
)

// Filter selects the items a report shows.
type Filter struct {
	// OnlyProblems drops items with status OK.
	OnlyProblems bool
	// Under keeps the item at this path and everything below it.
	Under string
}

func (f Filter) active() bool {
	return f.OnlyProblems || trees.NormalizePath(f.Under) != ""
}

// Apply returns the matching items in their original order.
func (f Filter) Apply(items []differ.ResultItem) []differ.ResultItem {
	if !f.active() {
		return items
	}

	keep := make([]bool, len(items))
	prefix := trees.PathKey(f.Under)
	if prefix == "" {
		for i := range keep {
			keep[i] = true
		}
	} else {
		for _, i := range underPrefix(items, prefix) {
			keep[i] = true
		}
	}

	out := make([]differ.ResultItem, 0, len(items))
	for i, item := range items {
		if !keep[i] || (f.OnlyProblems && !item.Problem()) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// underPrefix indexes item paths in a radix tree and returns the indices at
// or below prefix, respecting segment boundaries.
func underPrefix(items []differ.ResultItem, prefix string) []int {
	tree := radix.New()
	for i, item := range items {
		key := trees.PathKey(item.Path)
		var indices []int
		if v, ok := tree.Get(key); ok {
			indices = v.([]int)
		}
		tree.Insert(key, append(indices, i))
	}

	var matched []int
	tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			matched = append(matched, v.([]int)...)
		}
		return false
	})
	sort.Ints(matched)
	return matched
}

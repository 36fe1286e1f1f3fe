package trees

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/armon/go-radix"
)

// IndexedEntry is a folder or a file stored in a PathIndex. Exactly one of
// Folder and File is set.
type IndexedEntry struct {
	Folder *FolderEntry
	File   *FileEntry
}

// Path returns the stored path of the entry.
func (e IndexedEntry) Path() string {
	if e.Folder != nil {
		return e.Folder.Path()
	}
	return e.File.Path
}

func (e IndexedEntry) IsFolder() bool { return e.Folder != nil }

// PathIndexStats tracks usage of the path index
type PathIndexStats struct {
	TotalEntries  int64
	PathLookups   int64
	PrefixLookups int64
	Insertions    int64
}

// PathIndex provides O(k) lookups of snapshot entries by case-folded path
// using a patricia tree, where k is the length of the searched path.
type PathIndex struct {
	tree  *radix.Tree
	mu    sync.RWMutex
	stats PathIndexStats
}

func NewPathIndex() *PathIndex {
	return &PathIndex{tree: radix.New()}
}

// IndexFolder builds an index over every entry of root, including root itself.
func IndexFolder(root *FolderEntry) *PathIndex {
	idx := NewPathIndex()
	if root == nil {
		return idx
	}
	root.Walk(func(folder *FolderEntry, file *FileEntry) bool {
		if folder != nil {
			idx.Insert(IndexedEntry{Folder: folder})
		} else {
			idx.Insert(IndexedEntry{File: file})
		}
		return true
	})
	slog.Debug("Path index built", "entries", idx.Size())
	return idx
}

// Insert adds an entry. A folder and a file may share a key; both are kept.
func (idx *PathIndex) Insert(entry IndexedEntry) {
	key := PathKey(entry.Path())

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var entries []IndexedEntry
	if existing, ok := idx.tree.Get(key); ok {
		entries = existing.([]IndexedEntry)
	}
	entries = append(entries, entry)
	idx.tree.Insert(key, entries)

	idx.stats.TotalEntries++
	idx.stats.Insertions++
}

// Lookup returns the entries stored under path.
func (idx *PathIndex) Lookup(path string) ([]IndexedEntry, bool) {
	key := PathKey(path)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stats.PathLookups++

	value, found := idx.tree.Get(key)
	if !found {
		slog.Debug("Path lookup miss", "path", key)
		return nil, false
	}
	return value.([]IndexedEntry), true
}

// Under returns the entry at prefix and all entries below it, in key order.
// Matching respects segment boundaries: "app" does not match "apple".
// An empty prefix returns every entry.
func (idx *PathIndex) Under(prefix string) []IndexedEntry {
	key := PathKey(prefix)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stats.PrefixLookups++

	var results []IndexedEntry
	idx.tree.WalkPrefix(key, func(k string, value interface{}) bool {
		if key == "" || k == key || strings.HasPrefix(k, key+"/") {
			results = append(results, value.([]IndexedEntry)...)
		}
		return false
	})

	slog.Debug("Prefix lookup completed", "prefix", key, "results_count", len(results))
	return results
}

// Contains reports whether path or anything below it is indexed.
func (idx *PathIndex) Contains(path string) bool {
	return len(idx.Under(path)) > 0
}

// Size returns the total number of entries in the index
func (idx *PathIndex) Size() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stats.TotalEntries
}

// GetStats returns a copy of the current statistics
func (idx *PathIndex) GetStats() PathIndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stats
}

// LookupFile returns the single file stored under path.
func (idx *PathIndex) LookupFile(path string) (*FileEntry, error) {
	entries, ok := idx.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("no entry for %q", path)
	}
	for _, e := range entries {
		if e.File != nil {
			return e.File, nil
		}
	}
	return nil, fmt.Errorf("%q is not a file", path)
}

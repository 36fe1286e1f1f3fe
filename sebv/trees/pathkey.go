package trees

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// PathKey returns the case-folded, slash separated form of p used to match
// entries across snapshots.
func PathKey(p string) string {
	return cases.Fold().String(NormalizePath(p))
}

// NormalizePath converts p to the stored form: slash separated, no leading
// or trailing separator, no "." segments.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s == "" || s == "." {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, "/")
}

// SamePath reports whether a and b name the same entry.
func SamePath(a, b string) bool {
	return PathKey(a) == PathKey(b)
}

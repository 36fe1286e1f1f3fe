package common

import (
	"path/filepath"
	"strings"
)

// PathUtils provides path manipulation utilities used across filesystem packages
type PathUtils struct{}

// NewPathUtils creates a new PathUtils instance
func NewPathUtils() *PathUtils {
	return &PathUtils{}
}

// NormalizePath returns the cleaned absolute form of path
func (pu *PathUtils) NormalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// IsSubpath checks if child is parent or lies below it. Comparison is
// case-insensitive, as on the file systems SEB is installed on.
func (pu *PathUtils) IsSubpath(parent, child string) bool {
	parent = strings.ToLower(pu.NormalizePath(parent))
	child = strings.ToLower(pu.NormalizePath(child))

	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RelativeSlashPath returns target relative to base in slash form, "" for base itself
func (pu *PathUtils) RelativeSlashPath(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// LastSegment returns the final element of path, ignoring trailing separators
func (pu *PathUtils) LastSegment(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return ""
	}
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

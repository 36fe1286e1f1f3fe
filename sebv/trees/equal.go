package trees

import "strings"

// Equal reports whether two trees hold the same entries in the same order
// with identical attributes. It is stricter than Matches.
func Equal(a, b *FolderEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.path != b.path || len(a.folders) != len(b.folders) || len(a.files) != len(b.files) {
		return false
	}
	for i := range a.files {
		if !EqualFiles(a.files[i], b.files[i]) {
			return false
		}
	}
	for i := range a.folders {
		if !Equal(a.folders[i], b.folders[i]) {
			return false
		}
	}
	return true
}

// EqualFiles compares every attribute, distinguishing absent from empty.
func EqualFiles(a, b FileEntry) bool {
	return a.Path == b.Path &&
		a.Checksum == b.Checksum &&
		a.Size == b.Size &&
		equalOptional(a.Signature, b.Signature) &&
		equalOptional(a.Version, b.Version) &&
		equalOptional(a.OriginalName, b.OriginalName)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Matches reports whether two trees are equal under the comparison rule:
// children are matched by PathKey regardless of order, and text attributes
// compare case-insensitively. Absent and empty values still differ.
func Matches(a, b *FolderEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	if PathKey(a.path) != PathKey(b.path) || len(a.folders) != len(b.folders) || len(a.files) != len(b.files) {
		return false
	}

	files := make(map[string]FileEntry, len(b.files))
	for _, f := range b.files {
		files[PathKey(f.Path)] = f
	}
	for _, f := range a.files {
		other, ok := files[PathKey(f.Path)]
		if !ok || !MatchesFile(f, other) {
			return false
		}
	}

	folders := make(map[string]*FolderEntry, len(b.folders))
	for _, f := range b.folders {
		folders[PathKey(f.path)] = f
	}
	for _, f := range a.folders {
		other, ok := folders[PathKey(f.path)]
		if !ok || !Matches(f, other) {
			return false
		}
	}
	return true
}

// MatchesFile is EqualFiles under the comparison rule.
func MatchesFile(a, b FileEntry) bool {
	return PathKey(a.Path) == PathKey(b.Path) &&
		strings.EqualFold(a.Checksum, b.Checksum) &&
		a.Size == b.Size &&
		matchOptional(a.Signature, b.Signature) &&
		matchOptional(a.Version, b.Version) &&
		matchOptional(a.OriginalName, b.OriginalName)
}

func matchOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return strings.EqualFold(*a, *b)
}

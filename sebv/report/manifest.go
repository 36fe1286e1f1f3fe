package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/pmezard/go-difflib/difflib"
)

// ManifestLines lists every entry of snap in pre-order, one per line.
// Folders end with a slash; files carry their fingerprint.
func ManifestLines(snap *trees.Snapshot, under string) []string {
	if snap == nil || snap.Root == nil {
		return nil
	}
	var lines []string
	for _, entry := range entriesUnder(snap.Root, under) {
		if entry.IsFolder() {
			lines = append(lines, displayPath(entry.Folder.Path())+folderSuffix(entry.Folder))
			continue
		}
		f := entry.File
		lines = append(lines, fmt.Sprintf("%s  sha256=%s size=%d signature=%s version=%s name=%s",
			f.Path, f.Checksum, f.Size, optional(f.Signature), optional(f.Version), optional(f.OriginalName)))
	}
	return lines
}

func folderSuffix(f *trees.FolderEntry) string {
	if f.IsRoot() {
		return ""
	}
	return "/"
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// entriesUnder returns the entries at and below prefix in walk order. The
// path index answers the prefix query; walk order is restored from the tree.
func entriesUnder(root *trees.FolderEntry, prefix string) []trees.IndexedEntry {
	var ordered []trees.IndexedEntry
	root.Walk(func(folder *trees.FolderEntry, file *trees.FileEntry) bool {
		if folder != nil {
			ordered = append(ordered, trees.IndexedEntry{Folder: folder})
		} else {
			ordered = append(ordered, trees.IndexedEntry{File: file})
		}
		return true
	})
	if trees.NormalizePath(prefix) == "" {
		return ordered
	}

	wanted := make(map[string]bool)
	for _, entry := range trees.IndexFolder(root).Under(prefix) {
		wanted[entryID(entry)] = true
	}
	out := ordered[:0]
	for _, entry := range ordered {
		if wanted[entryID(entry)] {
			out = append(out, entry)
		}
	}
	return out
}

func entryID(e trees.IndexedEntry) string {
	if e.IsFolder() {
		return "D:" + e.Folder.Path()
	}
	return "F:" + e.File.Path
}

// WriteManifest writes a heading and the manifest lines of snap.
func WriteManifest(w io.Writer, snap *trees.Snapshot, under string) error {
	if _, err := fmt.Fprintf(w, "# %s\n# %s\n", snap.Label(), snap.Info); err != nil {
		return err
	}
	for _, line := range ManifestLines(snap, under) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ManifestDiff returns a unified diff between the manifests of two
// snapshots, empty when they are identical.
func ManifestDiff(left, right *trees.Snapshot) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        withNewlines(ManifestLines(left, "")),
		B:        withNewlines(ManifestLines(right, "")),
		FromFile: left.Label(),
		ToFile:   right.Label(),
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff manifests: %w", err)
	}
	return text, nil
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, "\n") + "\n"
	}
	return out
}

// Package differ compares an installed snapshot tree against a reference
// tree and reports every folder and file as OK, Added, Missing or Changed.
//
// Entries are matched by path, case-insensitively. Results are emitted in
// pre-order: a folder's own item, then reference-driven child folders, then
// child folders only present in the installation, then reference-driven
// files, then files only present in the installation.
package differ

import (
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// Compare returns the results for installed against reference, starting
// with the item of the top-level folders themselves. Either side may be nil.
func Compare(installed, reference *trees.FolderEntry) []ResultItem {
	if installed == nil && reference == nil {
		return nil
	}
	var results []ResultItem
	compareFolders(installed, reference, func(item ResultItem) {
		results = append(results, item)
	})
	return results
}

// Verify is Compare without the item describing the root folder.
func Verify(installed, reference *trees.FolderEntry) []ResultItem {
	results := Compare(installed, reference)
	if len(results) == 0 {
		return results
	}
	return results[1:]
}

func sideStatus(installedMissing, referenceMissing bool) Status {
	switch {
	case installedMissing:
		return StatusMissing
	case referenceMissing:
		return StatusAdded
	default:
		return StatusOK
	}
}

func compareFolders(installed, reference *trees.FolderEntry, emit func(ResultItem)) {
	status := sideStatus(installed == nil, reference == nil)
	var path string
	if installed != nil {
		path = installed.Path()
	} else {
		path = reference.Path()
	}
	emit(ResultItem{
		Path:    path,
		Type:    TypeFolder,
		Status:  status,
		Remarks: buildRemarks(TypeFolder, status, nil),
	})

	var installedFolders, referenceFolders []*trees.FolderEntry
	var installedFiles, referenceFiles []trees.FileEntry
	if installed != nil {
		installedFolders = installed.Folders()
		installedFiles = installed.Files()
	}
	if reference != nil {
		referenceFolders = reference.Folders()
		referenceFiles = reference.Files()
	}

	folders := newUnmatched(len(installedFolders), func(i int) string { return installedFolders[i].Path() })
	for _, ref := range referenceFolders {
		var match *trees.FolderEntry
		if i, ok := folders.take(ref.Path()); ok {
			match = installedFolders[i]
		}
		compareFolders(match, ref, emit)
	}
	for _, i := range folders.remaining() {
		compareFolders(installedFolders[i], nil, emit)
	}

	files := newUnmatched(len(installedFiles), func(i int) string { return installedFiles[i].Path })
	for i := range referenceFiles {
		ref := &referenceFiles[i]
		var match *trees.FileEntry
		if j, ok := files.take(ref.Path); ok {
			match = &installedFiles[j]
		}
		emit(CompareFiles(match, ref))
	}
	for _, i := range files.remaining() {
		emit(CompareFiles(&installedFiles[i], nil))
	}
}

// CompareFiles compares a single pair of files. At least one side must be
// non-nil. Reference attributes that are absent are not compared; checksum
// and size are always compared.
func CompareFiles(installed, reference *trees.FileEntry) ResultItem {
	status := sideStatus(installed == nil, reference == nil)
	var path string
	if installed != nil {
		path = installed.Path
	} else {
		path = reference.Path
	}

	var mismatches []FieldMismatch
	if installed != nil && reference != nil {
		check := func(field Field, installedValue, referenceValue *string) {
			if referenceValue == nil {
				return
			}
			if installedValue == nil || !strings.EqualFold(*installedValue, *referenceValue) {
				mismatches = append(mismatches, FieldMismatch{Field: field, Installed: installedValue, Reference: referenceValue})
			}
		}

		check(FieldChecksum, &installed.Checksum, &reference.Checksum)
		check(FieldOriginalName, installed.OriginalName, reference.OriginalName)
		check(FieldSignature, installed.Signature, reference.Signature)
		if installed.Size != reference.Size {
			mismatches = append(mismatches, FieldMismatch{
				Field:     FieldSize,
				Installed: trees.Optional(strconv.FormatInt(installed.Size, 10)),
				Reference: trees.Optional(strconv.FormatInt(reference.Size, 10)),
			})
		}
		check(FieldVersion, installed.Version, reference.Version)

		if len(mismatches) > 0 {
			status = StatusChanged
		}
	}

	return ResultItem{
		Path:       path,
		Type:       TypeFile,
		Status:     status,
		Remarks:    buildRemarks(TypeFile, status, mismatches),
		Mismatches: mismatches,
	}
}

// unmatched is a multiset of installed children keyed by trees.PathKey.
// take consumes the first unconsumed index for a key; remaining returns the
// unconsumed indices in their original order.
type unmatched struct {
	byKey    map[string][]int
	consumed []bool
}

func newUnmatched(n int, pathOf func(int) string) *unmatched {
	u := &unmatched{byKey: make(map[string][]int, n), consumed: make([]bool, n)}
	for i := 0; i < n; i++ {
		key := trees.PathKey(pathOf(i))
		u.byKey[key] = append(u.byKey[key], i)
	}
	return u
}

func (u *unmatched) take(path string) (int, bool) {
	key := trees.PathKey(path)
	indices := u.byKey[key]
	if len(indices) == 0 {
		return 0, false
	}
	i := indices[0]
	u.byKey[key] = indices[1:]
	u.consumed[i] = true
	return i, true
}

func (u *unmatched) remaining() []int {
	var out []int
	for i, done := range u.consumed {
		if !done {
			out = append(out, i)
		}
	}
	return out
}

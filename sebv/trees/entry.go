package trees

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
)

var (
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidEntry   = errors.New("invalid entry")
)

// FileEntry is the fingerprint of a single file. Path is relative to the
// snapshot root, slash separated and without a leading separator.
// Optional attributes are nil when absent; a non-nil empty string is a value.
type FileEntry struct {
	Path         string  `json:"path"`
	Checksum     string  `json:"checksum"`
	Signature    *string `json:"signature,omitempty"`
	Size         int64   `json:"size"`
	Version      *string `json:"version,omitempty"`
	OriginalName *string `json:"originalName,omitempty"`
}

// Name returns the final path segment.
func (f FileEntry) Name() string {
	return path.Base(f.Path)
}

// Validate checks the structural constraints of a file entry.
func (f FileEntry) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("%w: file path is empty", ErrInvalidEntry)
	}
	if f.Size < 0 {
		return fmt.Errorf("%w: negative size for %s", ErrInvalidEntry, f.Path)
	}
	return nil
}

// FolderEntry is an immutable node of a snapshot tree. The root has an empty
// path. Children are kept in build order and exposed as copies.
type FolderEntry struct {
	path    string
	folders []*FolderEntry
	files   []FileEntry
}

// NewFolderEntry creates a folder holding the given children. Two children of
// the same kind whose paths are equal under case folding are rejected.
func NewFolderEntry(p string, folders []*FolderEntry, files []FileEntry) (*FolderEntry, error) {
	seen := make(map[string]string, len(folders))
	for _, folder := range folders {
		if folder == nil {
			return nil, fmt.Errorf("%w: nil child folder in %q", ErrInvalidEntry, p)
		}
		key := PathKey(folder.path)
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: folders %q and %q in %q differ only in case", ErrDuplicateEntry, first, folder.path, p)
		}
		seen[key] = folder.path
	}

	seen = make(map[string]string, len(files))
	for _, file := range files {
		if err := file.Validate(); err != nil {
			return nil, err
		}
		key := PathKey(file.Path)
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: files %q and %q in %q differ only in case", ErrDuplicateEntry, first, file.Path, p)
		}
		seen[key] = file.Path
	}

	return &FolderEntry{
		path:    p,
		folders: slices.Clone(folders),
		files:   slices.Clone(files),
	}, nil
}

// MustFolderEntry is like NewFolderEntry but panics on invalid input.
// Intended for fixtures.
func MustFolderEntry(p string, folders []*FolderEntry, files []FileEntry) *FolderEntry {
	f, err := NewFolderEntry(p, folders, files)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *FolderEntry) Path() string { return f.path }

// Name returns the final path segment, or "" for the root.
func (f *FolderEntry) Name() string {
	if f.path == "" {
		return ""
	}
	return path.Base(f.path)
}

// Folders returns a copy of the child folders in order.
func (f *FolderEntry) Folders() []*FolderEntry { return slices.Clone(f.folders) }

// Files returns a copy of the child files in order.
func (f *FolderEntry) Files() []FileEntry { return slices.Clone(f.files) }

func (f *FolderEntry) IsRoot() bool { return f.path == "" }

type folderJSON struct {
	Path    string         `json:"path"`
	Folders []*FolderEntry `json:"folders"`
	Files   []FileEntry    `json:"files"`
}

func (f *FolderEntry) MarshalJSON() ([]byte, error) {
	folders := f.folders
	if folders == nil {
		folders = []*FolderEntry{}
	}
	files := f.files
	if files == nil {
		files = []FileEntry{}
	}
	return json.Marshal(folderJSON{Path: f.path, Folders: folders, Files: files})
}

func (f *FolderEntry) UnmarshalJSON(data []byte) error {
	var raw folderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewFolderEntry(raw.Path, raw.Folders, raw.Files)
	if err != nil {
		return err
	}
	*f = *built
	return nil
}

// Walk visits the folder and its descendants in pre-order, folders before
// files. Returning false from fn stops the walk.
func (f *FolderEntry) Walk(fn func(folder *FolderEntry, file *FileEntry) bool) bool {
	if !fn(f, nil) {
		return false
	}
	for _, child := range f.folders {
		if !child.Walk(fn) {
			return false
		}
	}
	for i := range f.files {
		file := f.files[i]
		if !fn(nil, &file) {
			return false
		}
	}
	return true
}

// Count returns the number of folders (including f) and files in the tree.
func (f *FolderEntry) Count() (folders, files int) {
	f.Walk(func(folder *FolderEntry, file *FileEntry) bool {
		if folder != nil {
			folders++
		} else {
			files++
		}
		return true
	})
	return folders, files
}

// Optional returns a pointer to s, for constructing optional attributes.
func Optional(s string) *string { return &s }

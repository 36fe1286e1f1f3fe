package interfaces

import (
	"context"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// Fingerprinter produces the FileEntry of a single file. absPath is read,
// relPath is recorded.
type Fingerprinter interface {
	Fingerprint(absPath, relPath string) (trees.FileEntry, error)
}

// TreeBuilder walks a directory into an immutable snapshot tree
type TreeBuilder interface {
	Build(ctx context.Context, rootPath string) (*trees.FolderEntry, error)
}

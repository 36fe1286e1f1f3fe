package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/interfaces"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/options"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"
)

// Builder walks an installation directory into a snapshot tree. The walk
// itself is sequential; file fingerprints are computed on a bounded conc
// pool and written into pre-assigned slots, so the resulting order depends
// only on the directory listing.
type Builder struct {
	fingerprinter interfaces.Fingerprinter
	opts          options.BuildOptions
	ignore        *ignore.GitIgnore
	logger        *slog.Logger
	paths         *common.PathUtils
	validation    *common.ValidationUtils
}

var _ interfaces.TreeBuilder = (*Builder)(nil)

// NewBuilder creates a builder that fingerprints files with fp.
func NewBuilder(fp interfaces.Fingerprinter, opts options.BuildOptions) *Builder {
	opts = opts.Normalized()
	b := &Builder{
		fingerprinter: fp,
		opts:          opts,
		logger:        slog.Default(),
		paths:         common.NewPathUtils(),
		validation:    common.NewValidationUtils(),
	}
	if len(opts.IgnorePatterns) > 0 {
		b.ignore = ignore.CompileIgnoreLines(opts.IgnorePatterns...)
	}
	return b
}

// WithLogger sets the logger used for diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// folderScan is the mutable form of a folder while the walk is running.
type folderScan struct {
	rel     string
	folders []*folderScan
	files   []trees.FileEntry
}

type fileJob struct {
	abs  string
	rel  string
	slot *trees.FileEntry
	// link is the finished entry of an unfollowed symlink.
	link *trees.FileEntry
}

// Build walks rootPath and returns its tree. Any I/O failure aborts the
// build with a *common.BuildError naming the offending path; no partial tree
// is returned.
func (b *Builder) Build(ctx context.Context, rootPath string) (*trees.FolderEntry, error) {
	if err := b.validation.ValidateDirectoryExists(rootPath); err != nil {
		return nil, common.NewBuildError("stat", rootPath, err)
	}
	root := b.paths.NormalizePath(rootPath)
	metrics := common.NewBuildMetrics()

	var jobs []fileJob
	ancestors := make(map[string]struct{})
	scan, err := b.scanDir(ctx, root, "", ancestors, &jobs, metrics)
	if err != nil {
		return nil, err
	}

	if err := b.fingerprintAll(ctx, jobs, metrics); err != nil {
		return nil, err
	}

	tree, err := freeze(scan)
	if errors.Is(err, trees.ErrDuplicateEntry) {
		b.logger.Error("Entries collide under case folding", "root", root, "error", err)
		return nil, common.NewBuildError("collide", root, err)
	}
	if err != nil {
		return nil, common.NewBuildError("assemble", root, err)
	}

	metrics.Finish()
	b.logger.Info("Tree build completed", "root", root, "metrics", metrics.Snapshot())
	return tree, nil
}

func (b *Builder) scanDir(ctx context.Context, abs, rel string, ancestors map[string]struct{}, jobs *[]fileJob, metrics *common.BuildMetrics) (*folderScan, error) {
	if err := b.validation.ValidateContextCancellation(ctx); err != nil {
		return nil, err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, common.NewBuildError("resolve", abs, err)
	}
	if _, loop := ancestors[resolved]; loop {
		return nil, common.NewBuildError("descend", abs, common.ErrSymlinkLoop)
	}
	ancestors[resolved] = struct{}{}
	defer delete(ancestors, resolved)

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, common.NewBuildError("read", abs, err)
	}
	metrics.AddDir()

	scan := &folderScan{rel: rel}
	var files []fileJob
	for _, entry := range entries {
		childAbs := filepath.Join(abs, entry.Name())
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}

		kind, err := b.classify(childAbs, entry)
		if err != nil {
			return nil, err
		}

		switch kind {
		case kindDir:
			if b.ignored(childRel, true) {
				b.logger.Debug("Skipping ignored folder", "path", childRel)
				continue
			}
			child, err := b.scanDir(ctx, childAbs, childRel, ancestors, jobs, metrics)
			if err != nil {
				return nil, err
			}
			scan.folders = append(scan.folders, child)
		case kindFile:
			if b.ignored(childRel, false) {
				b.logger.Debug("Skipping ignored file", "path", childRel)
				continue
			}
			files = append(files, fileJob{abs: childAbs, rel: childRel})
		case kindLink:
			if b.ignored(childRel, false) {
				continue
			}
			link, err := linkEntry(childAbs, childRel)
			if err != nil {
				return nil, err
			}
			b.logger.Warn("Recording unfollowed symlink", "path", childRel, "target", *link.OriginalName)
			files = append(files, fileJob{abs: childAbs, rel: childRel, link: &link})
		default:
			b.logger.Warn("Skipping unsupported entry", "path", childAbs, "mode", entry.Type().String())
		}
	}

	// Slots are taken once the slice has its final length.
	scan.files = make([]trees.FileEntry, len(files))
	for i := range files {
		if files[i].link != nil {
			scan.files[i] = *files[i].link
			metrics.AddFile()
			continue
		}
		files[i].slot = &scan.files[i]
		*jobs = append(*jobs, files[i])
	}
	return scan, nil
}

type entryKind int

const (
	kindSkip entryKind = iota
	kindDir
	kindFile
	kindLink
)

func (b *Builder) classify(abs string, entry fs.DirEntry) (entryKind, error) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return kindDir, nil
	case mode.IsRegular():
		return kindFile, nil
	case mode&fs.ModeSymlink != 0:
		if !b.opts.FollowSymlinks {
			return kindLink, nil
		}
		info, err := os.Stat(abs)
		if err != nil {
			return kindSkip, common.NewBuildError("stat", abs, err)
		}
		if info.IsDir() {
			return kindDir, nil
		}
		if info.Mode().IsRegular() {
			return kindFile, nil
		}
	}
	return kindSkip, nil
}

func (b *Builder) ignored(rel string, isDir bool) bool {
	if b.ignore == nil {
		return false
	}
	if isDir && b.ignore.MatchesPath(rel+"/") {
		return true
	}
	return b.ignore.MatchesPath(rel)
}

func (b *Builder) fingerprintAll(ctx context.Context, jobs []fileJob, metrics *common.BuildMetrics) error {
	p := pool.New().
		WithMaxGoroutines(b.opts.Workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for _, job := range jobs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := b.fingerprinter.Fingerprint(job.abs, job.rel)
			if err != nil {
				return common.NewBuildError("fingerprint", job.abs, err)
			}
			*job.slot = entry
			metrics.AddFile()
			metrics.AddBytes(entry.Size)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		b.logger.Error("Fingerprinting failed", "error", err)
		return err
	}
	return nil
}

// linkEntry records a symlink without following it: the checksum covers the
// link target and the target is kept as original name.
func linkEntry(abs, rel string) (trees.FileEntry, error) {
	target, err := os.Readlink(abs)
	if err != nil {
		return trees.FileEntry{}, common.NewBuildError("readlink", abs, err)
	}
	target = filepath.ToSlash(target)
	return trees.FileEntry{
		Path:         rel,
		Checksum:     hashing.DigestBytes([]byte(target)),
		Size:         int64(len(target)),
		OriginalName: trees.Optional(target),
	}, nil
}

// freeze converts the scan into immutable entries, children first.
func freeze(scan *folderScan) (*trees.FolderEntry, error) {
	folders := make([]*trees.FolderEntry, 0, len(scan.folders))
	for _, child := range scan.folders {
		frozen, err := freeze(child)
		if err != nil {
			return nil, err
		}
		folders = append(folders, frozen)
	}
	entry, err := trees.NewFolderEntry(scan.rel, folders, scan.files)
	if err != nil {
		return nil, fmt.Errorf("folder %q: %w", scan.rel, err)
	}
	return entry, nil
}

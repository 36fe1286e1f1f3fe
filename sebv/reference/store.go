package reference

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

//go:embed bundled
var bundled embed.FS

// Store yields candidate reference snapshots. Implementations return every
// valid snapshot they hold; invalid entries are reported through a joined
// error alongside the valid results.
type Store interface {
	LoadAll(ctx context.Context) ([]*trees.Snapshot, error)
}

// FileName returns the canonical file name of a reference.
func FileName(snap *trees.Snapshot) string {
	return snap.Label() + internal.ReferenceFileExtension
}

// IsReferenceFile reports whether name carries the reference extension.
func IsReferenceFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), internal.ReferenceFileExtension)
}

// Save writes snap into dir under its canonical name and returns the path.
// The file is written to a temporary sibling first and renamed into place.
func Save(snap *trees.Snapshot, dir string) (string, error) {
	data, err := Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode reference: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reference directory: %w", err)
	}

	final := filepath.Join(dir, FileName(snap))
	f, err := os.CreateTemp(dir, ".tmp-"+FileName(snap)+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move reference into place: %w", err)
	}
	return final, nil
}

// Load reads a single reference file. Decoding failures are reported as
// *InvalidReferenceError; failures to open the file are returned as is.
func Load(p string) (*trees.Snapshot, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		var invalid *InvalidReferenceError
		if errors.As(err, &invalid) {
			invalid.Source = p
		}
		return nil, err
	}
	return snap, nil
}

// FileStore loads an explicit list of reference files.
type FileStore struct {
	Paths []string
}

func (s FileStore) LoadAll(ctx context.Context) ([]*trees.Snapshot, error) {
	var snaps []*trees.Snapshot
	var errs []error
	for _, p := range s.Paths {
		if err := ctx.Err(); err != nil {
			return snaps, err
		}
		snap, err := Load(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, errors.Join(errs...)
}

// DirectoryStore loads every reference file found directly inside each of
// its directories. Directories that do not exist are skipped.
type DirectoryStore struct {
	Dirs []string
}

func (s DirectoryStore) LoadAll(ctx context.Context) ([]*trees.Snapshot, error) {
	var snaps []*trees.Snapshot
	var errs []error
	for _, dir := range s.Dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Reference directory does not exist", "dir", dir)
				continue
			}
			errs = append(errs, fmt.Errorf("failed to list references in %s: %w", dir, err))
			continue
		}

		var paths []string
		for _, entry := range entries {
			if entry.Type().IsRegular() && IsReferenceFile(entry.Name()) {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
		found, err := FileStore{Paths: paths}.LoadAll(ctx)
		snaps = append(snaps, found...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return snaps, errors.Join(errs...)
}

// FSStore loads every reference file at the top level of an fs.FS.
type FSStore struct {
	FS fs.FS
}

// Bundled returns the store of references compiled into the binary.
func Bundled() FSStore {
	sub, err := fs.Sub(bundled, "bundled")
	if err != nil {
		panic(err)
	}
	return FSStore{FS: sub}
}

func (s FSStore) LoadAll(ctx context.Context) ([]*trees.Snapshot, error) {
	entries, err := fs.ReadDir(s.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list bundled references: %w", err)
	}

	var snaps []*trees.Snapshot
	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return snaps, err
		}
		if entry.IsDir() || !IsReferenceFile(entry.Name()) {
			continue
		}
		snap, err := s.load(entry.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, errors.Join(errs...)
}

func (s FSStore) load(name string) (*trees.Snapshot, error) {
	f, err := s.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundled reference %s: %w", name, err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		var invalid *InvalidReferenceError
		if errors.As(err, &invalid) {
			invalid.Source = path.Join("bundled", name)
		}
		return nil, err
	}
	return snap, nil
}

// MultiStore concatenates the results of its stores in order.
type MultiStore []Store

func (m MultiStore) LoadAll(ctx context.Context) ([]*trees.Snapshot, error) {
	var snaps []*trees.Snapshot
	var errs []error
	for _, store := range m {
		found, err := store.LoadAll(ctx)
		snaps = append(snaps, found...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return snaps, errors.Join(errs...)
}

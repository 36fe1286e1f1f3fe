// Package detector identifies the version and platform of a Safe Exam
// Browser installation and searches the host for one.
package detector

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/pefile"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

var (
	ErrNoMainExecutable = errors.New("main executable not found")
	ErrNoVersion        = errors.New("main executable declares no version")
)

// VersionReader returns the declared file version of an executable.
type VersionReader interface {
	FileVersion(path string) (string, error)
}

// PEVersionReader reads FileVersion from the PE version resource.
type PEVersionReader struct{}

func (PEVersionReader) FileVersion(path string) (string, error) {
	info, err := pefile.ReadVersionInfo(path)
	if err != nil {
		return "", err
	}
	return info.FileVersion, nil
}

// Detector inspects installation roots.
type Detector struct {
	env            Environment
	versions       VersionReader
	productName    string
	mainExecutable string
	paths          *common.PathUtils
	logger         *slog.Logger
}

type Option func(*Detector)

// WithVersionReader replaces the PE based version reader.
func WithVersionReader(r VersionReader) Option {
	return func(d *Detector) { d.versions = r }
}

// WithProductName changes the directory name installations must carry.
func WithProductName(name string) Option {
	return func(d *Detector) { d.productName = name }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// New returns a Detector for env. A nil env means the running host.
func New(env Environment, opts ...Option) *Detector {
	if env == nil {
		env = NewHostEnvironment("", "")
	}
	d := &Detector{
		env:            env,
		versions:       PEVersionReader{},
		productName:    internal.DefaultProductName,
		mainExecutable: internal.DefaultMainExecutable,
		paths:          common.NewPathUtils(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MainExecutable returns the path of the main executable below root.
func (d *Detector) MainExecutable(root string) string {
	return filepath.Join(root, d.mainExecutable)
}

// Detect returns the platform and declared version of the installation at
// root.
func (d *Detector) Detect(root string) (trees.Platform, string, error) {
	exe := d.MainExecutable(root)
	info, err := os.Stat(exe)
	if err != nil || info.IsDir() {
		return trees.PlatformUndefined, "", fmt.Errorf("%w: %s", ErrNoMainExecutable, exe)
	}

	version, err := d.versions.FileVersion(exe)
	if err != nil {
		return trees.PlatformUndefined, "", fmt.Errorf("failed to read version of %s: %w", exe, err)
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return trees.PlatformUndefined, "", fmt.Errorf("%w: %s", ErrNoVersion, exe)
	}

	platform := d.platformOf(root)
	d.logger.Debug("Detected installation", "root", root, "version", version, "platform", platform)
	return platform, version, nil
}

func (d *Detector) platformOf(root string) trees.Platform {
	if !d.env.Is64BitOS() {
		return trees.PlatformX86
	}
	_, programFilesX86 := d.env.ProgramDirectories()
	if programFilesX86 != "" && d.paths.IsSubpath(programFilesX86, root) {
		return trees.PlatformX86
	}
	return trees.PlatformX64
}

// IsValidInstallation reports whether path is named after the product and
// its version and platform can be determined.
func (d *Detector) IsValidInstallation(path string) bool {
	if !strings.EqualFold(d.paths.LastSegment(path), d.productName) {
		return false
	}
	platform, _, err := d.Detect(path)
	if err != nil {
		d.logger.Debug("Not a valid installation", "path", path, "error", err)
		return false
	}
	return platform != trees.PlatformUndefined
}

// SearchInstallation scans the 64-bit and then the 32-bit program directory
// for the first valid installation.
func (d *Detector) SearchInstallation() (string, bool) {
	programFiles, programFilesX86 := d.env.ProgramDirectories()

	seen := make(map[string]bool, 2)
	for _, dir := range []string{programFiles, programFilesX86} {
		if dir == "" {
			continue
		}
		key := strings.ToLower(d.paths.NormalizePath(dir))
		if seen[key] {
			continue
		}
		seen[key] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			d.logger.Debug("Skipping program directory", "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			candidate := filepath.Join(dir, entry.Name())
			if !isDir(entry, candidate) {
				continue
			}
			if d.IsValidInstallation(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Package discovery finds Safe Exam Browser configuration files.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"
)

// Configuration is a configuration file found below a search root.
type Configuration struct {
	AbsolutePath string `json:"absolutePath"`
	RelativePath string `json:"relativePath"`
}

// Name returns the file name of the configuration.
func (c Configuration) Name() string {
	return filepath.Base(c.AbsolutePath)
}

// IsConfigurationFile reports whether name carries the configuration
// extension, ignoring case.
func IsConfigurationFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), internal.ConfigurationFileExtension)
}

// FindConfigurations returns every configuration file below root, sorted by
// relative path. Unreadable subdirectories are skipped.
func FindConfigurations(ctx context.Context, root string) ([]Configuration, error) {
	validator := common.NewValidationUtils()
	if err := validator.ValidateDirectoryExists(root); err != nil {
		return nil, common.NewBuildError("discover", root, err)
	}

	paths := common.NewPathUtils()
	abs := paths.NormalizePath(root)

	var found []Configuration
	err := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := validator.ValidateContextCancellation(ctx); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == abs {
				return err
			}
			slog.Debug("Skipping unreadable entry", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() || !IsConfigurationFile(d.Name()) {
			return nil
		}

		rel, err := paths.RelativeSlashPath(abs, p)
		if err != nil {
			return err
		}
		found = append(found, Configuration{AbsolutePath: p, RelativePath: rel})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewBuildError("discover", root, fmt.Errorf("failed to walk configurations: %w", err))
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := strings.ToLower(found[i].RelativePath), strings.ToLower(found[j].RelativePath)
		if a != b {
			return a < b
		}
		return found[i].RelativePath < found[j].RelativePath
	})
	return found, nil
}

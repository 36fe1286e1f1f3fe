package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Common error types used across filesystem packages
var (
	ErrPathEmpty    = errors.New("path cannot be empty")
	ErrPathTooLong  = errors.New("path too long (max 4096 characters)")
	ErrPathInvalid  = errors.New("path contains invalid characters")
	ErrRootNotFound = errors.New("root does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
	ErrSymlinkLoop  = errors.New("symbolic link loop")
)

// BuildError reports the filesystem operation and path that failed while
// building a snapshot tree.
type BuildError struct {
	Op   string
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// NewBuildError wraps err unless it already is a *BuildError or a context error.
func NewBuildError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var be *BuildError
	if errors.As(err, &be) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BuildError{Op: op, Path: path, Err: err}
}

// ValidationUtils provides common validation utilities used across packages
type ValidationUtils struct{}

// NewValidationUtils creates a new ValidationUtils instance
func NewValidationUtils() *ValidationUtils {
	return &ValidationUtils{}
}

// ValidateContextCancellation checks if context is cancelled and returns appropriate error
func (vu *ValidationUtils) ValidateContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ValidatePath rejects empty, overlong and NUL-containing paths
func (vu *ValidationUtils) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrPathEmpty
	}
	if len(path) > 4096 {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return ErrPathInvalid
	}
	return nil
}

// ValidateDirectoryExists validates that a directory exists
func (vu *ValidationUtils) ValidateDirectoryExists(path string) error {
	if err := vu.ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, path)
		}
		return fmt.Errorf("failed to access directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

package options

import (
	"runtime"
)

// BuildOptions configures a snapshot tree build
type BuildOptions struct {
	Workers        int      // Concurrent fingerprint workers (0 = derive from CPU count)
	IgnorePatterns []string // Patterns to exclude, gitignore syntax, relative to the root
	FollowSymlinks bool     // Descend into symlinked directories and hash symlinked files
}

// DefaultWorkers returns the worker count used when none is configured:
// CPU cores * 2 for I/O bound work, clamped to [4, 32].
func DefaultWorkers() int {
	return min(max(runtime.NumCPU()*2, 4), 32)
}

// DefaultBuildOptions walks everything and follows symlinks
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Workers:        DefaultWorkers(),
		FollowSymlinks: true,
	}
}

// Normalized returns a copy with a usable worker count
func (o BuildOptions) Normalized() BuildOptions {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers()
	}
	return o
}

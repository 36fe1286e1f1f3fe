package filesystem

import (
	"context"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/options"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// NewDefaultBuilder creates a builder backed by a hashing.Hasher.
func NewDefaultBuilder(opts options.BuildOptions, hasherOpts ...hashing.Option) *Builder {
	return NewBuilder(hashing.New(hasherOpts...), opts)
}

// Snapshot builds the tree of root and labels it with the given identity.
func (b *Builder) Snapshot(ctx context.Context, root, version string, platform trees.Platform, info string) (*trees.Snapshot, error) {
	tree, err := b.Build(ctx, root)
	if err != nil {
		return nil, err
	}
	return &trees.Snapshot{
		Info:     info,
		Version:  version,
		Platform: platform,
		Root:     tree,
	}, nil
}

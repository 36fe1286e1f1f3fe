package filesystem

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/options"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSnapshot(t *testing.T) {
	root := installationFixture(t)
	b := NewDefaultBuilder(options.DefaultBuildOptions(), hashing.WithSignatureExtensions(".exe"))

	snap, err := b.Snapshot(context.Background(), root, "3.4.0.1", trees.PlatformX64, "test")
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	assert.Equal(t, "3.4.0.1", snap.Version)
	assert.Equal(t, trees.PlatformX64, snap.Platform)
	assert.Equal(t, "test", snap.Info)

	_, files := snap.Root.Count()
	assert.Equal(t, 6, files)

	_, err = b.Snapshot(context.Background(), root+"-missing", "3.4.0.1", trees.PlatformX64, "test")
	assert.Error(t, err)
}

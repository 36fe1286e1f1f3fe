package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfigurations(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"exam.seb",
		"Nested/Final.SEB",
		"Nested/deeper/mock.seb",
		"notes.txt",
		"exam.seb.bak",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("<plist/>"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "folder.seb"), 0o755))

	configs, err := FindConfigurations(context.Background(), root)
	require.NoError(t, err)

	var rels []string
	for _, c := range configs {
		rels = append(rels, c.RelativePath)
		assert.True(t, filepath.IsAbs(c.AbsolutePath))
		assert.FileExists(t, c.AbsolutePath)
	}
	assert.Equal(t, []string{"exam.seb", "Nested/deeper/mock.seb", "Nested/Final.SEB"}, rels)
	assert.Equal(t, "Final.SEB", configs[2].Name())
}

func TestFindConfigurationsErrors(t *testing.T) {
	_, err := FindConfigurations(context.Background(), filepath.Join(t.TempDir(), "missing"))
	var be *common.BuildError
	assert.ErrorAs(t, err, &be)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FindConfigurations(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsConfigurationFile(t *testing.T) {
	assert.True(t, IsConfigurationFile("a.seb"))
	assert.True(t, IsConfigurationFile("A.SeB"))
	assert.False(t, IsConfigurationFile("a.sebref"))
	assert.False(t, IsConfigurationFile("seb"))
}

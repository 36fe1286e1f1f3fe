package ports

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalMessages(t *testing.T) {
	var out bytes.Buffer
	ti := NewTerminalInteractor(strings.NewReader(""), &out)

	ti.Output("hello")
	ti.Warning("careful")
	ti.Error("failed", errors.New("boom"))
	ti.Error("plain", nil)
	ti.StartSpinner("Building snapshot")
	ti.StopSpinner(false, "Building snapshot")

	assert.Equal(t, "hello\nWarning: careful\nError: failed: boom\nError: plain\nBuilding snapshot...\nBuilding snapshot (failed)\n", out.String())
}

func TestSelectDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.sebref")
	assert.NoError(t, os.WriteFile(file, nil, 0o644))

	var out bytes.Buffer
	input := strings.Join([]string{filepath.Join(dir, "missing"), file, `"` + dir + `"`}, "\n") + "\n"
	ti := NewTerminalInteractor(strings.NewReader(input), &out)

	got, ok := ti.SelectDirectory("Installation folder:")
	assert.True(t, ok)
	assert.Equal(t, dir, got)
	assert.Contains(t, out.String(), "does not exist")
	assert.Contains(t, out.String(), "is not a directory")

	_, ok = ti.SelectDirectory("Again:")
	assert.False(t, ok, "end of input declines")
}

func TestSelectFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "SEB_3.4.0_x64.sebref")
	assert.NoError(t, os.WriteFile(file, nil, 0o644))

	var out bytes.Buffer
	ti := NewTerminalInteractor(strings.NewReader(dir+"\n"+file+"\n\n"), &out)

	got, ok := ti.SelectFile("Reference:")
	assert.True(t, ok)
	assert.Equal(t, file, got)
	assert.Contains(t, out.String(), "is a directory")

	_, ok = ti.SelectFile("Reference:")
	assert.False(t, ok, "empty line declines")
}

func TestConfirm(t *testing.T) {
	ti := NewTerminalInteractor(strings.NewReader("maybe\ny\n\nNO\n"), &bytes.Buffer{})
	assert.True(t, ti.Confirm("Save reference?", false))
	assert.True(t, ti.Confirm("Save reference?", true))
	assert.False(t, ti.Confirm("Save reference?", true))
	assert.False(t, ti.Confirm("Save reference?", false), "end of input returns the default")
}

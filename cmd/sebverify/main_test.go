package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVersion string

func (s staticVersion) FileVersion(string) (string, error) { return string(s), nil }

type cliEnv struct {
	root   string
	refs   string
	config string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	previous := versionReader
	versionReader = staticVersion("3.4.0.512")
	t.Cleanup(func() { versionReader = previous })

	base := t.TempDir()
	env := cliEnv{
		root:   filepath.Join(base, "Safe Exam Browser"),
		refs:   filepath.Join(base, "refs"),
		config: filepath.Join(base, "config.yaml"),
	}
	for rel, content := range map[string]string{
		"Application/SafeExamBrowser.exe": "main",
		"Application/core.dll":            "core",
		"Application/exam.seb":            "settings",
		"license.txt":                     "mpl",
	} {
		p := filepath.Join(env.root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	yaml := strings.Join([]string{
		"references:",
		"  directories: [" + env.refs + "]",
		"  bundled: false",
		"  catalog:",
		"    dsn: " + filepath.Join(base, "catalog.db"),
		"logging:",
		"  console: false",
		"  file: \"\"",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(env.config, []byte(yaml), 0o644))
	return env
}

func (e cliEnv) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	full := append([]string{args[0], "--config", e.config}, args[1:]...)
	code := run(full, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (e cliEnv) generate(t *testing.T) string {
	t.Helper()
	code, out, stderr := e.run("generate", "--path", e.root, "--out", e.refs)
	require.Equal(t, report.ExitClean, code, stderr)
	path := strings.TrimSpace(out)
	require.FileExists(t, path)
	return path
}

func TestRunWithoutArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, report.ExitError, run(nil, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, report.ExitClean, run([]string{"help"}, strings.NewReader(""), &stdout, &stderr))
	for _, c := range commands {
		assert.Contains(t, stdout.String(), c.name)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"frobnicate"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, report.ExitError, code)
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
}

func TestGenerateThenVerify(t *testing.T) {
	env := newCLIEnv(t)
	path := env.generate(t)
	assert.Equal(t, "SEB_3.4.0.512_x64.sebref", filepath.Base(path))

	t.Run("clean", func(t *testing.T) {
		code, out, stderr := env.run("verify", "--path", env.root)
		assert.Equal(t, report.ExitClean, code, stderr)
		assert.Contains(t, out, "Verdict: clean")
	})

	t.Run("tampered", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(env.root, "Application", "core.dll"), []byte("patched"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(env.root, "Application", "hook.dll"), []byte("hook"), 0o644))

		code, out, stderr := env.run("verify", "--path", env.root, "--only-problems")
		assert.Equal(t, report.ExitTampered, code, stderr)
		assert.Contains(t, out, "Verdict: tampered")
		assert.Contains(t, out, "hook.dll")
		assert.Contains(t, out, "This file has been changed!")
		assert.NotContains(t, out, "license.txt")
	})

	t.Run("json", func(t *testing.T) {
		code, out, _ := env.run("verify", "--path", env.root, "--json", "--under", "Application")
		assert.Equal(t, report.ExitTampered, code)
		assert.Contains(t, out, `"verdict": "tampered"`)
		assert.NotContains(t, out, "license.txt")
	})

	t.Run("explicit reference", func(t *testing.T) {
		code, _, _ := env.run("verify", "--path", env.root, "--reference", path)
		assert.Equal(t, report.ExitTampered, code)
	})
}

func TestVerifyWithoutMatchingReference(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.run("verify", "--path", env.root)
	assert.Equal(t, report.ExitError, code)
	assert.Contains(t, stderr, "No reference for 3.4.0.512 x64")
}

func TestShowAndDiff(t *testing.T) {
	env := newCLIEnv(t)
	left := env.generate(t)

	code, out, stderr := env.run("show", "--reference", left, "--under", "Application")
	require.Equal(t, report.ExitClean, code, stderr)
	assert.Contains(t, out, "Application/core.dll  sha256=")
	assert.NotContains(t, out, "license.txt")

	code, out, _ = env.run("diff", "--left", left, "--right", left)
	assert.Equal(t, report.ExitClean, code)
	assert.Contains(t, out, "References are identical.")

	versionReader = staticVersion("3.5.0")
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "license.txt"), []byte("changed"), 0o644))
	right := env.generate(t)

	code, out, _ = env.run("diff", "--left", left, "--right", right)
	assert.Equal(t, report.ExitTampered, code)
	assert.Contains(t, out, "license.txt")

	code, _, _ = env.run("show")
	assert.Equal(t, report.ExitError, code)
}

func TestConfigs(t *testing.T) {
	env := newCLIEnv(t)
	code, out, stderr := env.run("configs", "--path", env.root)
	require.Equal(t, report.ExitClean, code, stderr)
	assert.Equal(t, "Application/exam.seb", strings.TrimSpace(out))
}

func TestCatalog(t *testing.T) {
	env := newCLIEnv(t)
	path := env.generate(t)

	code, out, stderr := env.run("catalog", "import", path)
	require.Equal(t, report.ExitClean, code, stderr)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	id := fields[0]
	assert.Equal(t, "SEB_3.4.0.512_x64", fields[1])

	code, out, _ = env.run("catalog", "list")
	assert.Equal(t, report.ExitClean, code)
	assert.Contains(t, out, id)

	code, out, _ = env.run("catalog", "backup", t.TempDir())
	assert.Equal(t, report.ExitClean, code)
	assert.FileExists(t, strings.TrimSpace(out))

	code, _, _ = env.run("catalog", "delete", id)
	assert.Equal(t, report.ExitClean, code)
	code, _, _ = env.run("catalog", "delete", id)
	assert.Equal(t, report.ExitTampered, code)

	code, _, _ = env.run("catalog", "delete", "not-a-uuid")
	assert.Equal(t, report.ExitError, code)
	code, _, _ = env.run("catalog")
	assert.Equal(t, report.ExitError, code)
}

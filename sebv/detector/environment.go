package detector

import (
	"os"
	"runtime"
	"strings"
)

// Environment describes the host facts detection depends on.
type Environment interface {
	// Is64BitOS reports whether the operating system is 64-bit, regardless
	// of the word size of the running process.
	Is64BitOS() bool
	// ProgramDirectories returns the 64-bit and 32-bit program directories.
	// Either may be empty when the host has no such convention.
	ProgramDirectories() (programFiles, programFilesX86 string)
}

// HostEnvironment reads host facts from the process environment. Non-empty
// override fields take precedence, which lets configuration point detection
// at other program directories.
type HostEnvironment struct {
	ProgramFiles    string
	ProgramFilesX86 string

	getenv func(string) string
	goarch string
}

// NewHostEnvironment returns an Environment for the running host.
func NewHostEnvironment(programFiles, programFilesX86 string) *HostEnvironment {
	return &HostEnvironment{
		ProgramFiles:    programFiles,
		ProgramFilesX86: programFilesX86,
		getenv:          os.Getenv,
		goarch:          runtime.GOARCH,
	}
}

func (h *HostEnvironment) env(key string) string {
	if h.getenv == nil {
		return os.Getenv(key)
	}
	return h.getenv(key)
}

func (h *HostEnvironment) arch() string {
	if h.goarch == "" {
		return runtime.GOARCH
	}
	return h.goarch
}

// Is64BitOS is true for 64-bit builds and for 32-bit processes running under
// WOW64, which Windows announces through PROCESSOR_ARCHITEW6432.
func (h *HostEnvironment) Is64BitOS() bool {
	switch h.arch() {
	case "amd64", "arm64", "ppc64", "ppc64le", "mips64", "mips64le", "riscv64", "s390x", "loong64":
		return true
	}
	return strings.TrimSpace(h.env("PROCESSOR_ARCHITEW6432")) != ""
}

func (h *HostEnvironment) ProgramDirectories() (string, string) {
	programFiles := h.ProgramFiles
	if programFiles == "" {
		// ProgramW6432 names the 64-bit directory even for 32-bit processes.
		programFiles = h.env("ProgramW6432")
	}
	if programFiles == "" {
		programFiles = h.env("ProgramFiles")
	}

	programFilesX86 := h.ProgramFilesX86
	if programFilesX86 == "" {
		programFilesX86 = h.env("ProgramFiles(x86)")
	}
	if programFilesX86 == "" && !h.Is64BitOS() {
		programFilesX86 = h.env("ProgramFiles")
	}
	return programFiles, programFilesX86
}

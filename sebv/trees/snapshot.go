package trees

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// Platform is the processor architecture a distribution was built for.
type Platform int

const (
	PlatformUndefined Platform = iota
	PlatformX64
	PlatformX86
)

func (p Platform) String() string {
	switch p {
	case PlatformX64:
		return "x64"
	case PlatformX86:
		return "x86"
	default:
		return "Undefined"
	}
}

// ParsePlatform accepts the text form produced by String, case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x64":
		return PlatformX64, nil
	case "x86":
		return PlatformX86, nil
	case "undefined", "":
		return PlatformUndefined, nil
	default:
		return PlatformUndefined, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Platform) UnmarshalText(text []byte) error {
	parsed, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Snapshot is a fingerprinted installation tree together with the
// version and platform it was taken from.
type Snapshot struct {
	Info     string       `json:"info"`
	Version  string       `json:"version"`
	Platform Platform     `json:"platform"`
	Root     *FolderEntry `json:"root"`
}

// Validate checks that a snapshot is usable as a comparison side.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidEntry)
	}
	if s.Root == nil {
		return fmt.Errorf("%w: snapshot has no root folder", ErrInvalidEntry)
	}
	if !s.Root.IsRoot() {
		return fmt.Errorf("%w: root folder has path %q", ErrInvalidEntry, s.Root.Path())
	}
	return nil
}

// Label identifies a snapshot in logs and file names.
func (s *Snapshot) Label() string {
	return fmt.Sprintf("SEB_%s_%s", s.Version, s.Platform)
}

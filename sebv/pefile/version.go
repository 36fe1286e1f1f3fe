package pefile

import (
	"fmt"
	"strings"
)

// VersionInfo holds the string table of a VS_VERSIONINFO resource.
type VersionInfo struct {
	FileVersion      string
	ProductVersion   string
	OriginalFilename string
	ProductName      string
	CompanyName      string
	Strings          map[string]string
}

// VersionInfo returns the version resource of the image.
func (f *File) VersionInfo() (*VersionInfo, error) {
	strs, err := f.pe.ParseVersionResources()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoVersionInfo, err)
	}
	return versionFromStrings(strs)
}

// versionFromStrings maps a version string table onto VersionInfo. Values
// are trimmed of padding NULs and spaces.
func versionFromStrings(strs map[string]string) (*VersionInfo, error) {
	info := &VersionInfo{Strings: make(map[string]string, len(strs))}
	for k, v := range strs {
		v = strings.TrimSpace(strings.TrimRight(v, "\x00"))
		if v == "" {
			continue
		}
		info.Strings[k] = v
	}
	if len(info.Strings) == 0 {
		return nil, ErrNoVersionInfo
	}

	info.FileVersion = info.Strings["FileVersion"]
	info.ProductVersion = info.Strings["ProductVersion"]
	info.OriginalFilename = info.Strings["OriginalFilename"]
	info.ProductName = info.Strings["ProductName"]
	info.CompanyName = info.Strings["CompanyName"]
	return info, nil
}

// Package pefile reads the metadata of Windows PE images that the
// verificator records: the version resource and the embedded Authenticode
// signer certificate.
package pefile

import (
	"errors"
	"fmt"
	"io"
	"os"

	peparser "github.com/saferwall/pe"
)

var (
	ErrNotPE         = errors.New("not a PE image")
	ErrNoVersionInfo = errors.New("no version resource")
	ErrNoCertificate = errors.New("no embedded certificate")
	ErrMalformed     = errors.New("malformed PE data")
)

const (
	imageDirectoryEntrySecurity = 4

	// Upper bound on the security directory we are willing to read.
	maxSecurityDirectorySize = 32 << 20
)

// File is a parsed PE image.
type File struct {
	r  *os.File
	pe *peparser.File
}

// Open parses the PE image at path. Files without an MZ header yield
// ErrNotPE.
func Open(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var magic [2]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil || magic != [2]byte{'M', 'Z'} {
		r.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, ErrNotPE
	}

	pf, err := peparser.New(path, &peparser.Options{DisableCertValidation: true})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}
	f := &File{r: r, pe: pf}
	if err := pf.Parse(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}
	return f, nil
}

// Close releases the mapping and the file handle.
func (f *File) Close() error {
	perr := f.pe.Close()
	if err := f.r.Close(); err != nil {
		return err
	}
	return perr
}

func (f *File) dataDirectory(index int) (peparser.DataDirectory, bool) {
	switch oh := f.pe.NtHeader.OptionalHeader.(type) {
	case peparser.ImageOptionalHeader32:
		if uint32(index) < oh.NumberOfRvaAndSizes {
			return oh.DataDirectory[index], true
		}
	case peparser.ImageOptionalHeader64:
		if uint32(index) < oh.NumberOfRvaAndSizes {
			return oh.DataDirectory[index], true
		}
	case *peparser.ImageOptionalHeader32:
		if uint32(index) < oh.NumberOfRvaAndSizes {
			return oh.DataDirectory[index], true
		}
	case *peparser.ImageOptionalHeader64:
		if uint32(index) < oh.NumberOfRvaAndSizes {
			return oh.DataDirectory[index], true
		}
	}
	return peparser.DataDirectory{}, false
}

// ReadVersionInfo opens path and returns its version resource.
func ReadVersionInfo(path string) (*VersionInfo, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.VersionInfo()
}

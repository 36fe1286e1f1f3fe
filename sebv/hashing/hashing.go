// Package hashing computes the fingerprints recorded for every file of a
// snapshot: content digest, signer thumbprint and version metadata.
package hashing

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/seb-verificator/sebv"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/pefile"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// Digest returns the uppercase hex SHA-256 of everything read from r and
// the number of bytes read.
func Digest(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), n, nil
}

// DigestBytes returns the uppercase hex SHA-256 of b.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Thumbprint returns the uppercase hex SHA-1 of a DER encoded certificate.
func Thumbprint(der []byte) string {
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Hasher fingerprints files. The zero value is not usable; use New.
type Hasher struct {
	signatureExtensions map[string]struct{}
	probeVersions       bool
	logger              *slog.Logger
}

type Option func(*Hasher)

// WithSignatureExtensions replaces the extensions probed for a signature.
func WithSignatureExtensions(exts ...string) Option {
	return func(h *Hasher) {
		h.signatureExtensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			h.signatureExtensions[ext] = struct{}{}
		}
	}
}

// WithVersionProbe toggles reading version resources of PE images.
func WithVersionProbe(enabled bool) Option {
	return func(h *Hasher) { h.probeVersions = enabled }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Hasher) { h.logger = logger }
}

func New(opts ...Option) *Hasher {
	h := &Hasher{probeVersions: true, logger: slog.Default()}
	WithSignatureExtensions(internal.DefaultSignatureExtensions...)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Checksum returns the content digest of the file at path.
func (h *Hasher) Checksum(path string) (string, error) {
	sum, _, err := h.checksum(path)
	return sum, err
}

func (h *Hasher) checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sum, n, err := Digest(f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sum, n, nil
}

// ShouldProbe reports whether path has an extension that is probed for a
// signature.
func (h *Hasher) ShouldProbe(path string) bool {
	_, ok := h.signatureExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SignatureThumbprint returns the thumbprint of the certificate embedded in
// path, or nil when the extension is not probed or no certificate can be
// read. It never fails.
func (h *Hasher) SignatureThumbprint(path string) *string {
	if !h.ShouldProbe(path) {
		return nil
	}
	cert, err := pefile.ReadCertificate(path)
	if err != nil {
		if !errors.Is(err, pefile.ErrNoCertificate) {
			h.logger.Debug("Signature probe failed", "path", path, "error", err)
		}
		return nil
	}
	thumbprint := Thumbprint(cert.Raw)
	return &thumbprint
}

// VersionMetadata returns the declared file version and original file name
// of a PE image. Non-PE files and images without a version resource yield
// nil values.
func (h *Hasher) VersionMetadata(path string) (version, originalName *string) {
	if !h.probeVersions {
		return nil, nil
	}
	info, err := pefile.ReadVersionInfo(path)
	if err != nil {
		if !errors.Is(err, pefile.ErrNotPE) && !errors.Is(err, pefile.ErrNoVersionInfo) {
			h.logger.Debug("Version probe failed", "path", path, "error", err)
		}
		return nil, nil
	}
	if v, ok := info.Strings["FileVersion"]; ok {
		version = &v
	}
	if n, ok := info.Strings["OriginalFilename"]; ok {
		originalName = &n
	}
	return version, originalName
}

// Fingerprint builds the FileEntry for the file at absPath, recorded under
// relPath. Only failures to read the content are returned as errors.
func (h *Hasher) Fingerprint(absPath, relPath string) (trees.FileEntry, error) {
	sum, size, err := h.checksum(absPath)
	if err != nil {
		return trees.FileEntry{}, err
	}
	version, originalName := h.VersionMetadata(absPath)
	return trees.FileEntry{
		Path:         relPath,
		Checksum:     sum,
		Signature:    h.SignatureThumbprint(absPath),
		Size:         size,
		Version:      version,
		OriginalName: originalName,
	}, nil
}

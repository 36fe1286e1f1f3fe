package pefile

import (
	"crypto/x509"
	"encoding/binary"
	"fmt"

	"github.com/hhrutter/pkcs7"
)

const (
	winCertTypePKCSSignedData = 0x0002
	winCertificateHeaderSize  = 8
)

// Certificate returns the signer certificate of the first Authenticode
// signature embedded in the image.
func (f *File) Certificate() (*x509.Certificate, error) {
	dd, ok := f.dataDirectory(imageDirectoryEntrySecurity)
	if !ok || dd.VirtualAddress == 0 || dd.Size < winCertificateHeaderSize {
		return nil, ErrNoCertificate
	}
	if dd.Size > maxSecurityDirectorySize {
		return nil, fmt.Errorf("%w: security directory of %d bytes", ErrMalformed, dd.Size)
	}

	// The security directory address is a file offset, not an RVA.
	buf := make([]byte, dd.Size)
	if _, err := f.r.ReadAt(buf, int64(dd.VirtualAddress)); err != nil {
		return nil, fmt.Errorf("%w: reading security directory: %v", ErrMalformed, err)
	}
	return parseCertificateTable(buf)
}

// parseCertificateTable walks the WIN_CERTIFICATE records of buf.
func parseCertificateTable(buf []byte) (*x509.Certificate, error) {
	for offset := 0; offset+winCertificateHeaderSize <= len(buf); {
		length := int(binary.LittleEndian.Uint32(buf[offset:]))
		certType := binary.LittleEndian.Uint16(buf[offset+6:])
		if length < winCertificateHeaderSize || offset+length > len(buf) {
			return nil, fmt.Errorf("%w: certificate record length %d", ErrMalformed, length)
		}

		if certType == winCertTypePKCSSignedData {
			if cert := signerOf(buf[offset+winCertificateHeaderSize : offset+length]); cert != nil {
				return cert, nil
			}
		}
		// Records are quadword aligned.
		offset += (length + 7) &^ 7
	}
	return nil, ErrNoCertificate
}

func signerOf(der []byte) *x509.Certificate {
	p7, err := pkcs7.Parse(der)
	if err != nil || len(p7.Certificates) == 0 {
		return nil
	}
	if signer := p7.GetOnlySigner(); signer != nil {
		return signer
	}
	return p7.Certificates[0]
}

// ReadCertificate opens path and returns its embedded signer certificate.
func ReadCertificate(path string) (*x509.Certificate, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Certificate()
}

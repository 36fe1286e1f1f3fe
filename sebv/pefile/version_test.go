package pefile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFromStrings(t *testing.T) {
	info, err := versionFromStrings(map[string]string{
		"CompanyName":      "ETH Zürich",
		"FileVersion":      "3.4.0.1\x00",
		"OriginalFilename": "SafeExamBrowser.exe",
		"ProductName":      "Safe Exam Browser",
		"ProductVersion":   " 3.4.0 ",
		"Comments":         "",
	})
	require.NoError(t, err)

	assert.Equal(t, "3.4.0.1", info.FileVersion)
	assert.Equal(t, "3.4.0", info.ProductVersion)
	assert.Equal(t, "SafeExamBrowser.exe", info.OriginalFilename)
	assert.Equal(t, "Safe Exam Browser", info.ProductName)
	assert.Equal(t, "ETH Zürich", info.CompanyName)
	assert.NotContains(t, info.Strings, "Comments")
	assert.Len(t, info.Strings, 5)
}

func TestVersionFromStringsEmpty(t *testing.T) {
	for _, strs := range []map[string]string{nil, {}, {"FileVersion": "\x00\x00"}} {
		_, err := versionFromStrings(strs)
		assert.ErrorIs(t, err, ErrNoVersionInfo, "%q", strs)
	}
}

func TestOpenRejectsNonPE(t *testing.T) {
	dir := t.TempDir()
	for i, data := range [][]byte{nil, []byte("M"), []byte("hello world"), []byte("MZ but not much else")} {
		path := filepath.Join(dir, "file"+string(rune('a'+i))+".dll")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err := ReadVersionInfo(path)
		assert.ErrorIs(t, err, ErrNotPE, "%q", data)
		_, err = ReadCertificate(path)
		assert.ErrorIs(t, err, ErrNotPE, "%q", data)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := ReadVersionInfo(filepath.Join(t.TempDir(), "absent.exe"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestParseCertificateTable(t *testing.T) {
	t.Run("no pkcs7 records", func(t *testing.T) {
		rec := make([]byte, 16)
		binary.LittleEndian.PutUint32(rec[0:], 16)
		binary.LittleEndian.PutUint16(rec[4:], 0x0200)
		binary.LittleEndian.PutUint16(rec[6:], 0x0001)
		_, err := parseCertificateTable(rec)
		assert.ErrorIs(t, err, ErrNoCertificate)
	})

	t.Run("garbage pkcs7 payload", func(t *testing.T) {
		rec := make([]byte, 24)
		binary.LittleEndian.PutUint32(rec[0:], 24)
		binary.LittleEndian.PutUint16(rec[6:], winCertTypePKCSSignedData)
		copy(rec[8:], "not asn1 at all!")
		_, err := parseCertificateTable(rec)
		assert.ErrorIs(t, err, ErrNoCertificate)
	})

	t.Run("bad record length", func(t *testing.T) {
		rec := make([]byte, 8)
		binary.LittleEndian.PutUint32(rec[0:], 400)
		_, err := parseCertificateTable(rec)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

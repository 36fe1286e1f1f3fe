package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

const (
	FormatName    = "seb-verificator/reference"
	FormatVersion = 1
)

type envelope struct {
	Format        string          `json:"format"`
	FormatVersion int             `json:"formatVersion"`
	Snapshot      *trees.Snapshot `json:"snapshot"`
}

// Encode writes snap as an indented reference document.
func Encode(w io.Writer, snap *trees.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{Format: FormatName, FormatVersion: FormatVersion, Snapshot: snap})
}

// Marshal returns the encoded form of snap.
func Marshal(snap *trees.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a reference document. Every failure is reported as an
// *InvalidReferenceError.
func Decode(r io.Reader) (*trees.Snapshot, error) {
	var env envelope
	dec := json.NewDecoder(r)
	if err := dec.Decode(&env); err != nil {
		return nil, &InvalidReferenceError{Err: err}
	}
	if env.Format != FormatName {
		return nil, &InvalidReferenceError{Err: fmt.Errorf("unexpected format %q", env.Format)}
	}
	if env.FormatVersion != FormatVersion {
		return nil, &InvalidReferenceError{Err: fmt.Errorf("unsupported format version %d", env.FormatVersion)}
	}
	if err := env.Snapshot.Validate(); err != nil {
		return nil, &InvalidReferenceError{Err: err}
	}
	return env.Snapshot, nil
}

// Unmarshal decodes a reference document held in memory.
func Unmarshal(data []byte) (*trees.Snapshot, error) {
	return Decode(bytes.NewReader(data))
}

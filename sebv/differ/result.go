package differ

import (
	"fmt"
	"strings"
)

// ItemType tells whether a result describes a file or a folder.
type ItemType int

const (
	TypeFile ItemType = iota
	TypeFolder
)

func (t ItemType) String() string {
	if t == TypeFolder {
		return "folder"
	}
	return "file"
}

func (t ItemType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Status is the outcome of comparing one entry.
type Status int

const (
	StatusOK Status = iota
	StatusAdded
	StatusMissing
	StatusChanged
)

func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "Added"
	case StatusMissing:
		return "Missing"
	case StatusChanged:
		return "Changed"
	default:
		return "OK"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Field names a compared file attribute.
type Field string

const (
	FieldChecksum     Field = "Checksum"
	FieldOriginalName Field = "Original name"
	FieldSignature    Field = "Signature"
	FieldSize         Field = "Size"
	FieldVersion      Field = "Version"
)

// FieldMismatch is one attribute of an installed file that contradicts the
// reference. Absent values are nil.
type FieldMismatch struct {
	Field     Field   `json:"field"`
	Installed *string `json:"installed"`
	Reference *string `json:"reference"`
}

// String renders the mismatch as a remark clause. Absent values read
// <absent>, present values are quoted, so an empty value shows as ''.
func (m FieldMismatch) String() string {
	return fmt.Sprintf("%s %s is not %s!", m.Field, quoted(m.Installed), quoted(m.Reference))
}

// Absent is how a missing attribute value appears in remarks.
const Absent = "<absent>"

func quoted(s *string) string {
	if s == nil {
		return Absent
	}
	return "'" + *s + "'"
}

// ResultItem is the comparison outcome of one folder or file.
type ResultItem struct {
	Path       string          `json:"path"`
	Type       ItemType        `json:"type"`
	Status     Status          `json:"status"`
	Remarks    string          `json:"remarks"`
	Mismatches []FieldMismatch `json:"mismatches,omitempty"`
}

// Problem reports whether the item indicates a deviation from the reference.
func (r ResultItem) Problem() bool {
	return r.Status != StatusOK
}

func buildRemarks(t ItemType, status Status, mismatches []FieldMismatch) string {
	switch status {
	case StatusAdded:
		return fmt.Sprintf("This %s has been added!", t)
	case StatusMissing:
		return fmt.Sprintf("This %s is missing!", t)
	case StatusChanged:
		clauses := make([]string, 0, len(mismatches))
		for _, m := range mismatches {
			clauses = append(clauses, m.String())
		}
		return strings.TrimSpace(fmt.Sprintf("This %s has been changed! %s", t, strings.Join(clauses, " ")))
	default:
		return ""
	}
}

// Package report renders verification results for people and machines.
package report

import (
	"github.com/ZanzyTHEbar/seb-verificator/sebv/differ"
)

// Exit codes of the command line front end.
const (
	ExitClean    = 0
	ExitTampered = 1
	ExitError    = 2
)

// Verdict is the overall outcome of a verification.
type Verdict string

const (
	VerdictClean    Verdict = "clean"
	VerdictTampered Verdict = "tampered"
)

// Summary counts result items by status.
type Summary struct {
	Total   int `json:"total"`
	OK      int `json:"ok"`
	Added   int `json:"added"`
	Missing int `json:"missing"`
	Changed int `json:"changed"`
}

// Summarize counts items.
func Summarize(items []differ.ResultItem) Summary {
	s := Summary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case differ.StatusAdded:
			s.Added++
		case differ.StatusMissing:
			s.Missing++
		case differ.StatusChanged:
			s.Changed++
		default:
			s.OK++
		}
	}
	return s
}

// Problems returns the number of items deviating from the reference.
func (s Summary) Problems() int {
	return s.Added + s.Missing + s.Changed
}

func (s Summary) Verdict() Verdict {
	if s.Problems() > 0 {
		return VerdictTampered
	}
	return VerdictClean
}

// ExitCode maps the verdict onto the process exit code.
func (s Summary) ExitCode() int {
	if s.Problems() > 0 {
		return ExitTampered
	}
	return ExitClean
}

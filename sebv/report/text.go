package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/differ"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"
)

// Report is everything a rendered verification shows.
type Report struct {
	Root      string              `json:"root"`
	Version   string              `json:"version"`
	Platform  trees.Platform      `json:"platform"`
	Reference string              `json:"reference"`
	Info      string              `json:"referenceInfo,omitempty"`
	Elapsed   time.Duration       `json:"-"`
	Summary   Summary             `json:"summary"`
	Verdict   Verdict             `json:"verdict"`
	Items     []differ.ResultItem `json:"items"`
}

// New builds a report. The summary always covers all items; the filter only
// decides which items are listed.
func New(root, version string, platform trees.Platform, ref *trees.Snapshot, items []differ.ResultItem, filter Filter) *Report {
	summary := Summarize(items)
	r := &Report{
		Root:     root,
		Version:  version,
		Platform: platform,
		Summary:  summary,
		Verdict:  summary.Verdict(),
		Items:    filter.Apply(items),
	}
	if ref != nil {
		r.Reference = ref.Label()
		r.Info = ref.Info
	}
	if r.Items == nil {
		r.Items = []differ.ResultItem{}
	}
	return r
}

// WriteText renders r as an aligned table followed by a summary.
func WriteText(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "Installation: %s\nVersion:      %s (%s)\nReference:    %s\n", r.Root, r.Version, r.Platform, r.Reference); err != nil {
		return err
	}
	if r.Info != "" {
		if _, err := fmt.Fprintf(w, "              %s\n", r.Info); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if len(r.Items) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tTYPE\tPATH\tREMARKS")
		for _, item := range r.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.Status, item.Type, displayPath(item.Path), item.Remarks)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	s := r.Summary
	_, err := fmt.Fprintf(w, "%d items: %d OK, %d added, %d missing, %d changed. Verdict: %s\n",
		s.Total, s.OK, s.Added, s.Missing, s.Changed, r.Verdict)
	return err
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// WriteJSON renders r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

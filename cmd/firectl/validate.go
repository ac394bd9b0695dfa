package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// ingestionReport summarizes how a FIRMS file loaded against a boundary set.
type ingestionReport struct {
	Source    string                  `json:"source"`
	Rows      int                     `json:"rows"`
	Parsed    int                     `json:"parsed"`
	Skipped   int                     `json:"skipped"`
	Reasons   []skipReason            `json:"skip_reasons,omitempty"`
	Matched   int                     `json:"matched"`
	Unmatched int                     `json:"unmatched"`
	Hours     [domain.HoursPerDay]int `json:"per_hour"`
}

// skipReason counts skipped rows sharing a column and reason. FirstRow is the
// zero-based data row of the first occurrence.
type skipReason struct {
	Column   string `json:"column"`
	Reason   string `json:"reason"`
	Count    int    `json:"count"`
	FirstRow int    `json:"first_row"`
}

// buildReport groups skipped rows by column and reason, most frequent first.
func buildReport(source string, rows int, ds *domain.Dataset, tagged []domain.TaggedFireEvent) ingestionReport {
	r := ingestionReport{
		Source:  source,
		Rows:    rows,
		Parsed:  ds.Len(),
		Matched: domain.MatchedCount(tagged),
	}
	r.Unmatched = len(tagged) - r.Matched

	type key struct{ column, reason string }
	byKey := map[key]*skipReason{}
	for _, perr := range ds.Skipped() {
		r.Skipped++
		k := key{perr.Column, perr.Reason}
		if sr, ok := byKey[k]; ok {
			sr.Count++
			continue
		}
		byKey[k] = &skipReason{Column: perr.Column, Reason: perr.Reason, Count: 1, FirstRow: perr.Row}
	}
	for _, sr := range byKey {
		r.Reasons = append(r.Reasons, *sr)
	}
	sort.Slice(r.Reasons, func(i, j int) bool {
		if r.Reasons[i].Count != r.Reasons[j].Count {
			return r.Reasons[i].Count > r.Reasons[j].Count
		}
		return r.Reasons[i].FirstRow < r.Reasons[j].FirstRow
	})

	for _, e := range ds.Events() {
		r.Hours[e.Hour()]++
	}
	return r
}

func newValidateCmd(src *sources) *cobra.Command {
	var (
		strict bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report how the fire file parses and how much of it the regions cover",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := src.env()
			rows, err := e.loader.Load(cmd.Context(), src.fires)
			if err != nil {
				return err
			}

			mode := domain.Lenient
			if strict {
				mode = domain.Strict
			}
			ds, err := domain.LoadDataset(rows, mode)
			if err != nil {
				return fmt.Errorf("strict validation failed: %w", err)
			}

			ix, err := src.loadIndex(e)
			if err != nil {
				return err
			}

			report := buildReport(src.fires, len(rows), ds, ix.Tag(ds.Events()))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeReport(cmd, report)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first malformed row")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
	return cmd
}

func writeReport(cmd *cobra.Command, r ingestionReport) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "source:\t%s\n", r.Source)
	fmt.Fprintf(tw, "rows:\t%d\n", r.Rows)
	fmt.Fprintf(tw, "parsed:\t%d\n", r.Parsed)
	fmt.Fprintf(tw, "skipped:\t%d\n", r.Skipped)
	for _, sr := range r.Reasons {
		fmt.Fprintf(tw, "  %s: %s\t%d (first at row %d)\n", sr.Column, sr.Reason, sr.Count, sr.FirstRow)
	}
	fmt.Fprintf(tw, "matched:\t%d\n", r.Matched)
	fmt.Fprintf(tw, "unmatched:\t%d\n", r.Unmatched)
	fmt.Fprintln(tw, "per hour (UTC):")
	for h, n := range r.Hours {
		if n > 0 {
			fmt.Fprintf(tw, "  %02d\t%d\n", h, n)
		}
	}
	return tw.Flush()
}

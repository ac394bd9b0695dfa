package domain

import (
	"cmp"
	"slices"
)

// AggregateByRegion counts events per region. Unmatched events are excluded.
// Rows are ordered by count descending, then region ID ascending.
func AggregateByRegion(events []TaggedFireEvent) []AggregateRow {
	index := make(map[string]int)
	rows := make([]AggregateRow, 0)

	for _, e := range events {
		if !e.Matched() {
			continue
		}
		i, ok := index[e.RegionID]
		if !ok {
			i = len(rows)
			index[e.RegionID] = i
			rows = append(rows, AggregateRow{RegionID: e.RegionID, RegionName: e.RegionName})
		}
		r := &rows[i]
		r.Count++
		r.TotalFRP += e.FRP
		if e.FRP > r.MaxFRP {
			r.MaxFRP = e.FRP
		}
	}

	slices.SortFunc(rows, func(a, b AggregateRow) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.RegionID, b.RegionID)
	})
	return rows
}

// TopRegions returns at most n leading rows. n <= 0 returns all of them.
func TopRegions(rows []AggregateRow, n int) []AggregateRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// MatchedCount returns how many events carry a region.
func MatchedCount(events []TaggedFireEvent) int {
	n := 0
	for _, e := range events {
		if e.Matched() {
			n++
		}
	}
	return n
}

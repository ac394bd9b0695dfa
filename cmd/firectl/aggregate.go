package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

func newAggregateCmd(src *sources) *cobra.Command {
	var (
		hour   int
		bbox   string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print detection counts per region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := aggregateQuery(hour, bbox, src.defaultBox)
			if err != nil {
				return err
			}

			e := src.env()
			ds, err := src.loadDataset(cmd.Context(), e)
			if err != nil {
				return err
			}
			ix, err := src.loadIndex(e)
			if err != nil {
				return err
			}

			tagged := ix.Tag(ds.Filter(q))
			rows := domain.TopRegions(domain.AggregateByRegion(tagged), limit)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeAggregateTable(cmd, q.Hour, rows, len(tagged)-domain.MatchedCount(tagged))
		},
	}

	cmd.Flags().IntVar(&hour, "hour", allHours, "UTC hour of day 0-23 (default all hours)")
	cmd.Flags().StringVar(&bbox, "bbox", "", "minLat,maxLat,minLon,maxLon or conus; none ignores BBOX")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the top N regions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}

// allHours is the --hour sentinel for no hour filter.
const allHours = -1

// aggregateQuery builds the filter from --hour and --bbox. An empty bbox falls
// back to def; "none" disables box filtering.
func aggregateQuery(hour int, bbox string, def *domain.BoundingBox) (domain.Query, error) {
	q := domain.Query{Hour: domain.AllHours(), Box: def}
	if hour != allHours {
		if err := domain.ValidateHour(hour); err != nil {
			return domain.Query{}, err
		}
		q.Hour = domain.AtHour(hour)
	}
	switch {
	case bbox == "":
	case strings.EqualFold(bbox, "none"):
		q.Box = nil
	default:
		box, err := domain.ParseBoundingBox(bbox)
		if err != nil {
			return domain.Query{}, err
		}
		q.Box = &box
	}
	return q, nil
}

func writeAggregateTable(cmd *cobra.Command, hour domain.Hour, rows []domain.AggregateRow, unmatched int) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "hour: %s\n", hour)
	fmt.Fprintln(tw, "REGION\tNAME\tCOUNT\tTOTAL FRP\tMAX FRP")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\n", r.RegionID, r.RegionName, r.Count, r.TotalFRP, r.MaxFRP)
	}
	fmt.Fprintf(tw, "(unmatched)\t\t%d\t\t\n", unmatched)
	return tw.Flush()
}

package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

func newLocateCmd(src *sources) *cobra.Command {
	return &cobra.Command{
		Use:   "locate LAT LON",
		Short: "Print the region containing a point",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePoint(args[0], args[1])
			if err != nil {
				return err
			}

			ix, err := src.loadIndex(src.env())
			if err != nil {
				return err
			}

			ref, ok := ix.Locate(p)
			if !ok {
				return fmt.Errorf("no region contains %g,%g", p.Lat, p.Lon)
			}
			cmd.Printf("%s\t%s\n", ref.ID, ref.Name)
			return nil
		},
	}
}

func parsePoint(latArg, lonArg string) (domain.Point, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return domain.Point{}, fmt.Errorf("latitude %q: want a number in [-90,90]", latArg)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return domain.Point{}, fmt.Errorf("longitude %q: want a number in [-180,180]", lonArg)
	}
	return domain.Point{Lat: lat, Lon: lon}, nil
}

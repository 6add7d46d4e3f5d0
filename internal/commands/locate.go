package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/maidenhead"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/models"
)

var locatePrecision int

var locateCmd = &cobra.Command{
	Use:   "locate [grid | lat lon]",
	Short: "Convert between grid locators and coordinates",
	Long: `Decode a Maidenhead locator to its centre, bounds and continent, or
encode a latitude/longitude pair to a locator.

Examples:
  gridmapper locate FN42
  gridmapper locate 51.5 -0.12 --precision 6`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := loadTables()
		if err != nil {
			return err
		}
		return runLocate(cmd.OutOrStdout(), tables, args, locatePrecision)
	},
}

func init() {
	locateCmd.Flags().IntVar(&locatePrecision, "precision", 6, "locator length when encoding (4 or 6)")
}

func runLocate(w io.Writer, tables *refdata.Tables, args []string, precision int) error {
	grid := args[0]
	if len(args) == 2 {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q", args[1])
		}
		grid, err = maidenhead.Encode(models.Coordinate{Lat: lat, Lon: lon}, precision)
		if err != nil {
			return err
		}
	}

	grid, err := maidenhead.Normalize(grid)
	if err != nil {
		return err
	}
	box, err := maidenhead.Bounds(grid)
	if err != nil {
		return err
	}
	center := box.Center()

	code := tables.ContinentOf(center)
	label := code
	if c, ok := tables.Continent(code); ok {
		label = c.Label
	}

	fmt.Fprintf(w, "Locator:   %s\n", grid)
	fmt.Fprintf(w, "Field:     %s\n", maidenhead.Field(grid))
	fmt.Fprintf(w, "Centre:    %.4f, %.4f\n", center.Lat, center.Lon)
	fmt.Fprintf(w, "Bounds:    %.4f..%.4f lat, %.4f..%.4f lon\n", box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	fmt.Fprintf(w, "Continent: %s (%s)\n", label, code)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/modules"
)

var (
	stationsSearch string
	stationsStatus string
	stationsSort   string
	stationsAfter  time.Duration
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Inspect transit stations",
	Long: `Inspect the transit stations of a freshly built city, optionally after
replaying some virtual time first.

Examples:
  citypulse stations
  citypulse stations --status full
  citypulse stations --search plaza --after 10m
  citypulse stations --sort volume
  citypulse stations show ST-1001`,
	RunE: runStationsList,
}

var stationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one station",
	Args:  cobra.ExactArgs(1),
	RunE:  runStationsShow,
}

func init() {
	stationsCmd.PersistentFlags().DurationVar(&stationsAfter, "after", 0, "virtual time to replay first")
	stationsCmd.Flags().StringVarP(&stationsSearch, "search", "s", "", "match id or location")
	stationsCmd.Flags().StringVar(&stationsStatus, "status", "", "filter by status (operational, full, maintenance)")
	stationsCmd.Flags().StringVar(&stationsSort, "sort", "", "sort order (volume = busiest first)")

	stationsCmd.AddCommand(stationsShowCmd)
}

func newStations() (*modules.Stations, error) {
	city, err := newCity()
	if err != nil {
		return nil, err
	}
	if stationsAfter > 0 {
		city.Advance(context.Background(), time.Now(), stationsAfter)
	}
	return city.Stations, nil
}

func printStation(w io.Writer, id string, st models.Station) {
	fmt.Fprintf(w, "%s  %s\n", id, st.Location)
	fmt.Fprintf(w, "  Status:     %s\n", st.Status)
	fmt.Fprintf(w, "  Passengers: %d / %d (%d%%)\n", st.Passengers, st.Capacity, st.Occupancy())
}

// stationQuery builds the list query from flags.
func stationQuery(search, status, sort string) (modules.StationQuery, error) {
	q := modules.StationQuery{Search: search}
	if status != "" {
		st, ok := models.ParseStationStatus(status)
		if !ok {
			return q, fmt.Errorf("unknown station status %q", status)
		}
		q.Status = st
	}
	switch sort {
	case "":
	case "volume":
		q.ByVolume = true
	default:
		return q, fmt.Errorf("unknown sort order %q (available: volume)", sort)
	}
	return q, nil
}

func runStationsList(cmd *cobra.Command, args []string) error {
	q, err := stationQuery(stationsSearch, stationsStatus, stationsSort)
	if err != nil {
		return err
	}

	stations, err := newStations()
	if err != nil {
		return err
	}

	entries := stations.List(q)
	if len(entries) == 0 {
		fmt.Println("No stations found.")
		return nil
	}

	fmt.Printf("Stations (%d):\n\n", len(entries))
	fmt.Printf("%-8s %-18s %10s %9s  %s\n", "ID", "LOCATION", "PASSENGERS", "OCCUPANCY", "STATUS")
	for _, e := range entries {
		st := e.Value
		fmt.Printf("%-8s %-18s %4d / %-3d %8d%%  %s\n",
			e.ID, st.Location, st.Passengers, st.Capacity, st.Occupancy(), st.Status)
	}

	snap := stations.Snapshot()
	fmt.Printf("\nNext bus in %ds\n", snap.BusETA)
	if verbose {
		for _, c := range snap.Occupancy {
			fmt.Printf("  %-12s %d\n", c.Tier, c.Count)
		}
	}
	return nil
}

func runStationsShow(cmd *cobra.Command, args []string) error {
	stations, err := newStations()
	if err != nil {
		return err
	}

	st, err := stations.Station(args[0])
	if err != nil {
		return fmt.Errorf("get station: %w", err)
	}

	printStation(os.Stdout, args[0], st)

	var taps []models.TapEvent
	for _, tap := range stations.Snapshot().Taps {
		if tap.StationID == args[0] {
			taps = append(taps, tap)
		}
	}
	if len(taps) > 0 {
		fmt.Printf("\nRecent RFID taps:\n")
		for _, tap := range taps {
			fmt.Printf("  %s %s\n", tap.At.Format("15:04:05"), tap.Passenger)
		}
	}
	return nil
}

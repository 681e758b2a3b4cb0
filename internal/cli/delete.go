package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/modules"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a home or station from a simulated city",
	Long: `Remove a home or station from a freshly built city and report what is
left. Open alerts of the removed entity are dropped without a clear event.

Examples:
  citypulse delete home H-5004
  citypulse delete station ST-1006`,
}

var deleteHomeCmd = &cobra.Command{
	Use:   "home <id>",
	Short: "Remove a home",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteHome,
}

var deleteStationCmd = &cobra.Command{
	Use:   "station <id>",
	Short: "Remove a station",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteStation,
}

func init() {
	deleteCmd.AddCommand(deleteHomeCmd)
	deleteCmd.AddCommand(deleteStationCmd)
}

func runDeleteHome(cmd *cobra.Command, args []string) error {
	city, err := newCity()
	if err != nil {
		return err
	}
	defer city.Stop()

	h, err := city.Homes.Home(args[0])
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	if err := city.Homes.RemoveHome(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s (%s)\n", args[0], h.Owner)
	fmt.Printf("%d homes left\n", len(city.Homes.List(modules.HomeQuery{})))
	return nil
}

func runDeleteStation(cmd *cobra.Command, args []string) error {
	city, err := newCity()
	if err != nil {
		return err
	}
	defer city.Stop()

	st, err := city.Stations.Station(args[0])
	if err != nil {
		return fmt.Errorf("get station: %w", err)
	}
	if err := city.Stations.RemoveStation(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s (%s)\n", args[0], st.Location)
	fmt.Printf("%d stations left\n", len(city.Stations.List(modules.StationQuery{})))
	return nil
}

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/models"
)

var (
	updateAfter   time.Duration
	updateHome    homeFlags
	updateStation stationFlags
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Edit a home or station of a simulated city",
	Long: `Edit a home or station of a freshly built city. Only the flags you pass are
changed; sensor values are clamped to the policy bounds and the entity is
reclassified immediately.

Examples:
  citypulse update home H-5001 --gas 650 --smoke 420
  citypulse update home H-5003 --owner "Michael Green"
  citypulse update station ST-1002 --status maintenance
  citypulse update station ST-1005 --capacity 200 --after 2m`,
}

var updateHomeCmd = &cobra.Command{
	Use:   "home <id>",
	Short: "Edit a home",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateHome,
}

var updateStationCmd = &cobra.Command{
	Use:   "station <id>",
	Short: "Edit a station",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateStation,
}

func init() {
	updateCmd.PersistentFlags().DurationVar(&updateAfter, "after", 0, "virtual time to replay after the update")
	updateHome.register(updateHomeCmd)
	updateStation.register(updateStationCmd)

	updateCmd.AddCommand(updateHomeCmd)
	updateCmd.AddCommand(updateStationCmd)
}

func runUpdateHome(cmd *cobra.Command, args []string) error {
	u := updateHome.update(cmd)
	if u.Empty() {
		fmt.Println("No updates specified.")
		return nil
	}

	city, err := newCity()
	if err != nil {
		return err
	}
	defer city.Stop()

	id := args[0]
	if err := city.Homes.UpdateHome(id, u); err != nil {
		return err
	}
	replay(city, updateAfter)

	h, err := city.Homes.Home(id)
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}
	fmt.Printf("Updated home: %s\n\n", id)
	printHome(os.Stdout, id, h)
	return nil
}

func runUpdateStation(cmd *cobra.Command, args []string) error {
	u := updateStation.update(cmd)
	if u == (models.StationUpdate{}) {
		fmt.Println("No updates specified.")
		return nil
	}

	city, err := newCity()
	if err != nil {
		return err
	}
	defer city.Stop()

	id := args[0]
	if err := city.Stations.UpdateStation(id, u); err != nil {
		return err
	}
	replay(city, updateAfter)

	st, err := city.Stations.Station(id)
	if err != nil {
		return fmt.Errorf("get station: %w", err)
	}
	fmt.Printf("Updated station: %s\n\n", id)
	printStation(os.Stdout, id, st)
	return nil
}

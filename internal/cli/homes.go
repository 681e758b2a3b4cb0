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
	homesSearch string
	homesStatus string
	homesByRisk bool
	homesAfter  time.Duration
)

var homesCmd = &cobra.Command{
	Use:   "homes",
	Short: "Inspect monitored homes",
	Long: `Inspect the homes of a freshly built city, optionally after replaying some
virtual time first.

Subcommands:
  list  List homes (default)
  show  Show one home with its sensor readings

Examples:
  citypulse homes
  citypulse homes list --search elm
  citypulse homes list --status critical --sort-risk
  citypulse homes show H-5004 --after 5m --seed 42`,
	RunE: runHomesList,
}

var homesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List homes",
	RunE:  runHomesList,
}

var homesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one home",
	Args:  cobra.ExactArgs(1),
	RunE:  runHomesShow,
}

func init() {
	homesCmd.PersistentFlags().DurationVar(&homesAfter, "after", 0, "virtual time to replay first")

	for _, c := range []*cobra.Command{homesCmd, homesListCmd} {
		c.Flags().StringVarP(&homesSearch, "search", "s", "", "match id, owner, contact or address")
		c.Flags().StringVar(&homesStatus, "status", "", "filter by status (safe, warning, critical, emergency)")
		c.Flags().BoolVarP(&homesByRisk, "sort-risk", "r", false, "sort by descending risk")
	}

	homesCmd.AddCommand(homesListCmd)
	homesCmd.AddCommand(homesShowCmd)
}

func newHomes() (*modules.Homes, error) {
	city, err := newCity()
	if err != nil {
		return nil, err
	}
	if homesAfter > 0 {
		city.Advance(context.Background(), time.Now(), homesAfter)
	}
	return city.Homes, nil
}

func runHomesList(cmd *cobra.Command, args []string) error {
	homes, err := newHomes()
	if err != nil {
		return err
	}

	entries := homes.List(modules.HomeQuery{
		Search: homesSearch,
		Status: models.HomeStatus(homesStatus),
		ByRisk: homesByRisk,
	})
	if len(entries) == 0 {
		fmt.Println("No homes found.")
		return nil
	}

	fmt.Printf("Homes (%d):\n\n", len(entries))
	fmt.Printf("%-7s %-18s %-15s %8s %8s %6s %5s  %s\n", "ID", "OWNER", "ADDRESS", "GAS", "SMOKE", "TEMP", "RISK", "STATUS")
	for _, e := range entries {
		h := e.Value
		fmt.Printf("%-7s %-18s %-15s %8.1f %8.1f %6.1f %5d  %s\n",
			e.ID, h.Owner, h.Address, h.Gas, h.Smoke, h.Temperature, h.Risk, h.Status)
	}

	if verbose {
		snap := homes.Snapshot()
		fmt.Printf("\nSafe %d, Warning %d, Critical %d, average risk %.1f\n",
			snap.Safe, snap.Warning, snap.Critical, snap.AverageRisk)
	}
	return nil
}

func runHomesShow(cmd *cobra.Command, args []string) error {
	homes, err := newHomes()
	if err != nil {
		return err
	}

	h, err := homes.Home(args[0])
	if err != nil {
		return fmt.Errorf("get home: %w", err)
	}

	printHome(os.Stdout, args[0], h)
	return nil
}

func printHome(w io.Writer, id string, h models.Home) {
	fmt.Fprintf(w, "%s  %s\n", id, h.Owner)
	fmt.Fprintf(w, "  Address:     %s\n", h.Address)
	fmt.Fprintf(w, "  Contact:     %s\n", h.Contact)
	fmt.Fprintf(w, "  Status:      %s (risk %d)\n", h.Status, h.Risk)
	fmt.Fprintf(w, "  Gas:         %.1f ppm\n", h.Gas)
	fmt.Fprintf(w, "  Smoke:       %.1f ppm\n", h.Smoke)
	fmt.Fprintf(w, "  Temperature: %.1f °C\n", h.Temperature)
	fmt.Fprintf(w, "  Humidity:    %.1f %%\n", h.Humidity)
}

package cli

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive control center",
	Long: `Run the simulation behind a live terminal dashboard. Panels refresh
twice per second and keys trigger operator actions:

  e  toggle home emergency shutdown    i  simulate a cyber attack
  x  reset security state              f  fail a random streetlight
  m  cycle lighting mode               v  simulate a speed violation
  a  acknowledge pedestrian alerts     b  empty the fullest bin
  r  refresh forecast and analytics    q  quit

Logs go to the configured log file so they do not corrupt the screen. When
stdout is not a terminal the command behaves like "citypulse run".

Examples:
  citypulse dashboard
  citypulse dashboard --scale 5
  citypulse dashboard --seed 7 --policy ./policy.yaml`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		logger.Info("stdout is not a terminal, running headless")
		return runRun(cmd, args)
	}

	city, err := newCity()
	if err != nil {
		return err
	}
	ch, unsubscribe := city.Bus().Channel(256)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	city.Start(ctx)
	defer city.Stop()

	if _, err := tea.NewProgram(newDashboardModel(ctx, city, ch)).Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

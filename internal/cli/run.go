package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/events"
)

var (
	runDuration time.Duration
	runAll      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation headless and print events",
	Long: `Run every module on its clock and print events to stdout until the
duration elapses or the process is interrupted. Only alert transitions are
printed unless --all is given. A summary is printed on exit.

Examples:
  citypulse run
  citypulse run --duration 2m
  citypulse run --scale 10 --all
  CITYPULSE_SEED=42 citypulse run --duration 30s`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVarP(&runDuration, "duration", "d", 0, "stop after this long (0 = until interrupted)")
	runCmd.Flags().BoolVarP(&runAll, "all", "a", false, "print every event, not only alerts")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}
	return runHeadless(ctx)
}

// runHeadless drives the city until ctx is done. The dashboard falls back to
// it when stdout is not a terminal.
func runHeadless(ctx context.Context) error {
	city, err := newCity()
	if err != nil {
		return err
	}

	ch, unsubscribe := city.Bus().Channel(256)
	defer unsubscribe()

	city.Start(ctx)
	fmt.Printf("Simulation running (seed %d, scale %gx). Press Ctrl+C to stop.\n\n", cfg.Seed, cfg.TimeScale)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev := <-ch:
			if runAll || ev.Kind == events.AlertRaised || ev.Kind == events.AlertCleared {
				fmt.Println(formatEvent(ev))
			}
		}
	}

	city.Stop()
	fmt.Println()
	printOverview(os.Stdout, city)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/metrics"
)

var statsDuration time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine runtime statistics",
	Long: `Replay virtual time and print tick timings and event counts per clock
and module. Useful to spot slow handlers and noisy modules.

Examples:
  citypulse stats
  citypulse stats --duration 1h --seed 7`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().DurationVarP(&statsDuration, "duration", "d", 10*time.Minute, "virtual time to replay")
}

func runStats(cmd *cobra.Command, args []string) error {
	city, err := newCity()
	if err != nil {
		return err
	}
	defer city.Stop()

	city.Advance(context.Background(), time.Now(), statsDuration)
	printStats(city.Metrics().Snapshot())
	return nil
}

// printStats displays engine runtime statistics.
func printStats(snap metrics.Snapshot) {
	fmt.Printf("Engine Statistics (%s of virtual time)\n", statsDuration)
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Wall time: %.2f seconds\n", snap.UptimeSeconds)

	if len(snap.Ticks) > 0 {
		fmt.Printf("\nTicks:\n")
		for _, op := range snap.Ticks {
			printOpStats(op)
		}
	}

	total := lo.Sum(lo.Values(snap.Events))
	fmt.Printf("\nEvents: %d total\n", total)
	printCounts(lo.MapKeys(snap.Events, func(_ int64, k events.Kind) string { return string(k) }), total)

	fmt.Printf("\nBy Module:\n")
	printCounts(snap.Modules, total)
}

// printOpStats displays timing statistics for one clock.
func printOpStats(op metrics.OperationSnapshot) {
	fmt.Printf("  %-20s %6d calls, avg %.3fms, min %.3fms, max %.3fms\n",
		op.Name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

func printCounts(counts map[string]int64, total int64) {
	keys := lo.Keys(counts)
	sort.Strings(keys)
	for _, k := range keys {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[k]) / float64(total) * 100
		}
		fmt.Printf("  %-16s %8d (%5.1f%%)\n", k, counts[k], pct)
	}
}

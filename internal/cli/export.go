package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/citypulse/internal/modules"
	"github.com/raphaelgruber/citypulse/internal/service"
)

var (
	exportAfter   time.Duration
	exportModules []string
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export module snapshots to JSON and a Markdown report",
	Long: `Build a city, replay virtual time and write what every module sees.

Creates one <module>.json per module plus report.md, whose frontmatter
records the seed, time scale and replayed duration so the export can be
reproduced.

Examples:
  citypulse export ./out
  citypulse export ./out --after 30m --seed 42
  citypulse export ./out --modules homes,stations`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().DurationVar(&exportAfter, "after", 10*time.Minute, "virtual time to replay before exporting")
	exportCmd.Flags().StringSliceVarP(&exportModules, "modules", "m", nil, "export only these modules")
}

// exportMeta is the frontmatter of report.md.
type exportMeta struct {
	Seed       uint64    `yaml:"seed"`
	TimeScale  float64   `yaml:"time_scale"`
	Replayed   string    `yaml:"replayed"`
	VirtualNow time.Time `yaml:"virtual_now"`
	Modules    []string  `yaml:"modules"`
}

func runExport(cmd *cobra.Command, args []string) error {
	city, err := newCity()
	if err != nil {
		return err
	}
	now := city.Advance(context.Background(), time.Now(), exportAfter)

	meta := exportMeta{
		Seed:       cfg.Seed,
		TimeScale:  cfg.TimeScale,
		Replayed:   exportAfter.String(),
		VirtualNow: now.UTC().Truncate(time.Second),
	}
	written, err := writeExport(args[0], city, meta, exportModules)
	if err != nil {
		return err
	}

	if verbose {
		for _, f := range written {
			fmt.Printf("  Exported: %s\n", f)
		}
	}
	fmt.Printf("\nExported %d files to %s\n", len(written), args[0])
	return nil
}

// snapshots returns every module snapshot keyed by module name.
func snapshots(city *service.CityService) map[string]any {
	return map[string]any{
		"security":   city.Security.Snapshot(),
		"city":       city.City.Snapshot(),
		"homes":      city.Homes.Snapshot(),
		"stations":   city.Stations.Snapshot(),
		"recycling":  city.Recycling.Snapshot(),
		"lighting":   city.Lighting.Snapshot(),
		"pedestrian": city.Pedestrian.Snapshot(),
		"analytics":  city.Analytics.Snapshot(),
	}
}

// writeExport writes the selected snapshots and report.md into dir and
// returns the written paths. An empty selection exports every module.
func writeExport(dir string, city *service.CityService, meta exportMeta, only []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	all := snapshots(city)
	if len(only) == 0 {
		only = lo.Map(city.Modules(), func(m modules.Module, _ int) string { return m.Name() })
	}

	var written []string
	for _, name := range only {
		snap, ok := all[name]
		if !ok {
			return written, fmt.Errorf("unknown module %q", name)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	meta.Modules = only

	front, err := yaml.Marshal(meta)
	if err != nil {
		return written, fmt.Errorf("encode frontmatter: %w", err)
	}
	var report bytes.Buffer
	report.WriteString("---\n")
	report.Write(front)
	report.WriteString("---\n\n# City report\n\n```\n")
	printOverview(&report, city)
	report.WriteString("```\n")

	path := filepath.Join(dir, "report.md")
	if err := os.WriteFile(path, report.Bytes(), 0644); err != nil {
		return written, fmt.Errorf("write %s: %w", path, err)
	}
	return append(written, path), nil
}

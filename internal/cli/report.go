package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/service"
)

// printOverview writes a one-screen summary of every module.
func printOverview(w io.Writer, city *service.CityService) {
	sec := city.Security.Snapshot()
	ci := city.City.Snapshot()
	homes := city.Homes.Snapshot()
	st := city.Stations.Snapshot()
	rec := city.Recycling.Snapshot()
	light := city.Lighting.Snapshot()
	ped := city.Pedestrian.Snapshot()

	fmt.Fprintf(w, "City Overview\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Security:   score %d (%s)\n", sec.Score, sec.Level)
	for _, f := range sec.Factors {
		fmt.Fprintf(w, "  %-10s %6.1f (baseline %.0f, weight %.1f)\n", f.Name, f.Value, f.Baseline, f.Weight)
	}
	if len(sec.Threats) > 0 {
		fmt.Fprintf(w, "  threats    %d, latest %s (%s)\n", len(sec.Threats), sec.Threats[0].Type, sec.Threats[0].Severity)
	}
	fmt.Fprintf(w, "City:       stability %d (%s)\n", ci.Stability, ci.Level)
	fmt.Fprintf(w, "  advice     %s (%d%% confidence, %s impact)\n",
		ci.Recommendation.Text, ci.Recommendation.Confidence, ci.Recommendation.Impact)
	fmt.Fprintf(w, "Homes:      %d total, %d safe, %d warning, %d critical, avg risk %.1f",
		homes.Total, homes.Safe, homes.Warning, homes.Critical, homes.AverageRisk)
	if homes.Emergency {
		fmt.Fprint(w, " [EMERGENCY]")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stations:   %d/%d passengers, %d full, %d maintenance, next bus in %ds\n",
		st.Passengers, st.Capacity, st.Full, st.Maintenance, st.BusETA)
	fmt.Fprintf(w, "Recycling:  %.1f kg collected", rec.TotalKg)
	for _, m := range rec.Materials {
		fmt.Fprintf(w, ", %s %.1f", m.Name, m.Kg)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Lighting:   %s mode, %d active poles, %.1f%% energy saved\n",
		light.Mode, light.Active, light.EnergySaved)
	fmt.Fprintf(w, "Pedestrian: %d alerts, %d violations, risk %d (%s)\n",
		ped.Alerts, ped.Violations, ped.Risk, ped.Level)

	open := openAlerts(city)
	if len(open) == 0 {
		return
	}
	fmt.Fprintf(w, "\nOpen alerts (%d):\n", len(open))
	for _, o := range open {
		fmt.Fprintf(w, "  • %-8s %-12s %s\n", o.EntityID, o.Condition, o.Severity.Name)
	}
}

// openAlerts collects the open entity alerts of every module.
func openAlerts(city *service.CityService) []alert.Open {
	return lo.Flatten([][]alert.Open{
		city.Homes.Snapshot().OpenAlerts,
		city.Stations.Snapshot().OpenAlerts,
		city.Recycling.Snapshot().OpenAlerts,
		city.Lighting.Snapshot().OpenAlerts,
	})
}

// formatEvent renders an event as a single log line.
func formatEvent(ev events.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-10s %-15s", ev.At.Format("15:04:05"), ev.Module, ev.Kind)
	if ev.EntityID != "" {
		fmt.Fprintf(&b, " %s", ev.EntityID)
	}
	if ev.Condition != "" {
		fmt.Fprintf(&b, " %s", ev.Condition)
	}
	if ev.Series != "" {
		fmt.Fprintf(&b, " %s", ev.Series)
	}
	if ev.Severity != "" {
		fmt.Fprintf(&b, " [%s]", ev.Severity)
	}
	fmt.Fprintf(&b, " %.1f", ev.Value)
	return b.String()
}

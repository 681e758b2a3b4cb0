package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/modules"
	"github.com/raphaelgruber/citypulse/internal/registry"
	"github.com/raphaelgruber/citypulse/internal/service"
)

const (
	refreshInterval = 500 * time.Millisecond
	alertLogSize    = 8
	panelWidth      = 38
)

// Theme holds the color scheme for the dashboard.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Warning:    lipgloss.Color("#FFAF00"), // amber
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.ProgressBg).
		Padding(0, 1).
		Width(panelWidth)
}

// tierSeverity ranks every tier name the modules emit: 0 good, 1 warning, 2 bad.
var tierSeverity = map[string]int{
	"Stable": 0, "STABLE": 0, "Safe": 0, "LOW": 0, "Normal": 0,
	"Operational": 0, "Available": 0, "Active": 0,
	"Warning": 1, "MODERATE": 1, "MEDIUM": 1, "Almost Full": 1,
	"Critical": 2, "AT RISK": 2, "HIGH": 2, "Full": 2,
	"Emergency": 2, "Maintenance": 2,
}

// threatTier maps a threat severity onto a tier name.
func threatTier(severity string) string {
	if severity == models.ThreatCritical {
		return "Critical"
	}
	return "Warning"
}

// tier renders a tier name in its severity color.
func (t Theme) tier(name string) string {
	color := t.Hint
	if sev, ok := tierSeverity[name]; ok {
		color = []lipgloss.Color{t.Success, t.Warning, t.Error}[sev]
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(name)
}

// eventMsg carries one event from the bus.
type eventMsg events.Event

// refreshMsg re-renders module snapshots.
type refreshMsg time.Time

// dashboardModel is the bubbletea model of the control center.
type dashboardModel struct {
	ctx    context.Context
	city   *service.CityService
	events <-chan events.Event

	stability progress.Model
	risk      progress.Model
	prompt    textinput.Model
	theme     Theme

	alerts    []string
	status    string
	prompting bool
	quitting  bool
}

func newDashboardModel(ctx context.Context, city *service.CityService, ch <-chan events.Event) dashboardModel {
	bar := func() progress.Model {
		return progress.New(progress.WithDefaultBlend(), progress.WithWidth(panelWidth-14))
	}
	prompt := textinput.New()
	prompt.Prompt = ": "
	prompt.Placeholder = "set-fill BIN-001 100"
	return dashboardModel{
		ctx:       ctx,
		city:      city,
		events:    ch,
		stability: bar(),
		risk:      bar(),
		prompt:    prompt,
		theme:     defaultTheme,
		status:    "Simulation running",
	}
}

// Init starts listening for events and schedules the first refresh.
func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), refreshCmd())
}

// Update handles messages and returns the updated model.
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case ":":
			m.prompting = true
			m.prompt.Reset()
			return m, m.prompt.Focus()
		default:
			m = m.handleKey(key)
		}

	case eventMsg:
		if msg.Kind == events.AlertRaised || msg.Kind == events.AlertCleared {
			m.alerts = append(m.alerts, formatEvent(events.Event(msg)))
			if len(m.alerts) > alertLogSize {
				m.alerts = m.alerts[len(m.alerts)-alertLogSize:]
			}
		}
		return m, m.waitEvent()

	case refreshMsg:
		return m, refreshCmd()
	}

	return m, nil
}

// updatePrompt feeds a key to the action prompt. Enter runs the line, esc
// closes the prompt.
func (m dashboardModel) updatePrompt(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	case "enter":
		m.prompting = false
		m.prompt.Blur()
		return m.runCommand(m.prompt.Value()), nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// runCommand applies one line of the action language.
func (m dashboardModel) runCommand(line string) dashboardModel {
	if strings.TrimSpace(line) == "" {
		return m
	}
	action, err := parseAction(line)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	msg, err := action(m.city)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	m.status = msg
	return m
}

// handleKey runs the action bound to key.
func (m dashboardModel) handleKey(key string) dashboardModel {
	c := m.city
	var err error
	switch key {
	case "e":
		if c.Homes.Emergency() {
			c.Homes.Resume()
			m.status = "Emergency mode lifted"
		} else {
			c.Homes.EmergencyShutdown()
			m.status = "Emergency shutdown activated"
		}
	case "i":
		err = c.Security.SimulateIncident("cyber_attack")
		m.status = "Cyber attack simulated"
	case "x":
		c.Security.Reset()
		m.status = "System state reset"
	case "f":
		var id string
		id, err = c.Lighting.FailRandomPole()
		m.status = "Pole " + id + " failed"
	case "m":
		next := map[modules.LightingMode]modules.LightingMode{
			modules.ModeAuto:   modules.ModeEco,
			modules.ModeEco:    modules.ModeManual,
			modules.ModeManual: modules.ModeAuto,
		}[c.Lighting.Snapshot().Mode]
		err = c.Lighting.SetMode(next)
		m.status = "Lighting mode " + string(next)
	case "v":
		v := c.Pedestrian.SimulateViolation()
		m.status = fmt.Sprintf("Violation at %s: %s at %d km/h", v.Crosswalk, v.Vehicle, v.SpeedKmh)
	case "a":
		c.Pedestrian.Acknowledge()
		m.status = "Pedestrian alerts acknowledged"
	case "b":
		bins := c.Recycling.Snapshot().Bins
		if len(bins) == 0 {
			break
		}
		fullest := lo.MaxBy(bins, func(a, b registry.Entry[models.Bin]) bool { return a.Value.Fill > b.Value.Fill })
		err = c.Recycling.EmptyBin(fullest.ID)
		m.status = "Bin " + fullest.ID + " emptied"
	case "r":
		c.City.RefreshForecast()
		c.Analytics.Refresh()
		m.status = "Forecast and analytics refreshed"
	case "t":
		var th models.Threat
		th, err = c.Security.TriggerThreat()
		m.status = fmt.Sprintf("%s threat: %s", th.Severity, th.Type)
	case "c":
		c.Security.ClearThreats()
		m.status = "Threat list cleared"
	case "o":
		var id string
		id, err = c.Recycling.SimulateBinFull()
		m.status = "Bin " + id + " is full"
	case "n":
		m.status = fmt.Sprintf("Collection requested for %d bins", len(c.Recycling.NotifyCollection()))
	case "p":
		pr := c.City.GeneratePrediction()
		m.status = fmt.Sprintf("Prediction: %s risk, severity %d", pr.Category, pr.Severity)
	case "y":
		m.status = "Applied: " + c.City.ApplyRecommendation().Text
	case "g":
		m.status = "Ignored: " + c.City.IgnoreRecommendation().Text
	default:
		return m
	}
	if err != nil {
		m.status = "Error: " + err.Error()
	}
	return m
}

// View renders the dashboard.
func (m dashboardModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m dashboardModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("Simulation stopped.\n")
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, m.securityPanel(), m.homesPanel(), m.stationsPanel())
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, m.infraPanel(), m.pedestrianPanel(), m.alertPanel())

	var b strings.Builder
	b.WriteString(m.theme.titleStyle().Render("CITYPULSE CONTROL CENTER"))
	b.WriteString("  " + m.status + "\n")
	b.WriteString(row1 + "\n" + row2 + "\n")
	if m.prompting {
		b.WriteString(m.prompt.View())
		return b.String()
	}
	b.WriteString(m.theme.hintStyle().Render(
		"e emergency  i incident  x reset  t threat  c clear threats  f fail pole  m light mode  v violation  a acknowledge\n" +
			"b empty bin  o bin full  n notify  r refresh  p predict  y/g apply/ignore advice  : command  q quit"))
	return b.String()
}

func (m dashboardModel) panel(title string, lines ...string) string {
	body := m.theme.titleStyle().Render(title) + "\n" + strings.Join(lines, "\n")
	return m.theme.panelStyle().Render(body)
}

func (m dashboardModel) securityPanel() string {
	sec := m.city.Security.Snapshot()
	ci := m.city.City.Snapshot()
	lines := []string{
		fmt.Sprintf("Stability %3d %s", sec.Score, m.stability.ViewAs(float64(sec.Score)/100)),
		"Level     " + m.theme.tier(sec.Level),
	}
	for _, f := range sec.Factors {
		lines = append(lines, fmt.Sprintf("  %-8s %6.1f", f.Name, f.Value))
	}
	lines = append(lines,
		fmt.Sprintf("City      %3d %s", ci.Stability, m.theme.tier(ci.Level)),
		fmt.Sprintf("Threats   %d", len(sec.Threats)),
	)
	if len(sec.Threats) > 0 {
		th := sec.Threats[0]
		lines = append(lines, "  "+m.theme.tier(threatTier(th.Severity))+" "+th.Type)
	}
	for _, h := range sec.Health {
		if h.Status != models.HealthOperational {
			lines = append(lines, fmt.Sprintf("  %s %s", m.theme.tier(string(h.Status)), h.Name))
		}
	}
	if n := len(ci.Decisions); n > 0 {
		lines = append(lines, m.theme.hintStyle().Render(ci.Decisions[n-1].Message))
	}
	return m.panel("Security Intelligence", lines...)
}

func (m dashboardModel) homesPanel() string {
	snap := m.city.Homes.Snapshot()
	lines := []string{
		fmt.Sprintf("%d homes, avg risk %.1f", snap.Total, snap.AverageRisk),
		fmt.Sprintf("%s %d  %s %d  %s %d",
			m.theme.tier("Safe"), snap.Safe, m.theme.tier("Warning"), snap.Warning, m.theme.tier("Critical"), snap.Critical),
	}
	if snap.Emergency {
		lines = append(lines, m.theme.tier("Emergency")+" shutdown active")
	}
	top := m.city.Homes.List(modules.HomeQuery{ByRisk: true})
	for _, e := range top[:min(4, len(top))] {
		lines = append(lines, fmt.Sprintf("%s %5.0f ppm %s", e.ID, e.Value.Gas, m.theme.tier(string(e.Value.Status))))
	}
	if n := len(snap.Temperature); n > 0 {
		lines = append(lines, fmt.Sprintf("Avg %.1f °C, %.1f %% RH", snap.Temperature[n-1], snap.Humidity[n-1]))
	}
	return m.panel("Home Security", lines...)
}

func (m dashboardModel) stationsPanel() string {
	snap := m.city.Stations.Snapshot()
	pct := 0.0
	if snap.Capacity > 0 {
		pct = float64(snap.Passengers) / float64(snap.Capacity)
	}
	lines := []string{
		fmt.Sprintf("Load %3.0f%% %s", pct*100, m.risk.ViewAs(pct)),
		fmt.Sprintf("%d operational, %d full, %d maint.", snap.Operational, snap.Full, snap.Maintenance),
		fmt.Sprintf("Next bus in %d:%02d", snap.BusETA/60, snap.BusETA%60),
	}
	for _, c := range snap.Occupancy {
		lines = append(lines, fmt.Sprintf("  %-12s %d", c.Tier, c.Count))
	}
	if n := len(snap.Taps); n > 0 {
		tap := snap.Taps[n-1]
		lines = append(lines, fmt.Sprintf("Last tap %s @ %s", tap.Passenger, tap.StationID))
	}
	return m.panel("Transit Stations", lines...)
}

func (m dashboardModel) infraPanel() string {
	rec := m.city.Recycling.Snapshot()
	light := m.city.Lighting.Snapshot()
	full := lo.CountBy(rec.Bins, func(e registry.Entry[models.Bin]) bool { return e.Value.Status == models.BinFull })
	lines := []string{
		fmt.Sprintf("Recycled %.1f kg", rec.TotalKg),
		fmt.Sprintf("%d bins, %d full", len(rec.Bins), full),
		"",
		fmt.Sprintf("Lighting %s, %d/%d poles on", light.Mode, light.Active, len(light.Poles)),
		fmt.Sprintf("Energy saved %.1f%%", light.EnergySaved),
		fmt.Sprintf("Avg intensity %.0f%%", light.AverageIntensity),
	}
	return m.panel("Infrastructure", lines...)
}

func (m dashboardModel) pedestrianPanel() string {
	snap := m.city.Pedestrian.Snapshot()
	lines := []string{
		fmt.Sprintf("Risk %3d %s", snap.Risk, m.theme.tier(snap.Level)),
		fmt.Sprintf("%d alerts, %d violations", snap.Alerts, snap.Violations),
	}
	recent := snap.Recent[max(0, len(snap.Recent)-3):]
	for _, v := range recent {
		lines = append(lines, fmt.Sprintf("%s %s %d km/h", v.Crosswalk, v.Vehicle, v.SpeedKmh))
	}
	return m.panel("Pedestrian Safety", lines...)
}

func (m dashboardModel) alertPanel() string {
	if len(m.alerts) == 0 {
		return m.panel("Alerts", m.theme.hintStyle().Render("No alerts yet"))
	}
	return m.panel("Alerts", m.alerts...)
}

// waitEvent blocks on the event channel in a command goroutine.
func (m dashboardModel) waitEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return eventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// refreshCmd returns a command that sends a refresh after the interval.
func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/modules"
	"github.com/raphaelgruber/citypulse/internal/service"
)

// cityAction applies one operator action and returns a one-line result.
type cityAction func(city *service.CityService) (string, error)

// actionUsage documents the action language accepted by simulate --do and
// the dashboard prompt.
var actionUsage = []string{
	"add-home owner=..,contact=..,address=..[,gas=..,smoke=..,temperature=..,humidity=..]",
	"update-home <id> key=value[,key=value]",
	"remove-home <id>",
	"add-station location=..,capacity=..[,passengers=..,status=..]",
	"update-station <id> key=value[,key=value]",
	"remove-station <id>",
	"set-fill <bin> <pct>",
	"empty-bin <bin>",
	"bin-full",
	"notify-collection",
	"fail-pole <pole>",
	"repair-pole <pole>",
	"intensity <pct>",
	"mode <auto|eco|manual>",
	"incident <name>",
	"threat",
	"clear-threats",
	"reset",
	"violation",
	"ack",
	"emergency",
	"resume",
	"predict",
	"apply-rec",
	"ignore-rec",
}

// parseAction parses one line of the action language:
//
//	<verb> [args...] [key=value,key=value]
//
// Field values may contain spaces; commas separate fields.
func parseAction(line string) (cityAction, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "add-home", "update-home", "remove-home", "add-station", "update-station", "remove-station":
		return parseEntityAction(verb, rest)
	case "set-fill", "empty-bin", "bin-full", "notify-collection":
		return parseRecyclingAction(verb, rest)
	case "fail-pole", "repair-pole", "intensity", "mode":
		return parseLightingAction(verb, rest)
	case "incident":
		args, err := exact(verb, rest, 1)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			if err := c.Security.SimulateIncident(args[0]); err != nil {
				return "", fmt.Errorf("%w (available: %v)", err, c.Security.Incidents())
			}
			return "Incident " + args[0] + " applied", nil
		}, nil
	}

	action, ok := operatorAction(verb)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", verb)
	}
	if rest != "" {
		return nil, fmt.Errorf("%s takes no arguments", verb)
	}
	return action, nil
}

// operatorAction returns the action of a verb that takes no arguments.
func operatorAction(verb string) (cityAction, bool) {
	switch verb {
	case "threat":
		return func(c *service.CityService) (string, error) {
			th, err := c.Security.TriggerThreat()
			return fmt.Sprintf("%s threat: %s on %s", th.Severity, th.Type, th.Component), err
		}, true
	case "clear-threats":
		return func(c *service.CityService) (string, error) {
			c.Security.ClearThreats()
			return "Threat list cleared", nil
		}, true
	case "reset":
		return func(c *service.CityService) (string, error) {
			c.Security.Reset()
			return "Security reset", nil
		}, true
	case "violation":
		return func(c *service.CityService) (string, error) {
			v := c.Pedestrian.SimulateViolation()
			return fmt.Sprintf("Violation at %s, %d km/h", v.Crosswalk, v.SpeedKmh), nil
		}, true
	case "ack":
		return func(c *service.CityService) (string, error) {
			c.Pedestrian.Acknowledge()
			return "Pedestrian alerts acknowledged", nil
		}, true
	case "emergency":
		return func(c *service.CityService) (string, error) {
			c.Homes.EmergencyShutdown()
			return "Emergency shutdown", nil
		}, true
	case "resume":
		return func(c *service.CityService) (string, error) {
			c.Homes.Resume()
			return "Homes resumed", nil
		}, true
	case "predict":
		return func(c *service.CityService) (string, error) {
			pr := c.City.GeneratePrediction()
			return fmt.Sprintf("Prediction: %s risk, severity %d", pr.Category, pr.Severity), nil
		}, true
	case "apply-rec":
		return func(c *service.CityService) (string, error) {
			return "Applied: " + c.City.ApplyRecommendation().Text, nil
		}, true
	case "ignore-rec":
		return func(c *service.CityService) (string, error) {
			return "Ignored: " + c.City.IgnoreRecommendation().Text, nil
		}, true
	}
	return nil, false
}

// positional splits the leading n words off rest.
func positional(verb, rest string, n int) ([]string, string, error) {
	args := make([]string, 0, n)
	for range n {
		var word string
		word, rest, _ = strings.Cut(rest, " ")
		if word == "" {
			return nil, "", fmt.Errorf("%s: expected %d argument(s)", verb, n)
		}
		args = append(args, word)
		rest = strings.TrimSpace(rest)
	}
	return args, rest, nil
}

// exact is positional for verbs without a field list.
func exact(verb, rest string, n int) ([]string, error) {
	args, rest, err := positional(verb, rest, n)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("%s: unexpected %q", verb, rest)
	}
	return args, nil
}

func parseEntityAction(verb, rest string) (cityAction, error) {
	switch verb {
	case "add-home":
		in, err := homeInput(rest)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			id, err := c.Homes.AddHome(in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Added home %s (%s)", id, in.Owner), nil
		}, nil
	case "add-station":
		in, err := stationInput(rest)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			id, err := c.Stations.AddStation(in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Added station %s (%s)", id, in.Location), nil
		}, nil
	case "remove-home", "remove-station":
		args, err := exact(verb, rest, 1)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			if verb == "remove-home" {
				return "Removed home " + args[0], c.Homes.RemoveHome(args[0])
			}
			return "Removed station " + args[0], c.Stations.RemoveStation(args[0])
		}, nil
	}

	args, rest, err := positional(verb, rest, 1)
	if err != nil {
		return nil, err
	}
	id := args[0]
	if verb == "update-home" {
		u, err := homeUpdate(rest)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			return "Updated home " + id, c.Homes.UpdateHome(id, u)
		}, nil
	}
	u, err := stationUpdate(rest)
	if err != nil {
		return nil, err
	}
	return func(c *service.CityService) (string, error) {
		return "Updated station " + id, c.Stations.UpdateStation(id, u)
	}, nil
}

func parseRecyclingAction(verb, rest string) (cityAction, error) {
	switch verb {
	case "set-fill":
		args, err := exact(verb, rest, 2)
		if err != nil {
			return nil, err
		}
		pct, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
		if err != nil {
			return nil, fmt.Errorf("fill %q: %w", args[1], err)
		}
		return func(c *service.CityService) (string, error) {
			return fmt.Sprintf("Bin %s set to %d%%", args[0], pct), c.Recycling.SetFill(args[0], pct)
		}, nil
	case "empty-bin":
		args, err := exact(verb, rest, 1)
		if err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			return "Bin " + args[0] + " emptied", c.Recycling.EmptyBin(args[0])
		}, nil
	case "bin-full":
		if _, err := exact(verb, rest, 0); err != nil {
			return nil, err
		}
		return func(c *service.CityService) (string, error) {
			id, err := c.Recycling.SimulateBinFull()
			return "Bin " + id + " is full", err
		}, nil
	}
	if _, err := exact(verb, rest, 0); err != nil {
		return nil, err
	}
	return func(c *service.CityService) (string, error) {
		ids := c.Recycling.NotifyCollection()
		if len(ids) == 0 {
			return "No full bins", nil
		}
		return "Collection requested for " + strings.Join(ids, ", "), nil
	}, nil
}

func parseLightingAction(verb, rest string) (cityAction, error) {
	args, err := exact(verb, rest, 1)
	if err != nil {
		return nil, err
	}
	arg := args[0]
	switch verb {
	case "fail-pole":
		return func(c *service.CityService) (string, error) {
			return "Pole " + arg + " in maintenance", c.Lighting.FailPole(arg)
		}, nil
	case "repair-pole":
		return func(c *service.CityService) (string, error) {
			return "Pole " + arg + " repaired", c.Lighting.RepairPole(arg)
		}, nil
	case "intensity":
		pct, err := strconv.Atoi(strings.TrimSuffix(arg, "%"))
		if err != nil {
			return nil, fmt.Errorf("intensity %q: %w", arg, err)
		}
		return func(c *service.CityService) (string, error) {
			return fmt.Sprintf("Manual intensity %d%%", pct), c.Lighting.SetManualIntensity(pct)
		}, nil
	}
	mode, err := modules.ParseLightingMode(arg)
	if err != nil {
		return nil, err
	}
	return func(c *service.CityService) (string, error) {
		return "Lighting mode " + string(mode), c.Lighting.SetMode(mode)
	}, nil
}

// parseFields splits "a=1,b=two words" into a map and rejects keys outside
// allowed.
func parseFields(s string, allowed []string) (map[string]string, error) {
	out := map[string]string{}
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", part)
		}
		if !lo.Contains(allowed, k) {
			return nil, fmt.Errorf("unknown field %q (available: %s)", k, strings.Join(allowed, ", "))
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func floatField(fields map[string]string, key string) (*float64, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", key, v, err)
	}
	return &f, nil
}

func intField(fields map[string]string, key string) (*int, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", key, v, err)
	}
	return &n, nil
}

func stringField(fields map[string]string, key string) *string {
	if v, ok := fields[key]; ok {
		return &v
	}
	return nil
}

var homeFields = []string{"owner", "contact", "address", "gas", "smoke", "temperature", "humidity"}

func homeUpdate(s string) (models.HomeUpdate, error) {
	fields, err := parseFields(s, homeFields)
	if err != nil {
		return models.HomeUpdate{}, err
	}
	u := models.HomeUpdate{
		Owner:   stringField(fields, "owner"),
		Contact: stringField(fields, "contact"),
		Address: stringField(fields, "address"),
	}
	if u.Gas, err = floatField(fields, "gas"); err != nil {
		return u, err
	}
	if u.Smoke, err = floatField(fields, "smoke"); err != nil {
		return u, err
	}
	if u.Temperature, err = floatField(fields, "temperature"); err != nil {
		return u, err
	}
	if u.Humidity, err = floatField(fields, "humidity"); err != nil {
		return u, err
	}
	if u.Empty() {
		return u, fmt.Errorf("no fields given (available: %s)", strings.Join(homeFields, ", "))
	}
	return u, nil
}

// homeInput builds a new home from fields. Climate readings default to a
// comfortable indoor value.
func homeInput(s string) (models.HomeInput, error) {
	u, err := homeUpdate(s)
	if err != nil {
		return models.HomeInput{}, err
	}
	return models.HomeInput{
		Owner:       lo.FromPtr(u.Owner),
		Contact:     lo.FromPtr(u.Contact),
		Address:     lo.FromPtr(u.Address),
		Gas:         lo.FromPtr(u.Gas),
		Smoke:       lo.FromPtr(u.Smoke),
		Temperature: lo.FromPtrOr(u.Temperature, 22),
		Humidity:    lo.FromPtrOr(u.Humidity, 50),
	}, nil
}

var stationFields = []string{"location", "capacity", "passengers", "status"}

func stationUpdate(s string) (models.StationUpdate, error) {
	fields, err := parseFields(s, stationFields)
	if err != nil {
		return models.StationUpdate{}, err
	}
	u := models.StationUpdate{Location: stringField(fields, "location")}
	if u.Capacity, err = intField(fields, "capacity"); err != nil {
		return u, err
	}
	if u.Passengers, err = intField(fields, "passengers"); err != nil {
		return u, err
	}
	if st, ok := fields["status"]; ok {
		u.Status = lo.ToPtr(models.StationStatus(st))
	}
	if u == (models.StationUpdate{}) {
		return u, fmt.Errorf("no fields given (available: %s)", strings.Join(stationFields, ", "))
	}
	return u, nil
}

func stationInput(s string) (models.StationInput, error) {
	u, err := stationUpdate(s)
	if err != nil {
		return models.StationInput{}, err
	}
	return models.StationInput{
		Location:   lo.FromPtr(u.Location),
		Capacity:   lo.FromPtr(u.Capacity),
		Passengers: lo.FromPtr(u.Passengers),
		Status:     lo.FromPtr(u.Status),
	}, nil
}

// runActions parses every line first, then applies them in order and
// stops at the first failure.
func runActions(city *service.CityService, lines []string) ([]string, error) {
	actions := make([]cityAction, 0, len(lines))
	for _, line := range lines {
		a, err := parseAction(line)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	out := make([]string, 0, len(actions))
	for i, a := range actions {
		msg, err := a(city)
		if err != nil {
			return out, fmt.Errorf("%s: %w", lines[i], err)
		}
		out = append(out, msg)
	}
	return out, nil
}

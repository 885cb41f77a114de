// Package dashboard emits a Grafana dashboard JSON document with one
// graph panel per target, querying p95/p99 latency from the metrics
// registry's histograms. Grounded on original sonar's
// config/grafana.rs panel_from_target/to_prometheus_grafana, expressed
// with encoding/json structs instead of a grafana_dashboard crate —
// no such Grafana-model library appears anywhere in the corpus, so
// this is a deliberate stdlib choice (see DESIGN.md).
package dashboard

import (
	"encoding/json"
	"fmt"

	"github.com/sonarwatch/sonar/internal/config"
	"github.com/sonarwatch/sonar/internal/metricname"
)

type gridPos struct {
	H int `json:"h"`
	W int `json:"w"`
	X int `json:"x"`
	Y int `json:"y"`
}

type legend struct {
	Show    bool `json:"show"`
	Values  bool `json:"values"`
	Current bool `json:"current"`
}

type tooltip struct {
	Shared    bool   `json:"shared"`
	ValueType string `json:"value_type"`
}

type panelTarget struct {
	Expr         string `json:"expr"`
	LegendFormat string `json:"legendFormat"`
	RefID        string `json:"refId"`
}

type panel struct {
	ID         int           `json:"id"`
	Title      string        `json:"title"`
	Type       string        `json:"type"`
	Datasource string        `json:"datasource"`
	GridPos    gridPos       `json:"gridPos"`
	Legend     legend        `json:"legend"`
	Tooltip    tooltip       `json:"tooltip"`
	Lines      bool          `json:"lines"`
	Fill       int           `json:"fill"`
	Targets    []panelTarget `json:"targets"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type dashboardDoc struct {
	Title      string  `json:"title"`
	UID        string  `json:"uid"`
	Schema     int     `json:"schemaVersion"`
	Version    int     `json:"version"`
	Editable   bool    `json:"editable"`
	Style      string  `json:"style"`
	Timezone   string  `json:"timezone"`
	Refresh    string  `json:"refresh"`
	Time       timeRange `json:"time"`
	Panels     []panel `json:"panels"`
	Tags       []string `json:"tags"`
}

const percentileWindow = "5m"

// Generate renders the dashboard JSON for cfg. It performs no I/O; the
// caller is responsible for writing the bytes to the configured
// output path.
func Generate(cfg *config.Config) ([]byte, error) {
	panels := make([]panel, 0, len(cfg.Targets))
	for i, t := range cfg.Targets {
		panels = append(panels, panelFromTarget(i+1, t))
	}

	doc := dashboardDoc{
		Title:    "Sonar",
		UID:      "sonar",
		Schema:   22,
		Version:  1,
		Editable: true,
		Style:    "dark",
		Timezone: "",
		Refresh:  "5s",
		Time:     timeRange{From: "now-1h", To: "now"},
		Panels:   panels,
		Tags:     []string{},
	}

	return json.MarshalIndent(&doc, "", "  ")
}

func panelFromTarget(id int, t config.Target) panel {
	// t.Name may be an explicit name from config, never re-validated for
	// metric-safety at load time, so it is normalized again here to match
	// the metric name the registry actually exposes it under.
	normalized := metricname.Normalize(t.Name)

	var targets []panelTarget
	for _, n := range []string{"95", "99"} {
		expr := fmt.Sprintf(
			"histogram_quantile(0.%s, sum(rate(%s_time_ms_bucket[%s])) by (le))",
			n, normalized, percentileWindow,
		)
		targets = append(targets, panelTarget{
			Expr:         expr,
			LegendFormat: "p" + n,
			RefID:        n,
		})
	}

	return panel{
		ID:         id,
		Title:      t.Name,
		Type:       "graph",
		Datasource: "sonar",
		GridPos:    gridPos{H: 6, W: 8, X: 0, Y: 0},
		Legend:     legend{Show: true, Values: true, Current: true},
		Tooltip:    tooltip{Shared: true, ValueType: "individual"},
		Lines:      true,
		Fill:       1,
		Targets:    targets,
	}
}

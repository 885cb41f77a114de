package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonarwatch/sonar/internal/config"
)

func TestGenerateProducesOnePanelPerTarget(t *testing.T) {
	cfg := &config.Config{
		Targets: []config.Target{
			{Name: "http_a_example_"},
			{Name: "http_b_example_"},
		},
	}

	raw, err := Generate(cfg)
	require.NoError(t, err)

	var doc dashboardDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Panels, 2)
	assert.Equal(t, "http_a_example_", doc.Panels[0].Title)
	assert.Equal(t, 1, doc.Panels[0].ID)
	assert.Equal(t, 2, doc.Panels[1].ID)
}

func TestGeneratePanelHasP95AndP99Expressions(t *testing.T) {
	cfg := &config.Config{
		Targets: []config.Target{{Name: "http_a_example_"}},
	}

	raw, err := Generate(cfg)
	require.NoError(t, err)

	var doc dashboardDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Panels[0].Targets, 2)

	assert.Contains(t, doc.Panels[0].Targets[0].Expr, "histogram_quantile(0.95")
	assert.Contains(t, doc.Panels[0].Targets[0].Expr, "http_a_example__time_ms_bucket[5m]")
	assert.Contains(t, doc.Panels[0].Targets[1].Expr, "histogram_quantile(0.99")
}

func TestGenerateIsValidJSON(t *testing.T) {
	cfg := &config.Config{Targets: []config.Target{{Name: "a"}}}
	raw, err := Generate(cfg)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestGenerateEmptyTargetsProducesNoPanels(t *testing.T) {
	cfg := &config.Config{}
	raw, err := Generate(cfg)
	require.NoError(t, err)

	var doc dashboardDoc
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Empty(t, doc.Panels)
}

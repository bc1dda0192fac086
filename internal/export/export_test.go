package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/registry"
)

func testGraph(t *testing.T) *depgraph.Graph {
	t.Helper()
	g, err := depgraph.New(
		[]depgraph.Node{
			{Code: "note-cadrage", Name: "Note de cadrage", IsAvailable: true},
			{Code: "benchmark", IsAvailable: false},
			{Code: "cahier-charges", Name: `Cahier "des" charges`, IsAvailable: true},
		},
		[]depgraph.Edge{
			{DocumentType: "cahier-charges", DependsOn: "note-cadrage", Required: true},
			{DocumentType: "cahier-charges", DependsOn: "benchmark", Required: false},
		},
	)
	require.NoError(t, err)
	return g
}

func testCasiers() []registry.Casier {
	one := int64(1)
	return []registry.Casier{
		{Key: registry.NewKey("amoa", "preliminary-study", "cahier-charges"), TemplateID: "cdc", Format: registry.FormatDOCX,
			Content: registry.ContentRefs{PromptDocID: &one}},
		{Key: registry.NewKey("amoa", "preliminary-study", "note-cadrage"), TemplateID: "cadrage", Format: registry.FormatPDF,
			Content: registry.ContentRefs{PromptDocID: &one, SummaryDocID: &one}},
		{Key: registry.NewKey("audit", "gap", "rapport"), TemplateID: "orphan"},
	}
}

func TestGenerateMermaid(t *testing.T) {
	got := GenerateMermaid(testGraph(t), testCasiers())

	// Order: benchmark (N0), note-cadrage (N1), cahier-charges (N2).
	want := `graph TD
  subgraph C0["amoa"]
    N1["Note de cadrage"]
    N2["Cahier 'des' charges"]
  end
  N0["benchmark"]
  N0 -.-> N2
  N1 --> N2
  classDef unavailable stroke-dasharray: 5 5,color:#999
  class N0 unavailable
`
	assert.Equal(t, want, got)
}

func TestExportCatalog(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	exp := ExportCatalog(testGraph(t), testCasiers(), now)

	assert.Equal(t, "2026-10-19T10:00:00Z", exp.ExportedAt)
	require.Len(t, exp.DocumentTypes, 3)

	cdc := exp.DocumentTypes[2]
	assert.Equal(t, 3, cdc.Order)
	assert.Equal(t, "cahier-charges", cdc.Code)
	assert.Equal(t, []string{"note-cadrage"}, cdc.Prerequisites)
	assert.Equal(t, []string{"benchmark"}, cdc.Recommended)
	require.Len(t, cdc.Casiers, 1)
	assert.Equal(t, []string{"summaryDocId"}, cdc.Casiers[0].Missing)
	assert.True(t, cdc.Casiers[0].Active)

	assert.Empty(t, exp.DocumentTypes[0].Casiers, "benchmark has no casier")

	require.Len(t, exp.Orphans, 1)
	assert.Equal(t, "orphan", exp.Orphans[0].TemplateID)
}

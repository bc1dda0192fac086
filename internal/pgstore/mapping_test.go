package pgstore

import (
	"context"
	"testing"

	"github.com/dusk-indust/casier/internal/artifact"
	"github.com/dusk-indust/casier/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCasierModel_NormalisesKeyAndDefaultsActive(t *testing.T) {
	m, err := casierModel(registry.Casier{
		Key:        registry.Key{Category: " AMOA ", Subcategory: "Preliminary-Study", DocumentType: "Cadrage"},
		TemplateID: "tpl-1",
		Tags:       []string{"amoa"},
	})
	require.NoError(t, err)
	assert.Equal(t, "amoa", m.Category)
	assert.Equal(t, "preliminary-study", m.Subcategory)
	assert.Equal(t, "cadrage", m.DocumentType)
	assert.True(t, m.Active)
	assert.JSONEq(t, `["amoa"]`, string(m.TagsJSON))
	assert.Nil(t, m.StructureJSON)
}

func TestArtifactModel_OptionsStoredAsJSON(t *testing.T) {
	m, err := artifactModel(&artifact.Artifact{ID: "a1", Status: artifact.StatusPending, Options: map[string]any{"preview": true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"preview":true}`, string(m.OptionsJSON))
	assert.Equal(t, "pending", m.Status)

	back, err := artifactFromModel(&m)
	require.NoError(t, err)
	assert.Equal(t, true, back.Options["preview"])
}

func TestRepositories_WithoutDB(t *testing.T) {
	ctx := context.Background()
	s := &Store{}

	_, err := s.Artifacts().Get(ctx, "x")
	assert.ErrorIs(t, err, errDBUnavailable)
	_, err = s.Casiers().ListCasiers(ctx)
	assert.ErrorIs(t, err, errDBUnavailable)
	_, err = s.Graph().Nodes(ctx)
	assert.ErrorIs(t, err, errDBUnavailable)
	_, err = s.Directory().EvaluationExists(ctx, 1, 2)
	assert.ErrorIs(t, err, errDBUnavailable)
	assert.ErrorIs(t, s.Migrate(ctx), errDBUnavailable)
	assert.NoError(t, s.Close())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

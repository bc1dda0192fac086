package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func feasibilityCasier() Casier {
	return Casier{
		Key:             NewKey("amoa", "preliminary-study", "etude-faisabilite"),
		TemplateID:      "amoa-etude-preliminaire-faisabilite",
		DisplayName:     "Étude de faisabilité",
		FilenamePattern: "AMOA_etudeprelim_faisabilite_%client%_%date%",
		Content:         ContentRefs{PromptDocID: ptr(int64(11)), SummaryDocID: ptr(int64(12))},
		Format:          FormatDOCX,
		Structure: []Section{
			{Title: "Contexte", Subsections: []Section{{Title: "Objectifs"}}},
			{Title: "Analyse"},
		},
		Tags: []string{"amoa", "faisabilite"},
	}
}

func TestResolve_Registered(t *testing.T) {
	reg, err := New([]Casier{feasibilityCasier()})
	require.NoError(t, err)

	c, err := reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	require.NoError(t, err)
	require.NotNil(t, c.Content.PromptDocID)
	require.NotNil(t, c.Content.SummaryDocID)
	assert.Equal(t, int64(11), *c.Content.PromptDocID)
	assert.Equal(t, int64(12), *c.Content.SummaryDocID)
	assert.Equal(t, FormatDOCX, c.Format)
	assert.Len(t, c.Structure, 2)
}

func TestResolve_KeyIsNormalised(t *testing.T) {
	reg, err := New([]Casier{feasibilityCasier()})
	require.NoError(t, err)

	_, err = reg.Resolve(" AMOA ", "Preliminary-Study", "ETUDE-FAISABILITE")
	assert.NoError(t, err)
}

func TestResolve_NotFound(t *testing.T) {
	reg, err := New([]Casier{feasibilityCasier()})
	require.NoError(t, err)

	_, err = reg.Resolve("amoa", "preliminary-study", "unknown")

	var nf *TemplateNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "unknown", nf.Key.DocumentType)

	// No partial matching on a prefix of the key.
	_, err = reg.Resolve("amoa", "preliminary", "etude-faisabilite")
	assert.ErrorAs(t, err, &nf)
}

func TestResolve_EmptyRegistry(t *testing.T) {
	var reg Registry
	_, err := reg.Resolve("amoa", "x", "y")
	var nf *TemplateNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestResolve_InactiveIsNotFound(t *testing.T) {
	c := feasibilityCasier()
	c.Active = ptr(false)
	reg, err := New([]Casier{c})
	require.NoError(t, err)

	_, err = reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	var nf *TemplateNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestResolve_Incomplete(t *testing.T) {
	c := feasibilityCasier()
	c.Content.SummaryDocID = nil
	reg, err := New([]Casier{c})
	require.NoError(t, err)

	_, err = reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")

	var inc *TemplateIncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"summaryDocId"}, inc.Missing)
	assert.Equal(t, "amoa-etude-preliminaire-faisabilite", inc.TemplateID)

	var nf *TemplateNotFoundError
	assert.False(t, errors.As(err, &nf), "incomplete must be distinguishable from not found")
}

func TestResolve_ReturnsIndependentCopy(t *testing.T) {
	reg, err := New([]Casier{feasibilityCasier()})
	require.NoError(t, err)

	c, err := reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	require.NoError(t, err)
	*c.Content.PromptDocID = 999
	c.Structure[0].Subsections[0].Title = "changed"

	again, err := reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	require.NoError(t, err)
	assert.Equal(t, int64(11), *again.Content.PromptDocID)
	assert.Equal(t, "Objectifs", again.Structure[0].Subsections[0].Title)
}

func TestReplace_RejectsDuplicatesAndKeepsPrevious(t *testing.T) {
	reg, err := New([]Casier{feasibilityCasier()})
	require.NoError(t, err)

	dup := feasibilityCasier()
	dup.TemplateID = "other"
	err = reg.Replace([]Casier{feasibilityCasier(), dup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate casier")

	_, err = reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	assert.NoError(t, err, "failed replace must leave previous contents live")
}

func TestReplace_RejectsInvalid(t *testing.T) {
	_, err := New([]Casier{{TemplateID: "no-key"}})
	assert.Error(t, err)

	bad := feasibilityCasier()
	bad.Format = "odt"
	_, err = New([]Casier{bad})
	assert.Error(t, err)
}

func TestReplace_ConcurrentReadersSeeWholeMaps(t *testing.T) {
	complete := feasibilityCasier()
	incomplete := feasibilityCasier()
	incomplete.Content = ContentRefs{}

	reg, err := New([]Casier{complete})
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				_ = reg.Replace([]Casier{incomplete})
			} else {
				_ = reg.Replace([]Casier{complete})
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		c, err := reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
		if err == nil {
			require.NotNil(t, c.Content.PromptDocID)
			require.NotNil(t, c.Content.SummaryDocID)
			continue
		}
		var inc *TemplateIncompleteError
		require.ErrorAs(t, err, &inc)
		require.Equal(t, []string{"promptDocId", "summaryDocId"}, inc.Missing)
	}
	close(stop)
	wg.Wait()
}

func TestList_Sorted(t *testing.T) {
	other := feasibilityCasier()
	other.Key = NewKey("audit", "gap-analysis", "rapport")
	other.TemplateID = "audit-gap"

	reg, err := New([]Casier{other, feasibilityCasier()})
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "amoa", list[0].Category)
	assert.Equal(t, "audit", list[1].Category)
	assert.Equal(t, 2, reg.Len())
}

const catalogYAML = `
casiers:
  - category: AMOA
    subcategory: preliminary-study
    documentType: etude-faisabilite
    templateId: amoa-etude-preliminaire-faisabilite
    displayName: Étude de faisabilité
    filenamePattern: AMOA_etudeprelim_faisabilite_%client%_%date%
    format: docx
    content:
      promptDocId: 11
      summaryDocId: 12
    structure:
      - title: Contexte
      - title: Analyse
    tags: [amoa]
  - category: audit
    subcategory: gap-analysis
    documentType: rapport-ecarts
    templateId: audit-gap
    displayName: Rapport d'écarts
    format: pdf
    content:
      promptDocId: 21
`

func TestReload_FromCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "casiers.yml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	var reg Registry
	require.NoError(t, reg.Reload(context.Background(), FileSource{Path: path}))
	assert.Equal(t, 2, reg.Len())

	c, err := reg.Resolve("amoa", "preliminary-study", "etude-faisabilite")
	require.NoError(t, err)
	assert.Equal(t, "Étude de faisabilité", c.DisplayName)
	assert.Equal(t, []Section{{Title: "Contexte"}, {Title: "Analyse"}}, c.Structure)

	_, err = reg.Resolve("audit", "gap-analysis", "rapport-ecarts")
	var inc *TemplateIncompleteError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, []string{"summaryDocId"}, inc.Missing)
}

func TestReload_MissingFile(t *testing.T) {
	var reg Registry
	err := reg.Reload(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
casiers:
  - category: amoa
    subcategory: preliminary-study
    documentType: note-cadrage
    templateId: amoa-cadrage
    format: docx
    content: {promptDocId: 1, summaryDocId: 2}
`

const testGraph = `
documentTypes:
  - {code: note-cadrage, isAvailable: true}
  - {code: cahier-charges, isAvailable: true}
  - {code: benchmark, isAvailable: false}
dependencies:
  - {documentType: cahier-charges, dependsOn: note-cadrage, required: true}
  - {documentType: cahier-charges, dependsOn: benchmark, required: false}
`

func newDocService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"document":{"path":"/documents/amoa/preliminary-study/note-cadrage/42.docx"}}`))
	})
	mux.HandleFunc("GET /api/enhanced-documents/check-integrity", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false}`))
	})
	mux.HandleFunc("GET /api/enhanced-documents/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK\x03\x04"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func workspace(t *testing.T, serviceURL string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"casiers.yml": testCatalog,
		"graph.yml":   testGraph,
		"casier.yml": "serviceUrl: " + serviceURL + "\nlog: {level: error}\n" +
			"clients:\n  - {id: 42, name: Acme Industrie, evaluations: [7]}\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRun_Version(t *testing.T) {
	out, err := runCLI(t, "-version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestRun_MissingAndUnknownCommand(t *testing.T) {
	_, err := runCLI(t)
	assert.EqualError(t, err, "missing command")

	_, err = runCLI(t, "-dir", t.TempDir(), "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestRun_CheckGraph(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "check-graph")
	require.NoError(t, err)
	assert.Equal(t, "3 document types, acyclic\n"+
		"  1. benchmark (unavailable)\n"+
		"  2. note-cadrage\n"+
		"  3. cahier-charges <- benchmark?, note-cadrage\n", out)
}

func TestRun_CheckGraphRejectsCycle(t *testing.T) {
	dir := workspace(t, "http://unused")
	cyclic := testGraph + "  - {documentType: note-cadrage, dependsOn: cahier-charges, required: true}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.yml"), []byte(cyclic), 0o644))

	_, err := runCLI(t, "-dir", dir, "check-graph")
	assert.ErrorContains(t, err, "cycle")
}

func TestRun_Session(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "session")
	require.NoError(t, err)
	assert.Equal(t, "no client selected\n", out)

	out, err = runCLI(t, "-dir", dir, "session", "-client", "42", "-name", "Acme", "-evaluation", "7")
	require.NoError(t, err)
	assert.Equal(t, "client: 42 Acme\nevaluation: 7\n", out)

	out, err = runCLI(t, "-dir", dir, "session", "-clear")
	require.NoError(t, err)
	assert.Equal(t, "no client selected\n", out)
}

func TestRun_DispatchRemembersClientThenDeliver(t *testing.T) {
	srv := newDocService(t)
	dir := workspace(t, srv.URL)

	out, err := runCLI(t, "-dir", dir, "dispatch",
		"-client", "42", "-category", "amoa", "-subcategory", "preliminary-study", "-type", "note-cadrage")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ note-cadrage complete")
	assert.Contains(t, out, "completed")

	out, err = runCLI(t, "-dir", dir, "session")
	require.NoError(t, err)
	assert.Equal(t, "client: 42 Acme Industrie\n", out)

	outDir := t.TempDir()
	out, err = runCLI(t, "-dir", dir, "deliver",
		"-path", "/documents/amoa/preliminary-study/note-cadrage/42.docx", "-out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "secure route")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^AMOA_preliminary-study_note-cadrage_42_\d{8}\.docx$`, entries[0].Name())
}

func TestRun_DispatchRejected(t *testing.T) {
	srv := newDocService(t)
	dir := workspace(t, srv.URL)

	_, err := runCLI(t, "-dir", dir, "dispatch",
		"-client", "42", "-category", "amoa", "-subcategory", "preliminary-study", "-type", "cahier-charges")
	assert.ErrorContains(t, err, "note-cadrage")
}

func TestRun_Prereq(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "prereq", "-client", "42", "-type", "cahier-charges")
	require.NoError(t, err)
	assert.Equal(t, "cahier-charges: missing note-cadrage\n  recommended first: benchmark\n", out)
}

func TestRun_Status(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "status", "-client", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Client 42\n")
	assert.Contains(t, out, "-> note-cadrage")
	assert.Contains(t, out, "[blocked] needs note-cadrage")
	assert.Contains(t, out, "[unavailable]")

	_, err = runCLI(t, "-dir", dir, "status")
	assert.ErrorContains(t, err, "no client selected")
}

func TestOptionFlags(t *testing.T) {
	o := optionFlags{}
	require.NoError(t, o.Set("includePricing=true"))
	require.NoError(t, o.Set("language=en"))
	assert.Equal(t, optionFlags{"includePricing": true, "language": "en"}, o)
	assert.Error(t, o.Set("novalue"))
}

func TestRun_ExportMermaid(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "export", "-format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "N1 --> N2")
	assert.Contains(t, out, "N0 -.-> N2")
}

func TestRun_ExportJSON(t *testing.T) {
	dir := workspace(t, "http://unused")

	out, err := runCLI(t, "-dir", dir, "export")
	require.NoError(t, err)
	assert.Contains(t, out, `"code": "cahier-charges"`)

	_, err = runCLI(t, "-dir", dir, "export", "-format", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

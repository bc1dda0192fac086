// Package export renders the document catalog for humans and tools: a JSON
// summary and a Mermaid dependency diagram.
package export

import (
	"time"

	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/registry"
)

// CatalogExport is the top-level JSON export structure.
type CatalogExport struct {
	ExportedAt    string               `json:"exportedAt"`
	DocumentTypes []DocumentTypeExport `json:"documentTypes"`
	// Orphans are casiers whose document type is not in the graph; they
	// can never be dispatched.
	Orphans []CasierExport `json:"orphans,omitempty"`
}

// DocumentTypeExport describes one node of the graph, in generation order.
type DocumentTypeExport struct {
	Order                 int            `json:"order"`
	Code                  string         `json:"code"`
	Name                  string         `json:"name,omitempty"`
	Available             bool           `json:"available"`
	RequiresEvaluation    bool           `json:"requiresEvaluation"`
	RequiresQuestionnaire bool           `json:"requiresQuestionnaire"`
	Prerequisites         []string       `json:"prerequisites,omitempty"`
	Recommended           []string       `json:"recommended,omitempty"`
	Casiers               []CasierExport `json:"casiers,omitempty"`
}

// CasierExport is a casier as seen from the export.
type CasierExport struct {
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	DocumentType string   `json:"documentType"`
	TemplateID   string   `json:"templateId"`
	Format       string   `json:"format,omitempty"`
	Active       bool     `json:"active"`
	Missing      []string `json:"missingContent,omitempty"`
}

// ExportCatalog joins the dependency graph with the registered casiers.
func ExportCatalog(g *depgraph.Graph, casiers []registry.Casier, now time.Time) *CatalogExport {
	out := &CatalogExport{ExportedAt: now.UTC().Format(time.RFC3339)}

	byType := make(map[string][]CasierExport)
	for _, c := range casiers {
		ce := CasierExport{
			Category:     c.Category,
			Subcategory:  c.Subcategory,
			DocumentType: c.DocumentType,
			TemplateID:   c.TemplateID,
			Format:       string(c.Format),
			Active:       c.IsActive(),
			Missing:      c.Content.Missing(),
		}
		if _, ok := g.Node(c.DocumentType); !ok {
			out.Orphans = append(out.Orphans, ce)
			continue
		}
		byType[c.DocumentType] = append(byType[c.DocumentType], ce)
	}

	for i, code := range g.TopologicalOrder() {
		n, _ := g.Node(code)
		dt := DocumentTypeExport{
			Order:                 i + 1,
			Code:                  n.Code,
			Name:                  n.Name,
			Available:             n.IsAvailable,
			RequiresEvaluation:    n.RequiresEvaluation,
			RequiresQuestionnaire: n.RequiresQuestionnaire,
			Casiers:               byType[code],
		}
		for _, e := range g.Dependencies(code) {
			if e.Required {
				dt.Prerequisites = append(dt.Prerequisites, e.DependsOn)
			} else {
				dt.Recommended = append(dt.Recommended, e.DependsOn)
			}
		}
		out.DocumentTypes = append(out.DocumentTypes, dt)
	}
	return out
}

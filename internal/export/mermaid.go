package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/casier/internal/depgraph"
	"github.com/dusk-indust/casier/internal/registry"
)

// GenerateMermaid produces a Mermaid graph TD diagram of the dependency
// graph. Document types are grouped by the category of the casiers that
// produce them; required prerequisites become solid arrows, advisory ones
// dotted arrows, both pointing from prerequisite to dependent.
func GenerateMermaid(g *depgraph.Graph, casiers []registry.Casier) string {
	order := g.TopologicalOrder()

	// Build code → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string, len(order))
	for i, code := range order {
		nodeIDs[code] = fmt.Sprintf("N%d", i)
	}

	// A document type joins the first category (by key order) that has a
	// casier for it.
	grouped := make(map[string]string)
	for _, c := range casiers {
		if _, ok := grouped[c.DocumentType]; !ok {
			grouped[c.DocumentType] = c.Category
		}
	}
	members := make(map[string][]string)
	var categories []string
	for _, code := range order {
		cat, ok := grouped[code]
		if !ok {
			continue
		}
		if _, seen := members[cat]; !seen {
			categories = append(categories, cat)
		}
		members[cat] = append(members[cat], code)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, cat := range categories {
		fmt.Fprintf(&sb, "  subgraph C%d[\"%.40s\"]\n", i, cat)
		for _, code := range members[cat] {
			fmt.Fprintf(&sb, "    %s\n", nodeDecl(g, nodeIDs, code))
		}
		sb.WriteString("  end\n")
	}
	for _, code := range order {
		if _, ok := grouped[code]; !ok {
			fmt.Fprintf(&sb, "  %s\n", nodeDecl(g, nodeIDs, code))
		}
	}

	for _, code := range order {
		for _, e := range g.Dependencies(code) {
			arrow := "-.->"
			if e.Required {
				arrow = "-->"
			}
			fmt.Fprintf(&sb, "  %s %s %s\n", nodeIDs[e.DependsOn], arrow, nodeIDs[code])
		}
	}

	var unavailable []string
	for _, code := range order {
		if n, _ := g.Node(code); !n.IsAvailable {
			unavailable = append(unavailable, nodeIDs[code])
		}
	}
	if len(unavailable) > 0 {
		sb.WriteString("  classDef unavailable stroke-dasharray: 5 5,color:#999\n")
		fmt.Fprintf(&sb, "  class %s unavailable\n", strings.Join(unavailable, ","))
	}

	return sb.String()
}

func nodeDecl(g *depgraph.Graph, ids map[string]string, code string) string {
	label := code
	if n, _ := g.Node(code); n.Name != "" {
		label = n.Name
	}
	return fmt.Sprintf("%s[\"%s\"]", ids[code], strings.ReplaceAll(label, `"`, "'"))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/dusk-indust/casier/internal/depgraph"
)

// runCheckGraph validates the graph definition file and prints the
// generation order with each document's prerequisites.
func runCheckGraph(ctx context.Context, env *cmdEnv, args []string) error {
	fs := flag.NewFlagSet("check-graph", flag.ContinueOnError)
	path := fs.String("file", env.cfg.Graph, "graph definition file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g, err := depgraph.Load(ctx, depgraph.FileSource{Path: *path})
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "%d document types, acyclic\n", g.Len())
	for i, code := range g.TopologicalOrder() {
		var deps []string
		for _, e := range g.Dependencies(code) {
			d := e.DependsOn
			if !e.Required {
				d += "?"
			}
			deps = append(deps, d)
		}
		line := fmt.Sprintf("%3d. %s", i+1, code)
		if n, _ := g.Node(code); !n.IsAvailable {
			line += " (unavailable)"
		}
		if len(deps) > 0 {
			line += " <- " + strings.Join(deps, ", ")
		}
		fmt.Fprintln(env.out, line)
	}
	return nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/export"
)

func runExport(env *cmdEnv, a *app.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "json", "output format (json, mermaid)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	g := a.Graph.Graph()
	casiers := a.Registry.List()
	switch *format {
	case "json":
		out, err := json.MarshalIndent(export.ExportCatalog(g, casiers, time.Now()), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		_, err = env.out.Write(append(out, '\n'))
		return err
	case "mermaid":
		_, err := fmt.Fprint(env.out, export.GenerateMermaid(g, casiers))
		return err
	default:
		return fmt.Errorf("export: unknown format %q", *format)
	}
}

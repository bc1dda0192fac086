package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/casier/internal/app"
	"github.com/dusk-indust/casier/internal/nomenclature"
)

func runDeliver(ctx context.Context, env *cmdEnv, a *app.App, args []string) error {
	var client int64Flag
	fs := flag.NewFlagSet("deliver", flag.ContinueOnError)
	id := fs.String("id", "", "artifact id")
	docPath := fs.String("path", "", "server-side document path (when no -id)")
	fs.Var(&client, "client", "client id for the fallback filename (default: session client)")
	outDir := fs.String("out", ".", "directory to save into")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := nomenclature.Client{ID: client.v}
	if !client.set {
		sess, err := env.sessions.Load(ctx)
		if err != nil {
			return err
		}
		target = nomenclature.Client{ID: sess.ClientID, Name: sess.ClientName}
	}
	if *id != "" {
		art, err := a.Orchestrator.Artifact(ctx, *id)
		if err != nil {
			return err
		}
		if !art.Status.Available() {
			return fmt.Errorf("artifact %s is %s, nothing to deliver", art.ID, art.Status)
		}
		*docPath = art.Path
		target = nomenclature.Client{ID: art.ClientID, Name: art.ClientName}
	}
	if *docPath == "" {
		return errors.New("deliver: -id or -path is required")
	}
	if target.ID != 0 && target.Name == "" {
		if c, err := a.Directory.Client(ctx, target.ID); err == nil {
			target = c
		}
	}

	res, err := a.Delivery.Deliver(ctx, *docPath, target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(*outDir, res.Filename)
	if err := os.WriteFile(dest, res.Data, 0o644); err != nil {
		return err
	}
	route := "standard"
	if res.Secure {
		route = "secure"
	}
	fmt.Fprintf(env.out, "saved %s (%d bytes, %s route, %d attempt(s))\n", dest, len(res.Data), route, res.Attempts)
	return nil
}
